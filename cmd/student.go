package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage enrolled students",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <roll-number> <name>",
	Short: "Enroll a new student",
	Long: `Enroll a new student. With --image the photo is encoded and stored as the
student's reference face; the largest detected face is used.

Examples:
  roll-call student add CS101 "Asha Verma" --image asha.jpg
  roll-call student add CS102 "Ravi Kumar"`,
	Args: cobra.ExactArgs(2),
	RunE: runStudentAdd,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled students",
	Args:  cobra.NoArgs,
	RunE:  runStudentList,
}

var studentUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a student's roll number or name",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentUpdate,
}

var studentRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a student and their attendance records",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentRemove,
}

var studentEnrollCmd = &cobra.Command{
	Use:   "enroll <id> <image>",
	Short: "Replace a student's reference face",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudentEnroll,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd, studentListCmd, studentUpdateCmd, studentRemoveCmd, studentEnrollCmd)

	studentAddCmd.Flags().String("image", "", "Reference photo of the student")
	studentListCmd.Flags().Bool("json", false, "Output as JSON")
	studentUpdateCmd.Flags().String("roll", "", "New roll number")
	studentUpdateCmd.Flags().String("name", "", "New name")
}

func parseStudentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid student id %q", arg)
	}
	return id, nil
}

func printStudent(s *attendance.Subject) {
	face := "no"
	if s.HasEncoding {
		face = "yes"
	}
	fmt.Printf("  ID:          %d\n", s.ID)
	fmt.Printf("  Roll number: %s\n", s.RollNumber)
	fmt.Printf("  Name:        %s\n", s.Name)
	fmt.Printf("  Enrolled:    %s\n", face)
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	imagePath := mustGetString(cmd, "image")

	in := attendance.NewSubject{RollNumber: args[0], Name: args[1]}
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		in.Image = data
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	subject, err := eng.svc.AddSubject(ctx, in)
	if err != nil {
		return err
	}
	fmt.Println("Student added:")
	printStudent(subject)
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	subjects, err := eng.svc.ListSubjects(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(subjects)
	}

	if len(subjects) == 0 {
		fmt.Println("No students enrolled")
		return nil
	}
	fmt.Printf("%-6s %-12s %-30s %s\n", "ID", "ROLL", "NAME", "FACE")
	for _, s := range subjects {
		face := "-"
		if s.HasEncoding {
			face = "yes"
		}
		fmt.Printf("%-6d %-12s %-30s %s\n", s.ID, s.RollNumber, s.Name, face)
	}
	fmt.Printf("\nTotal: %d students\n", len(subjects))
	return nil
}

func runStudentUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := parseStudentID(args[0])
	if err != nil {
		return err
	}

	var upd attendance.SubjectUpdate
	if cmd.Flags().Changed("roll") {
		roll := mustGetString(cmd, "roll")
		upd.RollNumber = &roll
	}
	if cmd.Flags().Changed("name") {
		name := mustGetString(cmd, "name")
		upd.Name = &name
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	subject, err := eng.svc.UpdateSubject(ctx, id, upd)
	if err != nil {
		return err
	}
	fmt.Println("Student updated:")
	printStudent(subject)
	return nil
}

func runStudentRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := parseStudentID(args[0])
	if err != nil {
		return err
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.svc.RemoveSubject(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Student %d removed\n", id)
	return nil
}

func runStudentEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := parseStudentID(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	subject, err := eng.svc.Enroll(ctx, id, data)
	if err != nil {
		return err
	}
	fmt.Println("Reference face updated:")
	printStudent(subject)
	return nil
}
