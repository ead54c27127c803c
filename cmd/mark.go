package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
)

var markCmd = &cobra.Command{
	Use:   "mark [name...]",
	Short: "Mark students present today",
	Long: `Mark students present for today's session.

Students can be named (exact name or roll number, case and accents ignored),
selected by id, or recognized in a classroom photo. A student is recorded at
most once per day, repeated marks report the existing record.

Examples:
  roll-call mark "Asha Verma" CS102
  roll-call mark --id 7
  roll-call mark --image classroom.jpg`,
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().Int64("id", 0, "Student id to mark")
	markCmd.Flags().String("image", "", "Snapshot to recognize students in")
}

func printMarkResult(label string, r attendance.MarkResult) {
	switch {
	case r.Created:
		fmt.Printf("  %-24s marked present at %s\n", label, r.Record.Time)
	case r.Marked:
		fmt.Printf("  %-24s already present since %s\n", label, r.Record.Time)
	default:
		fmt.Printf("  %-24s not marked (%s)\n", label, r.Reason)
	}
}

func runMark(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := mustGetInt64(cmd, "id")
	imagePath := mustGetString(cmd, "image")

	if len(args) == 0 && id == 0 && imagePath == "" {
		return errors.New("give at least one name, --id or --image")
	}

	var image []byte
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		image = data
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if id != 0 {
		r, err := eng.svc.MarkByID(ctx, id)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("#%d", id)
		if r.Subject != nil {
			label = r.Subject.Name
		}
		printMarkResult(label, r)
	}

	if len(args) > 0 {
		results, err := eng.svc.MarkMany(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range results {
			printMarkResult(r.Query, r)
		}
	}

	if image != nil {
		snap, err := eng.svc.MarkFromSnapshot(ctx, image)
		if err != nil {
			return err
		}
		if len(snap.Faces) == 0 {
			fmt.Printf("  %s: %s\n", imagePath, snap.Reason)
		}
		for _, f := range snap.Faces {
			label := fmt.Sprintf("face %d", f.Index)
			switch {
			case f.Subject == nil:
				fmt.Printf("  %-24s not recognized (%s)\n", label, f.Decision)
			case f.Created:
				fmt.Printf("  %-24s %s marked present\n", label, f.Subject.Name)
			default:
				fmt.Printf("  %-24s %s already present\n", label, f.Subject.Name)
			}
		}
	}
	return nil
}
