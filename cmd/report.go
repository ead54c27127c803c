package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show attendance percentages and today's status",
	Long: `Show each student's attendance percentage (days present out of days with a
session) followed by today's status and the most recent records.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("json", false, "Output as JSON")
	reportCmd.Flags().Int("recent", 10, "Number of recent records to show")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")
	recent := mustGetInt(cmd, "recent")

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	dash, err := eng.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	records, err := eng.svc.RecentRecords(ctx, recent)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"dashboard":      dash,
			"recent_records": records,
		})
	}

	fmt.Printf("Attendance for %s (%d students)\n\n", dash.Date, dash.TotalSubjects)
	if dash.TotalSubjects == 0 {
		fmt.Println("No students enrolled")
		return nil
	}

	status := make(map[int64]string, len(dash.TodayAttendance))
	for _, t := range dash.TodayAttendance {
		status[t.SubjectID] = string(t.Status)
	}

	fmt.Printf("%-12s %-30s %8s %10s  %s\n", "ROLL", "NAME", "DAYS", "PERCENT", "TODAY")
	for _, p := range dash.AttendanceData {
		fmt.Printf("%-12s %-30s %3d/%-4d %9.2f%%  %s\n",
			p.RollNumber, p.Name, p.PresentDays, p.SessionDays, p.Percentage, status[p.SubjectID])
	}

	if len(records) > 0 {
		fmt.Printf("\nRecent records:\n")
		for _, r := range records {
			fmt.Printf("  %s %s  %-12s %-30s %s\n", r.Date, r.Time, r.RollNumber, r.Name, r.Status)
		}
	}
	return nil
}
