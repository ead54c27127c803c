package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect the enrolled face gallery",
}

var galleryAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List students whose reference faces are easy to confuse",
	Long: `List pairs of enrolled students whose reference faces are closer than the
match threshold plus the ambiguity margin. Snapshots of either student may be
rejected as ambiguous; re-enrolling one of them with a clearer photo helps.`,
	Args: cobra.NoArgs,
	RunE: runGalleryAudit,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryAuditCmd)
}

func runGalleryAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	pairs, err := eng.svc.AuditGallery(ctx)
	if err != nil {
		return err
	}

	m := eng.svc.Matcher()
	fmt.Printf("Metric %s, threshold %.3f, margin %.3f\n\n", m.Metric, m.Threshold, m.Margin)
	if len(pairs) == 0 {
		fmt.Println("No confusable students found")
		return nil
	}
	for _, p := range pairs {
		fmt.Printf("  %.4f  %s (%s)  <->  %s (%s)\n", p.Distance, p.A.Name, p.A.RollNumber, p.B.Name, p.B.RollNumber)
	}
	fmt.Printf("\n%d confusable pairs\n", len(pairs))
	return nil
}
