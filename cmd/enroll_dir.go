package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/constants"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Enroll every student photo in a directory",
	Long: `Enroll students in bulk from a directory of photos.
Each file must be named <roll-number>_<name>.<ext>, underscores in the name
become spaces. Unknown roll numbers are added as new students; known ones get
their reference face replaced when --replace is set and are skipped otherwise.

Examples:
  # CS101_Asha_Verma.jpg enrolls "Asha Verma" with roll number CS101
  roll-call enroll-dir ./class-photos

  # Re-enroll everybody, 8 photos at a time
  roll-call enroll-dir ./class-photos --replace --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().Int("concurrency", constants.DefaultEnrollConcurrency, "Number of parallel workers")
	enrollDirCmd.Flags().Bool("replace", false, "Replace the reference face of students already enrolled")
}

var enrollImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// enrollFile is one photo found in the enrollment directory.
type enrollFile struct {
	Path       string
	RollNumber string
	Name       string
}

// parseEnrollFileName splits "CS101_Asha_Verma.jpg" into roll number and name.
func parseEnrollFileName(path string) (enrollFile, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if !slices.Contains(enrollImageExtensions, ext) {
		return enrollFile{}, false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	roll, rest, ok := strings.Cut(stem, "_")
	roll = strings.TrimSpace(roll)
	name := strings.Join(strings.Fields(strings.ReplaceAll(rest, "_", " ")), " ")
	if !ok || roll == "" || name == "" {
		return enrollFile{}, false
	}
	return enrollFile{Path: path, RollNumber: roll, Name: name}, true
}

// scanEnrollDir returns the enrollable photos in dir sorted by file name and
// the names of files that did not match the naming scheme.
func scanEnrollDir(dir string) ([]enrollFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []enrollFile
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := parseEnrollFileName(filepath.Join(dir, e.Name()))
		if !ok {
			skipped = append(skipped, e.Name())
			continue
		}
		files = append(files, f)
	}
	return files, skipped, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	replace := mustGetBool(cmd, "replace")
	ctx := context.Background()

	files, skipped, err := scanEnrollDir(args[0])
	if err != nil {
		return err
	}
	for _, name := range skipped {
		fmt.Printf("Skipping %s (expected <roll-number>_<name>.jpg)\n", name)
	}
	if len(files) == 0 {
		fmt.Println("No photos to enroll")
		return nil
	}

	eng, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	subjects, err := eng.svc.ListSubjects(ctx)
	if err != nil {
		return err
	}
	byRoll := make(map[string]attendance.Subject, len(subjects))
	for _, s := range subjects {
		byRoll[s.RollNumber] = s
	}

	fmt.Printf("Photos to enroll: %d (%d students already enrolled)\n\n", len(files), len(subjects))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var addedCount, replacedCount, keptCount, noFaceCount, errorCount int
	var failures []string
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, file := range files {
		wg.Add(1)
		go func(f enrollFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			existing, known := byRoll[f.RollNumber]
			if known && !replace {
				mu.Lock()
				keptCount++
				mu.Unlock()
				return
			}

			data, err := os.ReadFile(f.Path)
			if err == nil {
				if known {
					_, err = eng.svc.Enroll(ctx, existing.ID, data)
				} else {
					_, err = eng.svc.AddSubject(ctx, attendance.NewSubject{RollNumber: f.RollNumber, Name: f.Name, Image: data})
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && known:
				replacedCount++
			case err == nil:
				addedCount++
			case errors.Is(err, attendance.ErrNoFaceDetected):
				noFaceCount++
				failures = append(failures, fmt.Sprintf("%s: no face detected", filepath.Base(f.Path)))
			default:
				errorCount++
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(f.Path), err))
			}
		}(file)
	}

	wg.Wait()
	fmt.Println()

	slices.Sort(failures)
	for _, line := range failures {
		fmt.Printf("  %s\n", line)
	}
	fmt.Printf("\nCompleted: %d added, %d replaced, %d already enrolled\n", addedCount, replacedCount, keptCount)
	if noFaceCount > 0 || errorCount > 0 {
		fmt.Printf("Failed: %d without a detectable face, %d errors\n", noFaceCount, errorCount)
	}
	return nil
}
