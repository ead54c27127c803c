package attendance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"date", "time", "roll_number", "name", "status"}

// maxExportSuffix bounds the _1, _2, ... attempts for a taken file name.
const maxExportSuffix = 1000

func writeRecords(w io.Writer, records []Record) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Date, r.Time, r.RollNumber, r.Name, string(r.Status)}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// WriteCSV streams all records in ListAttendance order to w and returns the row count.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	const op = "WriteCSV"
	records, err := s.records(ctx, op, 0)
	if err != nil {
		return 0, err
	}
	n, err := writeRecords(w, records)
	if err != nil {
		return 0, newError(KindExport, op, "write csv", err)
	}
	return n, nil
}

// createExclusive opens dir/base.csv, falling back to base_1.csv, base_2.csv, ...
// when the name is taken. Existing files are never overwritten.
func createExclusive(dir, base string) (*os.File, string, error) {
	for i := 0; i <= maxExportSuffix; i++ {
		name := base + ".csv"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s after %d attempts", base, maxExportSuffix)
}

// ExportToCSV writes all records to EXPORT_DIR/attendance_YYYYMMDD_HHMMSS.csv and
// returns the path. A failed export leaves no partial file behind.
func (s *Service) ExportToCSV(ctx context.Context) (path string, err error) {
	const op = "ExportToCSV"
	defer s.metrics.ObserveOperation("export_csv", time.Now())
	defer func() { s.metrics.RecordExport(err) }()

	records, err := s.records(ctx, op, 0)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", newError(KindExport, op, "create export directory", err)
	}

	base := "attendance_" + s.now().In(s.loc).Format("20060102_150405")
	f, path, err := createExclusive(s.exportDir, base)
	if err != nil {
		return "", newError(KindExport, op, "create export file", err)
	}

	if _, werr := writeRecords(f, records); werr != nil {
		f.Close()
		os.Remove(path)
		return "", newError(KindExport, op, "write csv", werr)
	}
	if cerr := f.Close(); cerr != nil {
		os.Remove(path)
		return "", newError(KindExport, op, "close export file", cerr)
	}

	s.logger.Info("attendance exported", "path", path, "rows", len(records))
	return path, nil
}

// ReadCSV parses an export back into records (ID and SubjectID are not part of the file).
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("parse csv: missing header")
	}
	for i, col := range CSVHeader {
		if rows[0][i] != col {
			return nil, fmt.Errorf("parse csv: unexpected header %q", rows[0])
		}
	}
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, Record{
			Date:       row[0],
			Time:       row[1],
			RollNumber: row[2],
			Name:       row[3],
			Status:     database.Status(row[4]),
		})
	}
	return records, nil
}
