package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"marksix-lab/internal/domain"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVSource reads a header-driven CSV file:
// period,date,n1..n6,special[,year][,om_*][,freq_*].
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load opens and parses the file.
func (s *CSVSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Name returns the file path.
func (s *CSVSource) Name() string {
	return s.path
}

var _ Source = (*CSVSource)(nil)

// ReadCSV parses a dataset from r. Column names are matched case-insensitively.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		idx[name] = i
	}
	for _, col := range MandatoryColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	yearIdx, hasYear := idx["year"]

	indicatorIdx := make(map[string]int)
	for name, i := range idx {
		if IsIndicatorColumn(name) {
			indicatorIdx[name] = i
		}
	}

	ds := &Dataset{}
	if len(indicatorIdx) > 0 {
		ds.Indicators = make(map[string][]int, len(indicatorIdx))
	}

	for row := 1; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		field := func(name string) string {
			return strings.TrimSpace(rec[idx[name]])
		}

		d := domain.Draw{Period: field("period")}
		if d.Date, err = parseDate(field("date")); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedRow, row, err)
		}
		for n := 0; n < 6; n++ {
			col := fmt.Sprintf("n%d", n+1)
			if d.Numbers[n], err = parseInt(field(col)); err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrMalformedRow, row, col, err)
			}
		}
		if d.Special, err = parseInt(field("special")); err != nil {
			return nil, fmt.Errorf("%w: row %d column special: %v", ErrMalformedRow, row, err)
		}
		if hasYear {
			if y := strings.TrimSpace(rec[yearIdx]); y != "" {
				if d.Year, err = parseInt(y); err != nil {
					return nil, fmt.Errorf("%w: row %d column year: %v", ErrMalformedRow, row, err)
				}
			}
		}
		ds.Draws = append(ds.Draws, d)

		for name, i := range indicatorIdx {
			v, err := parseInt(strings.TrimSpace(rec[i]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", ErrMalformedRow, row, name, err)
			}
			ds.Indicators[name] = append(ds.Indicators[name], v)
		}
	}

	return ds, nil
}

// WriteCSV writes draws and indicator columns in the format ReadCSV accepts.
// Indicator columns are written in the order given by columns.
func WriteCSV(w io.Writer, ds *Dataset, columns []string) error {
	writer := csv.NewWriter(w)

	header := append([]string(nil), MandatoryColumns...)
	header = append(header, "year")
	header = append(header, columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, d := range ds.Draws {
		rec := []string{d.Period, d.Date.Format("2006-01-02")}
		for _, n := range d.Numbers {
			rec = append(rec, strconv.Itoa(n))
		}
		rec = append(rec, strconv.Itoa(d.Special), strconv.Itoa(d.DrawYear()))
		for _, name := range columns {
			col := ds.Indicators[name]
			if i >= len(col) {
				return fmt.Errorf("column %s: missing row %d", name, i)
			}
			rec = append(rec, strconv.Itoa(col[i]))
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseInt accepts integers and integer-valued floats ("12.0").
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}
