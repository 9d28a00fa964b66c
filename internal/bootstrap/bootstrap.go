// Package bootstrap reads and writes the tabular landmark record: one CSV row
// per sample holding the image identifier, the class label and the 99
// absolute landmark coordinates rounded to 5 decimals.
package bootstrap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/pose"
)

const (
	idColumn    = "image_identifier"
	labelColumn = "class_label"
	// Columns is the number of fields in a row.
	Columns = 2 + pose.NumJoints*3
)

// Header returns the column names: image_identifier, class_label, x1, y1,
// z1 ... x33, y33, z33.
func Header() []string {
	h := make([]string, 0, Columns)
	h = append(h, idColumn, labelColumn)
	for i := 1; i <= pose.NumJoints; i++ {
		n := strconv.Itoa(i)
		h = append(h, "x"+n, "y"+n, "z"+n)
	}
	return h
}

// WriteStats reports what WriteCSV did.
type WriteStats struct {
	Written int
	Skipped int
}

// WriteCSV writes a header and one row per sample that carries a pose.
// Samples without a pose are skipped and counted.
func WriteCSV(w io.Writer, samples []dataset.Sample) (WriteStats, error) {
	var st WriteStats
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return st, err
	}
	row := make([]string, Columns)
	for _, s := range samples {
		if !s.HasPose() {
			st.Skipped++
			continue
		}
		row[0], row[1] = s.ID, s.Label
		for i, v := range s.Pose.Flat() {
			row[2+i] = FormatCoord(v)
		}
		if err := cw.Write(row); err != nil {
			return st, err
		}
		st.Written++
	}
	cw.Flush()
	return st, cw.Error()
}

// FormatCoord renders v rounded to 5 decimals with no trailing zeros.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(pose.Round5(v), 'f', -1, 64)
}

// ReadCSV loads samples written by WriteCSV. The header row is optional so
// that files produced without one load too. A row with a wrong field count
// or a non-numeric coordinate becomes a sample whose Err wraps
// pose.ErrMalformedPose. Only CSV syntax errors and rows without an
// identifier and label fail the whole read.
func ReadCSV(r io.Reader) ([]dataset.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var out []dataset.Sample
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && len(rec) > 0 && rec[0] == idColumn {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: %w: missing identifier or label", line, pose.ErrMalformedPose)
		}
		s := dataset.Sample{ID: rec[0], Label: rec[1]}
		p, err := parseRow(rec)
		if err != nil {
			s.Err = fmt.Errorf("line %d: %w", line, err)
		} else {
			s.Pose = &p
		}
		out = append(out, s)
	}
	return out, nil
}

func parseRow(rec []string) (pose.Pose, error) {
	if len(rec) != Columns {
		return pose.Pose{}, fmt.Errorf("%w: got %d coordinates, want %d",
			pose.ErrMalformedPose, len(rec)-2, pose.NumJoints*3)
	}
	coords := make([]float64, pose.NumJoints*3)
	for i, f := range rec[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return pose.Pose{}, fmt.Errorf("%w: column %d: %v", pose.ErrMalformedPose, i+3, err)
		}
		coords[i] = v
	}
	return pose.FromFlat(coords)
}
