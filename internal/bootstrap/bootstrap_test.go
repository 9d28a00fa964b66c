package bootstrap

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kamusis/asana-cli/internal/dataset"
	"github.com/kamusis/asana-cli/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

func testPose(offset float64) *pose.Pose {
	var p pose.Pose
	for i := range p {
		p[i] = r3.Vec{X: offset + float64(i)*1.123456789, Y: -float64(i) / 3, Z: 0.5}
	}
	return &p
}

func TestHeader(t *testing.T) {
	h := Header()
	if len(h) != Columns || Columns != 101 {
		t.Fatalf("header has %d columns, want 101", len(h))
	}
	if h[0] != "image_identifier" || h[2] != "x1" || h[100] != "z33" {
		t.Fatalf("unexpected header %v", h[:3])
	}
}

func TestWriteReadCSV(t *testing.T) {
	samples := []dataset.Sample{
		{ID: "tree/a.jpg", Label: "vrikshasana", Pose: testPose(0)},
		{ID: "tree/b.jpg", Label: "vrikshasana", Err: pose.ErrMissingPose},
		{ID: "cobra/c, with comma.jpg", Label: "bhujangasana", Pose: testPose(10)},
	}
	var buf bytes.Buffer
	st, err := WriteCSV(&buf, samples)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if st.Written != 2 || st.Skipped != 1 {
		t.Fatalf("stats = %+v, want 2 written 1 skipped", st)
	}
	if !strings.Contains(buf.String(), `"cobra/c, with comma.jpg"`) {
		t.Fatalf("identifier with comma not quoted:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), ",1.12346,") {
		t.Fatalf("coordinates not rounded to 5 decimals")
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d samples, want 2", len(got))
	}
	if got[1].ID != "cobra/c, with comma.jpg" || got[1].Label != "bhujangasana" {
		t.Fatalf("unexpected sample %+v", got[1])
	}
	want := pose.Round5(10 + 5*1.123456789)
	if x := got[1].Pose.At(pose.Joint(5)).X; x != want {
		t.Fatalf("x6 = %v, want %v", x, want)
	}
}

func TestReadCSV_NoHeader(t *testing.T) {
	var row []string
	row = append(row, "a.jpg", "ustrasana")
	for range pose.NumJoints * 3 {
		row = append(row, "1.5")
	}
	got, err := ReadCSV(strings.NewReader(strings.Join(row, ",") + "\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 1 || !got[0].HasPose() {
		t.Fatalf("unexpected samples %+v", got)
	}
}

func malformedRows() string {
	good := []string{"good.jpg", "ustrasana"}
	bad := []string{"nan.jpg", "ustrasana"}
	for range pose.NumJoints * 3 {
		good = append(good, "1.5")
		bad = append(bad, "nope")
	}
	return strings.Join([]string{
		strings.Join(good, ","),
		"short.jpg,ustrasana,1,2,3",
		strings.Join(bad, ","),
	}, "\n") + "\n"
}

func TestReadCSV_MalformedRowsBecomeFailedSamples(t *testing.T) {
	got, err := ReadCSV(strings.NewReader(malformedRows()))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d samples, want 3", len(got))
	}
	if !got[0].HasPose() || got[0].Err != nil {
		t.Fatalf("good row not loaded: %+v", got[0])
	}
	for _, s := range got[1:] {
		if s.HasPose() || !errors.Is(s.Err, pose.ErrMalformedPose) {
			t.Fatalf("sample %s: err = %v, want ErrMalformedPose", s.ID, s.Err)
		}
	}
	if got[1].ID != "short.jpg" || got[1].Label != "ustrasana" {
		t.Fatalf("unexpected identity %+v", got[1])
	}
	if !strings.Contains(got[1].Err.Error(), "line 2") {
		t.Fatalf("error lacks line number: %v", got[1].Err)
	}
}

func TestReadCSV_RejectsRowWithoutLabel(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("lonely.jpg\n")); !errors.Is(err, pose.ErrMalformedPose) {
		t.Fatalf("err = %v, want ErrMalformedPose", err)
	}
}
