package encoder

import (
	"bytes"
	"flag"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
)

var updateGolden = flag.Bool("update-golden", false, "update golden test files")

func note(kind byte, b float64, key int) chart.Note {
	return chart.Note{Kind: kind, Beat: beat.FromNum(b), Key: key}
}

func TestWriteMeasureQuarterNotes(t *testing.T) {
	notes := []chart.Note{
		note(chart.KindHit, 0, 0),
		note(chart.KindHit, 1, 0),
		note(chart.KindHit, 2, 0),
		note(chart.KindHit, 3, 0),
	}
	var buf bytes.Buffer
	if err := writeMeasure(&buf, 4, 0, beat.FromNum(0), notes); err != nil {
		t.Fatalf("writeMeasure failed: %v", err)
	}
	want := "\n// Measure 0\n1000\n1000\n1000\n1000"
	if buf.String() != want {
		t.Errorf("unexpected measure output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteMeasureEighthNotes(t *testing.T) {
	notes := []chart.Note{
		note(chart.KindHit, 0, 0),
		note(chart.KindHit, 0.5, 1),
	}
	var buf bytes.Buffer
	if err := writeMeasure(&buf, 4, 1, beat.FromNum(0), notes); err != nil {
		t.Fatalf("writeMeasure failed: %v", err)
	}
	// 8 rows: the half-beat note forces 2 rows per beat, no more.
	want := ",\n// Measure 1\n1000\n0100\n0000\n0000\n0000\n0000\n0000\n0000"
	if buf.String() != want {
		t.Errorf("unexpected measure output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteMeasureTriplets(t *testing.T) {
	// A note one third of the way into a beat needs rows in thirds.
	notes := []chart.Note{
		note(chart.KindHit, 0, 0),
		{Kind: chart.KindHit, Beat: beat.FromFrac(16), Key: 1},
	}
	var buf bytes.Buffer
	if err := writeMeasure(&buf, 2, 0, beat.FromNum(0), notes); err != nil {
		t.Fatalf("writeMeasure failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	// Header line plus 4*3 rows.
	if len(lines) != 1+1+12 {
		t.Fatalf("expected 12 rows, got %d lines: %q", len(lines), buf.String())
	}
	if lines[2] != "10" || lines[3] != "01" {
		t.Errorf("unexpected rows: %q", lines[2:5])
	}
}

func TestWriteMeasureDenominatorMinimality(t *testing.T) {
	// Every power-of-(2,3) divisor of the grid shows up as exactly the
	// row count its finest note demands.
	divisors := []int{1, 2, 3, 4, 6, 8, 12, 16, 24, 48}
	for _, rowsPerBeat := range divisors {
		notes := []chart.Note{
			note(chart.KindHit, 0, 0),
			{Kind: chart.KindHit, Beat: beat.FromFrac(beat.FixedPoint / rowsPerBeat), Key: 0},
		}
		var buf bytes.Buffer
		if err := writeMeasure(&buf, 1, 0, beat.FromNum(0), notes); err != nil {
			t.Fatalf("rowsPerBeat %d: %v", rowsPerBeat, err)
		}
		gotRows := strings.Count(buf.String(), "\n") - 1
		if gotRows != 4*rowsPerBeat {
			t.Errorf("rowsPerBeat %d: got %d rows, want %d", rowsPerBeat, gotRows, 4*rowsPerBeat)
		}
	}
}

func TestWriteMeasureEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMeasure(&buf, 4, 0, beat.FromNum(0), nil); err != nil {
		t.Fatalf("writeMeasure failed: %v", err)
	}
	want := "\n// Measure 0\n0000\n0000\n0000\n0000"
	if buf.String() != want {
		t.Errorf("unexpected empty measure:\n%q", buf.String())
	}
}

func TestWriteMeasureErrors(t *testing.T) {
	var buf bytes.Buffer

	early := []chart.Note{note(chart.KindHit, 1, 0)}
	if err := writeMeasure(&buf, 4, 0, beat.FromNum(4), early); err == nil {
		t.Error("expected error for note before measure start")
	}

	far := []chart.Note{note(chart.KindHit, 0, 0), note(chart.KindHit, 5, 0)}
	if err := writeMeasure(&buf, 4, 0, beat.FromNum(0), far); err == nil {
		t.Error("expected error for more than one measure in buffer")
	}

	badKey := []chart.Note{note(chart.KindHit, 0, 7)}
	if err := writeMeasure(&buf, 4, 0, beat.FromNum(0), badKey); err == nil {
		t.Error("expected error for out-of-range key")
	}
}

func TestWriteNoteDataFlushesEmptyMeasures(t *testing.T) {
	c := goldenChart()
	c.Notes = []chart.Note{note(chart.KindHit, 9, 0)} // measure 2
	var buf bytes.Buffer
	if err := writeNoteData(&buf, c); err != nil {
		t.Fatalf("writeNoteData failed: %v", err)
	}
	out := buf.String()
	for _, header := range []string{"// Measure 0", "// Measure 1", "// Measure 2"} {
		if !strings.Contains(out, header) {
			t.Errorf("missing %q in output:\n%s", header, out)
		}
	}
	if strings.Count(out, ",") != 2 {
		t.Errorf("expected 2 measure separators, got %d", strings.Count(out, ","))
	}
}

func TestWriteRejectsNonUTF8Paths(t *testing.T) {
	c := goldenChart()
	c.Music = string([]byte{0xff, 0xfe})
	var buf bytes.Buffer
	if err := Write(&buf, []*chart.Chart{c}); err == nil {
		t.Error("expected error for non-utf8 music path")
	}
}

func TestWriteRejectsZeroCharts(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil); err == nil {
		t.Error("expected error for zero charts")
	}
}

func goldenChart() *chart.Chart {
	return &chart.Chart{
		Title:         "Golden Song",
		Artist:        "Fixture Artist",
		Credit:        "stepmix",
		Music:         "audio.mp3",
		Offset:        0,
		BPMs:          []beat.ControlPoint{{Beat: beat.FromNum(0), BeatLen: 0.5}},
		SampleStart:   math.NaN(),
		SampleLen:     math.NaN(),
		DisplayBPM:    chart.SingleBPM(120),
		Gamemode:      chart.DanceSingle,
		Desc:          "fixture",
		Difficulty:    chart.Medium,
		DifficultyNum: 5.2,
		Notes: []chart.Note{
			note(chart.KindHit, 0, 0),
			note(chart.KindHead, 1, 1),
			note(chart.KindTail, 2, 1),
			note(chart.KindHit, 3, 2),
		},
	}
}

func TestWriteGolden(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []*chart.Chart{goldenChart()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	goldenPath := filepath.Join("testdata", "golden.sm")
	if *updateGolden {
		if err := os.WriteFile(goldenPath, buf.Bytes(), 0o644); err != nil {
			t.Fatalf("failed to update golden file: %v", err)
		}
	}
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("failed to read golden file (run with -update-golden?): %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("output does not match golden file\ngot:\n%s\nwant:\n%s", buf.Bytes(), want)
	}
}

func TestWriteDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := Write(&a, []*chart.Chart{goldenChart()}); err != nil {
		t.Fatal(err)
	}
	if err := Write(&b, []*chart.Chart{goldenChart()}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("two writes of the same chart differ")
	}
}
