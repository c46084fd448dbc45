// Package encoder serializes charts to the `.sm` stepped-chart format:
// a directive header followed by one #NOTES block per chart, with notes
// laid out as measure rows on the fixed beat grid.
package encoder

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
)

// BeatsInMeasure is forced to 4 by the simfile format.
const BeatsInMeasure = 4

// WriteFile serializes the charts into a simfile at path. The header is
// taken from the first chart; every chart contributes a #NOTES block.
func WriteFile(path string, charts []*chart.Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create simfile: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Write(w, charts); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write serializes the charts as a simfile.
func Write(w io.Writer, charts []*chart.Chart) error {
	if len(charts) == 0 {
		return fmt.Errorf("zero charts supplied")
	}
	if err := writeHeader(w, charts[0]); err != nil {
		return err
	}
	for _, c := range charts {
		if err := writeChartBlock(w, c); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, c *chart.Chart) error {
	paths := [...]struct{ name, value string }{
		{"BANNER", c.Banner},
		{"BACKGROUND", c.Background},
		{"LYRICSPATH", c.Lyrics},
		{"CDTITLE", c.CDTitle},
		{"MUSIC", c.Music},
	}
	for _, p := range paths {
		if !utf8.ValidString(p.value) {
			return fmt.Errorf("non-utf8 %s path", p.name)
		}
	}

	var bpms strings.Builder
	for i, cp := range c.BPMs {
		if i > 0 {
			bpms.WriteByte(',')
		}
		fmt.Fprintf(&bpms, "%s=%s", cp.Beat, formatNum(cp.BPM()))
	}
	var stops strings.Builder
	for i, stop := range c.Stops {
		if i > 0 {
			stops.WriteByte(',')
		}
		fmt.Fprintf(&stops, "%s=%s", stop.Beat, formatNum(stop.Len))
	}

	_, err := fmt.Fprintf(w, `// Converted with stepmix
#TITLE:%s;
#SUBTITLE:%s;
#ARTIST:%s;
#TITLETRANSLIT:%s;
#SUBTITLETRANSLIT:%s;
#ARTISTTRANSLIT:%s;
#GENRE:%s;
#CREDIT:%s;
#BANNER:%s;
#BACKGROUND:%s;
#LYRICSPATH:%s;
#CDTITLE:%s;
#MUSIC:%s;
#OFFSET:%s;
#SAMPLESTART:%s;
#SAMPLELENGTH:%s;
#DISPLAYBPM:%s;
#SELECTABLE:YES;
#BPMS:%s;
#STOPS:%s;
#BGCHANGES:;
#KEYSOUNDS:;
#ATTACKS:;
`,
		c.Title, c.Subtitle, c.Artist,
		c.TitleTrans, c.SubtitleTrans, c.ArtistTrans,
		c.Genre, c.Credit,
		c.Banner, c.Background, c.Lyrics, c.CDTitle, c.Music,
		formatNum(c.Offset),
		formatOptional(c.SampleStart),
		formatOptional(c.SampleLen),
		c.DisplayBPM,
		bpms.String(), stops.String(),
	)
	return err
}

func writeChartBlock(w io.Writer, c *chart.Chart) error {
	_, err := fmt.Fprintf(w, `
#NOTES:
    %s:
    %s:
    %s:
    %d:
    %s, %s, %s, %s, %s:`,
		c.Gamemode.ID(),
		c.Desc,
		c.Difficulty.Name(),
		int(math.Round(c.DifficultyNum)),
		formatNum(c.Radar[0]), formatNum(c.Radar[1]), formatNum(c.Radar[2]),
		formatNum(c.Radar[3]), formatNum(c.Radar[4]),
	)
	if err != nil {
		return err
	}
	if err := writeNoteData(w, c); err != nil {
		return err
	}
	_, err = io.WriteString(w, ";")
	return err
}

func writeNoteData(w io.Writer, c *chart.Chart) error {
	keyCount := c.Gamemode.KeyCount()
	measureLen := beat.FromNum(BeatsInMeasure)
	measureIdx := 0
	firstNote := 0
	startBeat := beat.Pos{}
	for noteIdx, note := range c.Notes {
		// Flush measures the notes have moved past.
		for note.Beat.Sub(startBeat).Cmp(measureLen) >= 0 {
			if err := writeMeasure(w, keyCount, measureIdx, startBeat, c.Notes[firstNote:noteIdx]); err != nil {
				return err
			}
			measureIdx++
			firstNote = noteIdx
			startBeat = startBeat.Add(measureLen)
		}
	}
	return writeMeasure(w, keyCount, measureIdx, startBeat, c.Notes[firstNote:])
}

// writeMeasure emits one measure's rows, using the smallest row count that
// represents every note offset exactly: the denominator is FixedPoint
// divided by the largest 2^a*3^b that divides FixedPoint and every
// relative note offset.
func writeMeasure(w io.Writer, keyCount, measureIdx int, measureStart beat.Pos, notes []chart.Note) error {
	simplifyBy := beat.FixedPoint
	if len(notes) > 0 {
		maxExp := [2]int{math.MaxInt, math.MaxInt}
		for _, note := range notes {
			relPos := note.Beat.Sub(measureStart)
			if relPos.Cmp(beat.Pos{}) < 0 {
				return fmt.Errorf("note at beat %v starts before its measure (%v)", note.Beat, measureStart)
			}
			exp := factorDenominator(relPos.Frac())
			maxExp[0] = min(maxExp[0], exp[0])
			maxExp[1] = min(maxExp[1], exp[1])
		}
		simplifyBy = pow(2, maxExp[0]) * pow(3, maxExp[1])
	}
	rowsPerBeat := beat.FixedPoint / simplifyBy
	rows := BeatsInMeasure * rowsPerBeat

	cells := make([]byte, rows*keyCount)
	for i := range cells {
		cells[i] = '0'
	}
	for _, note := range notes {
		relPos := note.Beat.Sub(measureStart)
		if relPos.Frac()%simplifyBy != 0 {
			return fmt.Errorf("incorrect simplify_by (%v %% %d == %d != 0)", relPos, simplifyBy, relPos.Frac()%simplifyBy)
		}
		row := relPos.Frac() / simplifyBy
		if row >= rows {
			return fmt.Errorf("more than one measure in flush buffer (rel_pos = %v out of max %d)", relPos, rows)
		}
		if note.Key < 0 || note.Key >= keyCount {
			return fmt.Errorf("note key %d outside range [0, %d)", note.Key, keyCount)
		}
		cells[row*keyCount+note.Key] = note.Kind
	}

	var sb strings.Builder
	if measureIdx > 0 {
		sb.WriteByte(',')
	}
	fmt.Fprintf(&sb, "\n// Measure %d", measureIdx)
	for row := 0; row < rows; row++ {
		sb.WriteByte('\n')
		sb.Write(cells[row*keyCount : (row+1)*keyCount])
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// factorDenominator counts how many 2s and 3s can be divided out of both
// frac and FixedPoint.
func factorDenominator(frac int) [2]int {
	den := beat.FixedPoint
	var exp [2]int
	for i, factor := range []int{2, 3} {
		for frac%factor == 0 && den%factor == 0 {
			frac /= factor
			den /= factor
			exp[i]++
		}
	}
	return exp
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatOptional renders unset (NaN) numeric fields as the empty string.
func formatOptional(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return formatNum(f)
}
