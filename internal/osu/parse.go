// Package osu parses the subset of `.osu` beatmap files needed to build
// charts: metadata, uninherited timing points and mania hit objects.
package osu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
)

// ErrNotMania marks beatmaps of a game mode this converter cannot ingest.
var ErrNotMania = errors.New("beatmap is not an osu!mania map")

const maniaMode = 3

// TimingPoint is an uninherited (red-line) timing point: a tempo anchor.
type TimingPoint struct {
	// Time in milliseconds.
	Time float64
	// BeatLen in milliseconds per beat.
	BeatLen float64
}

// HitObject is a mania note: a hit, or a hold with an end time.
type HitObject struct {
	X       int
	Time    float64
	EndTime float64
	Hold    bool
}

// Beatmap is the parsed subset of a `.osu` file.
type Beatmap struct {
	AudioFilename string
	PreviewTime   float64 // milliseconds; negative when unset
	Title         string
	TitleUnicode  string
	Artist        string
	ArtistUnicode string
	Creator       string
	Version       string
	Source        string
	Mode          int
	CircleSize    float64 // keycount in mania
	Background    string
	TimingPoints  []TimingPoint
	HitObjects    []HitObject
}

// ParseFile reads and parses a `.osu` beatmap.
func ParseFile(path string) (*Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bm, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bm, nil
}

// Parse parses a `.osu` beatmap from a reader.
func Parse(r io.Reader) (*Beatmap, error) {
	bm := &Beatmap{PreviewTime: -1}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		var err error
		switch section {
		case "General", "Metadata", "Difficulty":
			err = bm.parseKeyValue(line)
		case "Events":
			bm.parseEvent(line)
		case "TimingPoints":
			err = bm.parseTimingPoint(line)
		case "HitObjects":
			err = bm.parseHitObject(line)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(bm.TimingPoints) == 0 {
		return nil, fmt.Errorf("beatmap has no uninherited timing points")
	}
	sort.SliceStable(bm.TimingPoints, func(i, j int) bool {
		return bm.TimingPoints[i].Time < bm.TimingPoints[j].Time
	})
	sort.SliceStable(bm.HitObjects, func(i, j int) bool {
		return bm.HitObjects[i].Time < bm.HitObjects[j].Time
	})
	return bm, nil
}

func (bm *Beatmap) parseKeyValue(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "AudioFilename":
		bm.AudioFilename = value
	case "PreviewTime":
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			bm.PreviewTime = f
		}
	case "Mode":
		mode, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid Mode %q", value)
		}
		bm.Mode = mode
	case "Title":
		bm.Title = value
	case "TitleUnicode":
		bm.TitleUnicode = value
	case "Artist":
		bm.Artist = value
	case "ArtistUnicode":
		bm.ArtistUnicode = value
	case "Creator":
		bm.Creator = value
	case "Version":
		bm.Version = value
	case "Source":
		bm.Source = value
	case "CircleSize":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CircleSize %q", value)
		}
		bm.CircleSize = f
	}
	return nil
}

// parseEvent extracts the background image from the events section.
// Format: `0,0,"bg.jpg",0,0`.
func (bm *Beatmap) parseEvent(line string) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 || fields[0] != "0" {
		return
	}
	bm.Background = strings.Trim(fields[2], `"`)
}

func (bm *Beatmap) parseTimingPoint(line string) error {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return fmt.Errorf("invalid timing point %q", line)
	}
	time, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	beatLen, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err1 != nil || err2 != nil {
		return fmt.Errorf("invalid timing point %q", line)
	}
	// Negative beat lengths are inherited (green-line) points: slider
	// velocity only, no tempo information.
	if beatLen <= 0 {
		return nil
	}
	bm.TimingPoints = append(bm.TimingPoints, TimingPoint{Time: time, BeatLen: beatLen})
	return nil
}

func (bm *Beatmap) parseHitObject(line string) error {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return fmt.Errorf("invalid hit object %q", line)
	}
	x, err1 := strconv.Atoi(strings.TrimSpace(fields[0]))
	time, err2 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	typ, err3 := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("invalid hit object %q", line)
	}
	switch {
	case typ&1 != 0:
		bm.HitObjects = append(bm.HitObjects, HitObject{X: x, Time: time})
	case typ&128 != 0:
		if len(fields) < 6 {
			return fmt.Errorf("hold note without end time: %q", line)
		}
		endStr, _, _ := strings.Cut(fields[5], ":")
		end, err := strconv.ParseFloat(strings.TrimSpace(endStr), 64)
		if err != nil {
			return fmt.Errorf("invalid hold end time %q", line)
		}
		bm.HitObjects = append(bm.HitObjects, HitObject{X: x, Time: time, EndTime: end, Hold: true})
	}
	return nil
}

// KeyCount returns the mania keycount of the beatmap.
func (bm *Beatmap) KeyCount() int {
	return int(bm.CircleSize)
}

// key maps a mania hit object's X coordinate onto its column.
func (bm *Beatmap) key(x int) int {
	k := x * bm.KeyCount() / 512
	if k < 0 {
		k = 0
	}
	if k >= bm.KeyCount() {
		k = bm.KeyCount() - 1
	}
	return k
}

// timeToBeat converts milliseconds to a beat position by walking the
// uninherited timing points. Beat 0 is the first timing point.
type timeToBeat struct {
	points  []TimingPoint
	curIdx  int
	curBeat float64
}

func (t *timeToBeat) beatAt(timeMs float64) float64 {
	for t.curIdx+1 < len(t.points) {
		cur := t.points[t.curIdx]
		next := t.points[t.curIdx+1]
		if timeMs < next.Time {
			break
		}
		t.curBeat += (next.Time - cur.Time) / cur.BeatLen
		t.curIdx++
	}
	cur := t.points[t.curIdx]
	return t.curBeat + (timeMs-cur.Time)/cur.BeatLen
}

// ToChart converts the beatmap into a chart on the fixed beat grid.
// Non-mania beatmaps return ErrNotMania.
func (bm *Beatmap) ToChart() (*chart.Chart, error) {
	if bm.Mode != maniaMode {
		return nil, ErrNotMania
	}
	gm, err := chart.ManiaGamemode(bm.KeyCount())
	if err != nil {
		return nil, err
	}

	first := bm.TimingPoints[0]
	bpms := make([]beat.ControlPoint, 0, len(bm.TimingPoints))
	mapper := &timeToBeat{points: bm.TimingPoints}
	for _, tp := range bm.TimingPoints {
		bpms = append(bpms, beat.ControlPoint{
			Beat:    beat.FromNum(mapper.beatAt(tp.Time)),
			BeatLen: tp.BeatLen / 1000,
		})
	}

	mapper = &timeToBeat{points: bm.TimingPoints}
	notes := make([]chart.Note, 0, len(bm.HitObjects))
	for _, obj := range bm.HitObjects {
		key := bm.key(obj.X)
		startBeat := beat.FromNum(mapper.beatAt(obj.Time))
		if !obj.Hold {
			notes = append(notes, chart.Note{Kind: chart.KindHit, Beat: startBeat, Key: key})
			continue
		}
		endBeat := beat.FromNum((&timeToBeat{points: bm.TimingPoints}).beatAt(obj.EndTime))
		if endBeat.Cmp(startBeat) <= 0 {
			// Degenerate hold; keep it as a hit.
			notes = append(notes, chart.Note{Kind: chart.KindHit, Beat: startBeat, Key: key})
			continue
		}
		notes = append(notes,
			chart.Note{Kind: chart.KindHead, Beat: startBeat, Key: key},
			chart.Note{Kind: chart.KindTail, Beat: endBeat, Key: key},
		)
	}
	sort.SliceStable(notes, func(i, j int) bool {
		if c := notes[i].Beat.Cmp(notes[j].Beat); c != 0 {
			return c < 0
		}
		return notes[i].Key < notes[j].Key
	})

	title := bm.TitleUnicode
	if title == "" {
		title = bm.Title
	}
	artist := bm.ArtistUnicode
	if artist == "" {
		artist = bm.Artist
	}

	c := &chart.Chart{
		Title:       title,
		Artist:      artist,
		TitleTrans:  bm.Title,
		ArtistTrans: bm.Artist,
		Genre:       bm.Source,
		Credit:      bm.Creator,
		Background:  bm.Background,
		Music:       bm.AudioFilename,
		Offset:      -first.Time / 1000,
		BPMs:        bpms,
		SampleStart: math.NaN(),
		SampleLen:   math.NaN(),
		Gamemode:    gm,
		Desc:        bm.Version,
	}
	if bm.PreviewTime >= 0 {
		c.SampleStart = bm.PreviewTime / 1000
		c.SampleLen = 12
	}
	c.DisplayBPM = displayBPM(bpms)
	c.Notes = dedupeNotes(notes)
	c.FixTails()
	c.DifficultyNum = c.NaiveDifficulty()
	c.Difficulty = difficultyFor(c.DifficultyNum)
	return c, nil
}

// dedupeNotes drops non-tail notes that rounded onto an occupied cell.
func dedupeNotes(notes []chart.Note) []chart.Note {
	kept := notes[:0]
	for _, n := range notes {
		if !n.IsTail() && len(kept) > 0 {
			prev := kept[len(kept)-1]
			if !prev.IsTail() && prev.Beat.Cmp(n.Beat) == 0 && prev.Key == n.Key {
				continue
			}
		}
		kept = append(kept, n)
	}
	return kept
}

func displayBPM(bpms []beat.ControlPoint) chart.DisplayBPM {
	lo, hi := bpms[0].BPM(), bpms[0].BPM()
	for _, cp := range bpms[1:] {
		lo = math.Min(lo, cp.BPM())
		hi = math.Max(hi, cp.BPM())
	}
	if hi-lo < 0.001 {
		return chart.SingleBPM(hi)
	}
	return chart.RangeBPM(lo, hi)
}

func difficultyFor(num float64) chart.Difficulty {
	switch {
	case num < 2:
		return chart.Beginner
	case num < 4:
		return chart.Easy
	case num < 7:
		return chart.Medium
	case num < 10:
		return chart.Hard
	default:
		return chart.Challenge
	}
}
