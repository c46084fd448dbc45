package osu

import (
	"strings"
	"testing"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBeatmap = `osu file format v14

[General]
AudioFilename: audio.mp3
PreviewTime: 5000
Mode: 3

[Metadata]
Title:Romanized Title
TitleUnicode:Unicode Title
Artist:Some Artist
ArtistUnicode:Some Artist
Creator:mapper
Version:4K Hyper
Source:some game

[Difficulty]
CircleSize:4

[Events]
0,0,"bg.jpg",0,0

[TimingPoints]
1000,500,4,2,0,100,1,0
9000,-100,4,2,0,100,0,0
17000,250,4,2,0,100,1,0

[HitObjects]
64,192,1000,1,0,0:0:0:0:
192,192,1500,1,0,0:0:0:0:
320,192,2000,128,0,3000:0:0:0:0:
448,192,17000,1,0,0:0:0:0:
`

func TestParse(t *testing.T) {
	bm, err := Parse(strings.NewReader(sampleBeatmap))
	require.NoError(t, err)

	assert.Equal(t, "audio.mp3", bm.AudioFilename)
	assert.Equal(t, 3, bm.Mode)
	assert.Equal(t, 4, bm.KeyCount())
	assert.Equal(t, "Unicode Title", bm.TitleUnicode)
	assert.Equal(t, "bg.jpg", bm.Background)
	// The inherited (negative) timing point is dropped.
	require.Len(t, bm.TimingPoints, 2)
	assert.InDelta(t, 500.0, bm.TimingPoints[0].BeatLen, 1e-9)
	require.Len(t, bm.HitObjects, 4)
	assert.True(t, bm.HitObjects[2].Hold)
	assert.InDelta(t, 3000.0, bm.HitObjects[2].EndTime, 1e-9)
}

func TestToChart(t *testing.T) {
	bm, err := Parse(strings.NewReader(sampleBeatmap))
	require.NoError(t, err)
	c, err := bm.ToChart()
	require.NoError(t, err)

	assert.Equal(t, chart.DanceSingle, c.Gamemode)
	assert.Equal(t, "Unicode Title", c.Title)
	assert.Equal(t, "Romanized Title", c.TitleTrans)
	assert.Equal(t, "mapper", c.Credit)
	assert.Equal(t, "4K Hyper", c.Desc)
	assert.InDelta(t, -1.0, c.Offset, 1e-9)
	assert.InDelta(t, 5.0, c.SampleStart, 1e-9)

	// 120 BPM then 240 BPM.
	require.Len(t, c.BPMs, 2)
	assert.InDelta(t, 120.0, c.BPMs[0].BPM(), 1e-9)
	assert.InDelta(t, 240.0, c.BPMs[1].BPM(), 1e-9)
	assert.Equal(t, chart.DisplayRange, c.DisplayBPM.Kind)

	// hit@1000ms -> beat 0, hit@1500 -> beat 1, hold 2000..3000 -> beats
	// 2..4, hit@17000 -> beat 32 (16000ms at 500ms per beat).
	require.Len(t, c.Notes, 5)
	assert.Equal(t, 0, c.Notes[0].Beat.Frac())
	assert.Equal(t, 0, c.Notes[0].Key)
	assert.Equal(t, 48, c.Notes[1].Beat.Frac())
	assert.Equal(t, byte(chart.KindHead), c.Notes[2].Kind)
	assert.Equal(t, 2*48, c.Notes[2].Beat.Frac())
	assert.Equal(t, byte(chart.KindTail), c.Notes[3].Kind)
	assert.Equal(t, 4*48, c.Notes[3].Beat.Frac())
	assert.Equal(t, 32*48, c.Notes[4].Beat.Frac())
	assert.Equal(t, 3, c.Notes[4].Key)

	require.NoError(t, c.Check())
}

func TestToChartRejectsNonMania(t *testing.T) {
	standard := strings.Replace(sampleBeatmap, "Mode: 3", "Mode: 0", 1)
	bm, err := Parse(strings.NewReader(standard))
	require.NoError(t, err)
	_, err = bm.ToChart()
	assert.ErrorIs(t, err, ErrNotMania)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("osu file format v14\n[TimingPoints]\nnot,numbers\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("osu file format v14\n"))
	assert.Error(t, err, "no timing points")
}
