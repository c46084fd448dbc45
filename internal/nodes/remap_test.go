package nodes

import (
	"testing"

	"github.com/stepmix/varadero/internal/beat"
	"github.com/stepmix/varadero/internal/chart"
	"github.com/stepmix/varadero/internal/keyalloc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChart(gm chart.Gamemode, notes []chart.Note) *chart.Chart {
	return &chart.Chart{
		Title:      "Test Song",
		TitleTrans: "Test Song",
		Music:      "audio.mp3",
		Desc:       "test",
		BPMs:       []beat.ControlPoint{{Beat: beat.FromNum(0), BeatLen: 0.5}},
		Gamemode:   gm,
		Notes:      notes,
	}
}

func hit(b float64, key int) chart.Note {
	return chart.Note{Kind: chart.KindHit, Beat: beat.FromNum(b), Key: key}
}

func head(b float64, key int) chart.Note {
	return chart.Note{Kind: chart.KindHead, Beat: beat.FromNum(b), Key: key}
}

func tail(b float64, key int) chart.Note {
	return chart.Note{Kind: chart.KindTail, Beat: beat.FromNum(b), Key: key}
}

func TestConvertAvoidShuffleKeepsNotes(t *testing.T) {
	c := testChart(chart.DanceSingle, []chart.Note{hit(0, 0), hit(1, 1)})
	orig := append([]chart.Note(nil), c.Notes...)

	require.NoError(t, convert(c, chart.DanceSingle, true, keyalloc.DefaultWeightCurve))
	assert.Equal(t, orig, c.Notes)
	assert.Equal(t, chart.DanceSingle, c.Gamemode)

	// Same-keycount retarget only swaps the gamemode.
	c2 := testChart(chart.DanceSingle, []chart.Note{hit(0, 0), hit(1, 1)})
	require.NoError(t, convert(c2, chart.ManiaxSingle, true, keyalloc.DefaultWeightCurve))
	assert.Equal(t, orig, c2.Notes)
	assert.Equal(t, chart.ManiaxSingle, c2.Gamemode)
}

func TestConvertPreservesHolds(t *testing.T) {
	c := testChart(chart.DanceSingle, []chart.Note{head(0, 0), tail(1, 0), hit(2, 1)})
	require.NoError(t, convert(c, chart.PumpSingle, true, keyalloc.DefaultWeightCurve))

	require.Len(t, c.Notes, 3)
	assert.Equal(t, chart.PumpSingle, c.Gamemode)
	assert.Equal(t, byte(chart.KindHead), c.Notes[0].Kind)
	assert.Equal(t, byte(chart.KindTail), c.Notes[1].Kind)
	assert.Equal(t, c.Notes[0].Key, c.Notes[1].Key, "head and tail must land on the same key")
	assert.Equal(t, 1, c.Notes[1].Beat.Cmp(c.Notes[0].Beat), "tail must come after its head")
	require.NoError(t, c.Check())
}

func TestConvertHoldIntegrityOnBusyChart(t *testing.T) {
	var notes []chart.Note
	for i := 0; i < 16; i++ {
		b := float64(i)
		notes = append(notes, head(b, i%4), hit(b, (i+1)%4), tail(b+0.5, i%4))
	}
	c := testChart(chart.DanceSingle, sortNotes(notes))
	require.NoError(t, c.Check())

	require.NoError(t, convert(c, chart.PumpDouble, true, keyalloc.DefaultWeightCurve))
	assert.Equal(t, chart.PumpDouble, c.Gamemode)
	require.NoError(t, c.Check())
}

func TestConvertDeterministic(t *testing.T) {
	build := func() *chart.Chart {
		var notes []chart.Note
		for i := 0; i < 32; i++ {
			notes = append(notes, hit(float64(i)*0.5, i%4))
		}
		return testChart(chart.DanceSingle, notes)
	}
	a, b := build(), build()
	require.NoError(t, convert(a, chart.PumpSingle, true, keyalloc.DefaultWeightCurve))
	require.NoError(t, convert(b, chart.PumpSingle, true, keyalloc.DefaultWeightCurve))
	assert.Equal(t, a.Notes, b.Notes)
}

func TestConvertDropsNotesWhenAllKeysLocked(t *testing.T) {
	// Five simultaneous hits cannot fit on three keys: a hit locks its key
	// through the current beat.
	c := testChart(chart.PumpSingle, []chart.Note{
		hit(0, 0), hit(0, 1), hit(0, 2), hit(0, 3), hit(0, 4),
	})
	require.NoError(t, convert(c, chart.DanceThreepanel, true, keyalloc.DefaultWeightCurve))
	assert.Len(t, c.Notes, 3)
	require.NoError(t, c.Check())
}

func TestRemapOrphanTailMatchesLegacyBehavior(t *testing.T) {
	// Four holds squeezed onto three keys: one head is dropped, but its
	// tail survives and releases key 0 via the zero-valued unlock entry.
	c := testChart(chart.DanceSingle, sortNotes([]chart.Note{
		head(0, 0), head(0, 1), head(0, 2), head(0, 3),
		tail(4, 0), tail(4, 1), tail(4, 2), tail(4, 3),
	}))
	require.NoError(t, convert(c, chart.DanceThreepanel, true, keyalloc.DefaultWeightCurve))

	heads, tails := 0, 0
	for _, n := range c.Notes {
		switch {
		case n.IsHead():
			heads++
		case n.IsTail():
			tails++
		}
	}
	assert.Equal(t, 3, heads)
	assert.Equal(t, 4, tails, "the orphaned tail is emitted as-is")
}

func TestBatchConvertClonesAllButLast(t *testing.T) {
	c := testChart(chart.DanceSingle, []chart.Note{hit(0, 0), hit(1, 1)})
	extra, err := batchConvert(c, []chart.Gamemode{chart.PumpSingle, chart.DanceSolo}, true, keyalloc.DefaultWeightCurve)
	require.NoError(t, err)

	require.Len(t, extra, 1)
	assert.Equal(t, chart.PumpSingle, extra[0].Gamemode)
	// The original was mutated in place into the last target.
	assert.Equal(t, chart.DanceSolo, c.Gamemode)
}

func sortNotes(notes []chart.Note) []chart.Note {
	out := append([]chart.Note(nil), notes...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Beat.Cmp(out[j-1].Beat) < 0; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
