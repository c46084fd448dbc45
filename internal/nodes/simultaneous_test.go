package nodes

import (
	"testing"

	"github.com/stepmix/varadero/internal/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitSimultaneousCapsBeat(t *testing.T) {
	c := testChart(chart.PumpSingle, []chart.Note{
		hit(0, 0), hit(0, 1), hit(0, 2), hit(0, 3), hit(0, 4),
	})
	limitSimultaneous(c, 3)

	assert.Len(t, c.Notes, 3)
	for _, n := range c.Notes {
		assert.Equal(t, 0, n.Beat.Cmp(c.Notes[0].Beat))
		assert.True(t, n.IsHit())
	}
	require.NoError(t, c.Check())
}

func TestLimitSimultaneousCountsHeldKeys(t *testing.T) {
	// A hold spans beats 0..2; at beat 1 three hits join it.
	c := testChart(chart.PumpSingle, sortNotes([]chart.Note{
		head(0, 0), tail(2, 0),
		hit(1, 1), hit(1, 2), hit(1, 3),
	}))
	limitSimultaneous(c, 2)

	// The held key counts toward the cap, so only one of the three hits
	// survives.
	hits := 0
	for _, n := range c.Notes {
		if n.IsHit() {
			hits++
		}
	}
	assert.Equal(t, 1, hits)
	require.NoError(t, c.Check())
}

func TestLimitSimultaneousReproducible(t *testing.T) {
	build := func() *chart.Chart {
		return testChart(chart.PumpSingle, []chart.Note{
			hit(0, 0), hit(0, 1), hit(0, 2), hit(0, 3), hit(0, 4),
		})
	}
	a, b := build(), build()
	limitSimultaneous(a, 3)
	limitSimultaneous(b, 3)
	assert.Equal(t, a.Notes, b.Notes)
}

func TestLimitSimultaneousLeavesSparseChartsAlone(t *testing.T) {
	notes := []chart.Note{hit(0, 0), hit(1, 1), hit(2, 2)}
	c := testChart(chart.PumpSingle, append([]chart.Note(nil), notes...))
	limitSimultaneous(c, 3)
	assert.Equal(t, notes, c.Notes)
}
