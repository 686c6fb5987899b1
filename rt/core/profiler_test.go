package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfilerCountsAndReset(t *testing.T) {
	p := NewProfiler()
	p.BeginScope("frame")
	p.BeginScope("frame")
	p.EndScope("frame")
	p.Add(StatDraws, 3)
	p.Add(StatDraws, 2)

	assert.Equal(t, []string{"frame"}, p.Order)
	assert.Equal(t, 5, p.Count(StatDraws))

	out := p.GetStatsString()
	assert.Contains(t, out, "frame")
	assert.True(t, strings.Contains(out, StatDraws), out)

	p.Reset()
	assert.Zero(t, p.Count(StatDraws))
	assert.Equal(t, []string{"frame"}, p.Order, "order survives reset")
}

func TestNilProfilerIgnoresCalls(t *testing.T) {
	var p *Profiler
	p.BeginScope("x")
	p.EndScope("x")
	p.Add(StatDraws, 1)
	assert.Zero(t, p.Count(StatDraws))
}
