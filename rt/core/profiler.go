package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler counter names used by the batching engine.
const (
	StatDraws           = "draws"
	StatDrawsSkipped    = "draws.skipped"
	StatProgramsCompile = "programs.compiled"
	StatProgramsReused  = "programs.reused"
	StatFlagsPatched    = "flags.patched"
	StatColorsPatched   = "colors.patched"
	StatBytesPatched    = "bytes.patched"
)

// Profiler collects CPU scope timings and monotonically increasing counters.
// It is owned by a single viewer and is not safe for concurrent use.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

func (p *Profiler) BeginScope(name string) {
	if p == nil {
		return
	}
	p.StartTimes[name] = time.Now()
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	if p == nil {
		return
	}
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

// Add increments the named counter. A nil profiler ignores the call.
func (p *Profiler) Add(name string, delta int) {
	if p == nil {
		return
	}
	p.Counts[name] += delta
}

func (p *Profiler) Count(name string) int {
	if p == nil {
		return 0
	}
	return p.Counts[name]
}

// Reset zeroes timings and counters but keeps the scope order.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
	for k := range p.Counts {
		p.Counts[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-18s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-18s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
