// Package profile reports how long each stage of the pipeline took.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hokaccha/go-prettyjson"
)

// Pipeline holds per-stage wall clock timings in nanoseconds.
type Pipeline struct {
	LexNs     uint64 `json:"lex_ns"`
	ParseNs   uint64 `json:"parse_ns"`
	CompileNs uint64 `json:"compile_ns"`
	ExecuteNs uint64 `json:"vm_execute_ns"`
	FormatNs  uint64 `json:"format_ns"`
	TotalNs   uint64 `json:"total_ns"`
}

// Stage is one named timing within a Pipeline.
type Stage struct {
	Name string
	Ns   uint64
}

// Stages returns the timings in pipeline order, excluding the total.
func (p Pipeline) Stages() []Stage {
	return []Stage{
		{"Lex", p.LexNs},
		{"Parse", p.ParseNs},
		{"Compile", p.CompileNs},
		{"VM Execute", p.ExecuteNs},
		{"Format", p.FormatNs},
	}
}

// Percent returns ns as a percentage of the total.
func (p Pipeline) Percent(ns uint64) float64 {
	if p.TotalNs == 0 {
		return 0
	}
	return float64(ns) / float64(p.TotalNs) * 100
}

// Consistent reports whether the stage timings sum to within 5% of the
// total.
func (p Pipeline) Consistent() bool {
	var sum uint64
	for _, s := range p.Stages() {
		sum += s.Ns
	}
	diff := math.Abs(float64(sum) - float64(p.TotalNs))
	return diff <= float64(p.TotalNs)*0.05
}

// Table renders the timings as a box-drawn table.
func (p Pipeline) Table() string {
	var b strings.Builder
	b.WriteString("Stage Breakdown:\n")
	b.WriteString("┌──────────────┬──────────┬──────────┐\n")
	b.WriteString("│ Stage        │ Time(ns) │ Percent  │\n")
	b.WriteString("├──────────────┼──────────┼──────────┤\n")
	for _, s := range p.Stages() {
		fmt.Fprintf(&b, "│ %-12s │ %8d │ %6.2f%%  │\n", s.Name, s.Ns, p.Percent(s.Ns))
	}
	b.WriteString("├──────────────┼──────────┼──────────┤\n")
	fmt.Fprintf(&b, "│ %-12s │ %8d │ %6.2f%%  │\n", "TOTAL", p.TotalNs, 100.0)
	b.WriteString("└──────────────┴──────────┴──────────┘\n")
	return b.String()
}

// JSON renders the timings as indented JSON, colorized when color is true.
func (p Pipeline) JSON(color bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if color {
		data, err = prettyjson.Marshal(p)
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Timer measures consecutive pipeline stages.
type Timer struct {
	start time.Time
	last  time.Time
}

// Start returns a Timer whose first lap begins now.
func Start() *Timer {
	now := time.Now()
	return &Timer{start: now, last: now}
}

// Lap returns the nanoseconds elapsed since the previous lap.
func (t *Timer) Lap() uint64 {
	now := time.Now()
	elapsed := now.Sub(t.last)
	t.last = now
	return uint64(elapsed.Nanoseconds())
}

// Total returns the nanoseconds elapsed since Start, measured to the most
// recent lap.
func (t *Timer) Total() uint64 {
	return uint64(t.last.Sub(t.start).Nanoseconds())
}
