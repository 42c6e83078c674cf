package engine

import (
	"fmt"
	"sort"
	"time"
)

type profileEntry struct {
	calls int
	total time.Duration
}

// profiler counts handler calls and their time while PROFILE ON is active.
type profiler struct {
	enabled bool
	entries map[string]*profileEntry
}

func newProfiler() *profiler {
	return &profiler{entries: make(map[string]*profileEntry)}
}

func (p *profiler) reset() {
	p.enabled = false
	clear(p.entries)
}

func (p *profiler) record(key string, d time.Duration) {
	ent, ok := p.entries[key]
	if !ok {
		ent = &profileEntry{}
		p.entries[key] = ent
	}
	ent.calls++
	ent.total += d
}

// report returns one line per command, sorted by name.
func (p *profiler) report() []string {
	if len(p.entries) == 0 {
		return []string{"Profile: no data"}
	}
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		ent := p.entries[k]
		lines = append(lines, fmt.Sprintf("%s: %d calls, %v", k, ent.calls, ent.total))
	}
	return lines
}
