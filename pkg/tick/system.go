// Package tick is the per-line animation runtime: tweens, one-shot timers
// and particles, advanced once for every executed program line.
package tick

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Default clamp bounds for the per-line delta.
const (
	DefaultMinDelta = time.Millisecond
	DefaultMaxDelta = 100 * time.Millisecond
)

// LabelResolver maps a label name to its line index.
type LabelResolver interface {
	ResolveLabel(name string) (int, bool)
}

// LabelResolverFunc adapts a function to LabelResolver.
type LabelResolverFunc func(name string) (int, bool)

func (f LabelResolverFunc) ResolveLabel(name string) (int, bool) { return f(name) }

// System holds the live animation entities and the FIFO of jumps
// requested by fired timers. It is not safe for concurrent use.
type System struct {
	minDelta time.Duration
	maxDelta time.Duration

	tweens    []*Tween
	timers    []*Timer
	particles []*Particle
	jumps     []int

	resolver LabelResolver
	setVar   func(name string, value float64)
	onError  func(err error)
	rng      *rand.Rand
}

// Option configures a System.
type Option func(*System)

// WithDeltaRange sets the clamp bounds applied to every Update.
func WithDeltaRange(minDelta, maxDelta time.Duration) Option {
	return func(s *System) {
		s.minDelta = minDelta
		s.maxDelta = maxDelta
	}
}

// WithResolver sets the label resolver consulted when a timer fires.
func WithResolver(r LabelResolver) Option {
	return func(s *System) {
		s.resolver = r
	}
}

// WithVariableSetter sets the callback tweens write their values through.
func WithVariableSetter(f func(name string, value float64)) Option {
	return func(s *System) {
		s.setVar = f
	}
}

// WithErrorHandler sets the callback for timer diagnostics.
func WithErrorHandler(f func(err error)) Option {
	return func(s *System) {
		s.onError = f
	}
}

// WithRand sets the random source used for particle directions.
func WithRand(r *rand.Rand) Option {
	return func(s *System) {
		s.rng = r
	}
}

// NewSystem creates a System.
//
// Parameters:
//   - opts: functional options; without WithResolver every timer reports
//     its label as unknown
//
// Returns:
//   - *System: an empty runtime with the default 1ms..100ms delta clamp
func NewSystem(opts ...Option) *System {
	s := &System{
		minDelta: DefaultMinDelta,
		maxDelta: DefaultMaxDelta,
		setVar:   func(string, float64) {},
		onError:  func(error) {},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxDelta < s.minDelta {
		s.maxDelta = s.minDelta
	}
	return s
}

// Clamp limits dt to the configured [min, max] range.
func (s *System) Clamp(dt time.Duration) time.Duration {
	return min(max(dt, s.minDelta), s.maxDelta)
}

// Update advances every entity by the clamped dt. Tweens are stepped
// first, then timers, then particles.
func (s *System) Update(dt time.Duration) {
	ms := float64(s.Clamp(dt)) / float64(time.Millisecond)
	s.updateTweens(ms)
	s.updateTimers(ms)
	s.updateParticles(ms)
}

func (s *System) updateTweens(ms float64) {
	live := s.tweens[:0]
	for _, tw := range s.tweens {
		s.setVar(tw.Key, tw.Step(ms))
		if !tw.Done {
			live = append(live, tw)
		}
	}
	clear(s.tweens[len(live):])
	s.tweens = live
}

func (s *System) updateTimers(ms float64) {
	for _, tm := range s.timers {
		if tm.Fired {
			continue
		}
		tm.Remaining -= ms
		if tm.Remaining > 0 {
			continue
		}
		tm.Fired = true
		s.fire(tm)
	}
}

func (s *System) fire(tm *Timer) {
	if s.resolver != nil {
		if idx, ok := s.resolver.ResolveLabel(tm.Label); ok {
			s.jumps = append(s.jumps, idx)
			return
		}
	}
	s.onError(fmt.Errorf("timer label not found: %s", tm.Label))
}

func (s *System) updateParticles(ms float64) {
	live := s.particles[:0]
	for _, p := range s.particles {
		p.step(ms)
		if p.Life > 0 {
			live = append(live, p)
		}
	}
	clear(s.particles[len(live):])
	s.particles = live
}

// AddTween starts animating key from start to end over d. The duration is
// at least one millisecond; unknown easing names behave as linear.
func (s *System) AddTween(key string, start, end float64, d time.Duration, easing string) *Tween {
	ease, _ := Easing(easing)
	tw := &Tween{
		Key:      key,
		Start:    start,
		End:      end,
		Duration: max(1, float64(d)/float64(time.Millisecond)),
		Easing:   easing,
		Value:    start,
		ease:     ease,
	}
	s.tweens = append(s.tweens, tw)
	return tw
}

// AddTimer schedules label to be queued after d. Negative delays fire on
// the next Update.
func (s *System) AddTimer(d time.Duration, label string) *Timer {
	tm := &Timer{
		Remaining: max(0, float64(d)/float64(time.Millisecond)),
		Label:     label,
	}
	s.timers = append(s.timers, tm)
	return tm
}

// Emit spawns count particles at (x, y), each moving at speed along a
// uniformly random direction and living for life.
func (s *System) Emit(x, y float64, count int, life time.Duration, speed float64, color string, size float64) {
	if color == "" {
		color = DefaultParticleColor
	}
	if size <= 0 {
		size = DefaultParticleSize
	}
	ms := float64(life) / float64(time.Millisecond)
	for i := 0; i < count; i++ {
		angle := s.rng.Float64() * 2 * math.Pi
		s.particles = append(s.particles, &Particle{
			X:     x,
			Y:     y,
			VX:    speed * math.Cos(angle),
			VY:    speed * math.Sin(angle),
			Life:  ms,
			Color: color,
			Size:  size,
		})
	}
}

// NextJump pops the oldest queued timer jump.
func (s *System) NextJump() (int, bool) {
	if len(s.jumps) == 0 {
		return 0, false
	}
	idx := s.jumps[0]
	s.jumps = s.jumps[1:]
	return idx, true
}

// PendingJumps returns the number of queued jumps.
func (s *System) PendingJumps() int { return len(s.jumps) }

// Tweens returns the active tweens.
func (s *System) Tweens() []*Tween { return s.tweens }

// Timers returns every timer, fired or not.
func (s *System) Timers() []*Timer { return s.timers }

// Particles returns a copy of the live particles.
func (s *System) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	for i, p := range s.particles {
		out[i] = *p
	}
	return out
}

// Reset discards every entity and queued jump.
func (s *System) Reset() {
	s.tweens = nil
	s.timers = nil
	s.particles = nil
	s.jumps = nil
}
