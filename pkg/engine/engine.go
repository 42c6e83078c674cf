// Package engine executes TempleCode programs: it dispatches each line to
// the PILOT, BASIC or Logo command table, drives the control-flow stacks
// and reports to the host through sinks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/expr"
	"github.com/zurustar/templecode/pkg/program"
	"github.com/zurustar/templecode/pkg/tick"
)

// Engine defaults.
const (
	DefaultMaxIterations = 10000
	DefaultMaxCallDepth  = 64
)

// Status is the final state of a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusIterationLimit
	StatusStopped
	StatusPaused // not terminal; Continue or Step resumes
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusIterationLimit:
		return "iteration-limit"
	case StatusStopped:
		return "stopped"
	case StatusPaused:
		return "paused"
	}
	return "unknown"
}

// Outcome is returned by Run, Step and Continue.
type Outcome struct {
	Status     Status
	Iterations int
	Line       int // index of the next line to run
	Err        error
}

// RunState is the engine lifecycle state.
type RunState int

const (
	Idle RunState = iota
	Running
	Paused
	Finished
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Engine runs one program. It is not safe for concurrent use except for
// Stop and Pause.
type Engine struct {
	prog  *program.Program
	state *State
	ticks *tick.System
	eval  *expr.Evaluator
	env   *env
	log   *slog.Logger

	out   OutputSink
	in    InputProvider
	gfx   GraphicsSink
	audio AudioSink
	hw    HardwareSink
	store SessionStore
	hooks Hooks

	maxIterations int
	maxDepth      int
	minDelta      time.Duration
	maxDelta      time.Duration
	size          canvas.Size
	debug         bool
	breakpoints   map[int]bool // 0-based line indices

	clock    func() time.Time
	sleep    Sleeper
	rng      *rand.Rand
	start    time.Time
	lastTick time.Time

	runState   RunState
	resumeSkip int
	stepping   bool
	started    bool
	ctx        context.Context
	particles  bool
	profile    *profiler
	stopFlag   atomic.Bool
	pauseFlag  atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithOutput sets the OutputSink.
func WithOutput(out OutputSink) Option {
	return func(e *Engine) {
		e.out = out
	}
}

// WithInput sets the InputProvider.
func WithInput(in InputProvider) Option {
	return func(e *Engine) {
		e.in = in
	}
}

// WithGraphics sets the GraphicsSink.
func WithGraphics(gfx GraphicsSink) Option {
	return func(e *Engine) {
		e.gfx = gfx
	}
}

// WithAudio sets the AudioSink.
func WithAudio(a AudioSink) Option {
	return func(e *Engine) {
		e.audio = a
	}
}

// WithHardware sets the HardwareSink.
func WithHardware(hw HardwareSink) Option {
	return func(e *Engine) {
		e.hw = hw
	}
}

// WithSession sets the SessionStore used by R: SAVE and R: LOAD.
func WithSession(store SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithHooks sets the lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithMaxIterations sets the iteration ceiling.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithMaxCallDepth sets the procedure nesting limit.
func WithMaxCallDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithDeltaRange sets the tick clamp range.
func WithDeltaRange(minDelta, maxDelta time.Duration) Option {
	return func(e *Engine) {
		e.minDelta = minDelta
		e.maxDelta = maxDelta
	}
}

// WithDebug enables breakpoints.
func WithDebug(debug bool) Option {
	return func(e *Engine) {
		e.debug = debug
	}
}

// WithBreakpoints registers breakpoints by 1-based line number.
func WithBreakpoints(lines ...int) Option {
	return func(e *Engine) {
		for _, n := range lines {
			if n > 0 {
				e.breakpoints[n-1] = true
			}
		}
	}
}

// WithClock sets the time source used for ticks and TIMER.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRand sets the random source used by RND, RANDOMIZE and EMIT.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithCanvasSize sets the size used to convert BASIC screen coordinates.
func WithCanvasSize(size canvas.Size) Option {
	return func(e *Engine) {
		if size.Width > 0 && size.Height > 0 {
			e.size = size
		}
	}
}

// WithSleeper replaces the sleeper used by WAIT.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		e.sleep = s
	}
}

// New creates an Engine with an empty program.
func New(opts ...Option) *Engine {
	e := &Engine{
		prog:          program.Empty(),
		log:           slog.Default(),
		out:           discardOutput{},
		in:            noInput{},
		maxIterations: DefaultMaxIterations,
		maxDepth:      DefaultMaxCallDepth,
		minDelta:      tick.DefaultMinDelta,
		maxDelta:      tick.DefaultMaxDelta,
		size:          canvas.DefaultSize,
		breakpoints:   make(map[int]bool),
		clock:         time.Now,
		sleep:         sleepContext,
		eval:          expr.NewEvaluator(0),
		resumeSkip:    -1,
		profile:       newProfiler(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.clock().UnixNano()))
	}
	e.env = &env{e: e}
	e.ticks = tick.NewSystem(
		tick.WithDeltaRange(e.minDelta, e.maxDelta),
		tick.WithResolver(tick.LabelResolverFunc(func(name string) (int, bool) {
			return e.prog.ResolveLabel(name)
		})),
		tick.WithVariableSetter(func(name string, v float64) {
			e.setVar(name, expr.Num(v))
		}),
		tick.WithErrorHandler(func(err error) {
			e.fault(NewControlFlowError("%v", err))
		}),
		tick.WithRand(e.rng),
	)
	e.Reset()
	return e
}

// Load parses src and resets all run state.
func (e *Engine) Load(src string) *program.Program {
	e.LoadProgram(program.Load(src))
	return e.prog
}

// LoadProgram installs an already parsed program and resets all run state.
func (e *Engine) LoadProgram(p *program.Program) {
	if p == nil {
		p = program.Empty()
	}
	e.prog = p
	e.Reset()
	e.log.Debug("program loaded", "lines", p.Len(), "labels", len(p.Labels),
		"procedures", len(p.Procedures), "warnings", len(p.Warnings))
}

// Reset clears the variable store, stacks, turtle and animation state
// while keeping the loaded program.
func (e *Engine) Reset() {
	e.state = NewState()
	e.ticks.Reset()
	e.runState = Idle
	e.resumeSkip = -1
	e.stepping = false
	e.started = false
	e.particles = false
	e.profile.reset()
	e.stopFlag.Store(false)
	e.pauseFlag.Store(false)
	e.start = e.clock()
	e.lastTick = e.start
}

// Program returns the loaded program.
func (e *Engine) Program() *program.Program { return e.prog }

// State returns the live run state.
func (e *Engine) State() *State { return e.state }

// Ticks returns the animation runtime.
func (e *Engine) Ticks() *tick.System { return e.ticks }

// RunState returns the lifecycle state.
func (e *Engine) RunState() RunState { return e.runState }

// Variable returns a variable by name.
func (e *Engine) Variable(name string) (expr.Value, bool) {
	return e.state.Variable(name)
}

// SetBreakpoint adds or removes a breakpoint by 1-based line number.
func (e *Engine) SetBreakpoint(line int, on bool) {
	if on {
		e.breakpoints[line-1] = true
	} else {
		delete(e.breakpoints, line-1)
	}
}

// Stop asks the run to finish at the next line boundary. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Pause asks the run to pause at the next line boundary. Safe to call
// from any goroutine.
func (e *Engine) Pause() {
	e.pauseFlag.Store(true)
}

// Run executes from the current line until the program ends, pauses or is
// stopped. A finished engine starts over from a fresh state.
func (e *Engine) Run(ctx context.Context) Outcome {
	if e.runState == Finished {
		e.Reset()
	}
	e.ctx = ctx
	defer func() { e.ctx = nil }()

	if !e.started {
		e.started = true
		e.start = e.clock()
		e.lastTick = e.start
		e.log.Info("run started", "lines", e.prog.Len())
		if e.hooks.OnStarted != nil {
			e.hooks.OnStarted()
		}
		for _, w := range e.prog.Warnings {
			e.report(NewParseWarning(w.Index, w.Message))
		}
	}
	e.runState = Running

	for {
		if e.stopFlag.Load() || ctx.Err() != nil {
			return e.finish(StatusStopped, nil)
		}
		cur := e.state.Current
		if cur < 0 || cur >= e.prog.Len() {
			return e.finish(StatusSuccess, nil)
		}
		if e.pauseFlag.Swap(false) {
			return e.pause()
		}
		if e.debug && e.breakpoints[cur] && cur != e.resumeSkip {
			e.write(fmt.Sprintf("Breakpoint hit at line %d", cur+1))
			if e.hooks.OnBreakpoint != nil {
				e.hooks.OnBreakpoint(cur)
			}
			return e.pause()
		}
		e.resumeSkip = -1

		line := e.prog.Lines[cur]
		if line.Kind != program.Statement {
			e.state.Current++
			continue
		}
		if e.state.Iterations >= e.maxIterations {
			e.write("Program stopped: Maximum iterations reached")
			return e.finish(StatusIterationLimit, NewRunawayError(e.maxIterations))
		}
		e.state.Iterations++

		res, ok := e.executeLine(cur, line.Text)
		if e.hooks.OnLineExecuted != nil {
			e.hooks.OnLineExecuted(cur)
		}
		if ok {
			e.tick()
		}

		switch res.Kind {
		case ResultContinue:
			if j, ok := e.ticks.NextJump(); ok {
				e.state.Current = j
			} else {
				e.state.Current = cur + 1
			}
		case ResultJump:
			e.state.Current = res.Target
		case ResultEnd:
			return e.finish(StatusSuccess, nil)
		case ResultAbort:
			return e.finish(StatusError, res.Err)
		}

		if e.stepping {
			return e.pause()
		}
	}
}

// Continue resumes a paused run without stopping again on the current
// breakpoint.
func (e *Engine) Continue(ctx context.Context) Outcome {
	if e.runState == Paused {
		e.resumeSkip = e.state.Current
	}
	e.stepping = false
	return e.Run(ctx)
}

// Step executes exactly one statement and pauses again.
func (e *Engine) Step(ctx context.Context) Outcome {
	if e.runState == Paused {
		e.resumeSkip = e.state.Current
	}
	e.stepping = true
	return e.Run(ctx)
}

// ExecuteImmediate runs one command outside the program flow. Jumps are
// ignored along with the GOSUB or loop entries that came with them.
func (e *Engine) ExecuteImmediate(ctx context.Context, text string) error {
	e.ctx = ctx
	defer func() { e.ctx = nil }()

	mark := e.state.mark()
	res := e.safeExec(text)
	switch res.Kind {
	case ResultFail, ResultAbort:
		re := asRuntimeError(res.Err)
		if res.Kind == ResultFail {
			e.report(re)
		}
		return re
	case ResultJump:
		e.state.unwind(mark)
	default:
		e.state.trim(mark)
	}
	e.tick()
	return nil
}

func (e *Engine) pause() Outcome {
	e.runState = Paused
	e.stepping = false
	e.log.Info("run paused", "line", e.state.Current+1)
	return Outcome{Status: StatusPaused, Iterations: e.state.Iterations, Line: e.state.Current}
}

func (e *Engine) finish(status Status, err error) Outcome {
	e.runState = Finished
	out := Outcome{Status: status, Iterations: e.state.Iterations, Line: e.state.Current, Err: err}
	e.log.Info("run finished", "status", status.String(), "iterations", out.Iterations)
	if e.hooks.OnFinished != nil {
		e.hooks.OnFinished(out)
	}
	return out
}

// executeLine runs one program line and absorbs its faults. ok is false
// when the line faulted.
func (e *Engine) executeLine(index int, text string) (res Result, ok bool) {
	e.state.Current = index
	res = e.safeExec(text)
	switch res.Kind {
	case ResultFail:
		re := asRuntimeError(res.Err)
		if re.Command == "" {
			re.Command = text
		}
		e.report(re)
		return Continue(), false
	case ResultAbort:
		return res, false
	}
	return res, true
}

// safeExec dispatches text, converting a handler panic into a Fail.
func (e *Engine) safeExec(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("recovered panic in command", "command", text, "panic", r)
			res = Fail(NewDispatchError("internal error: %v", r))
		}
	}()
	return e.exec(text)
}

// tick advances the animation runtime by the time since the last tick.
func (e *Engine) tick() {
	now := e.clock()
	dt := now.Sub(e.lastTick)
	e.lastTick = now
	e.ticks.Update(dt)

	ps := e.ticks.Particles()
	if len(ps) == 0 && !e.particles {
		return
	}
	e.particles = len(ps) > 0
	points := make([]canvas.Particle, len(ps))
	for i, p := range ps {
		points[i] = canvas.Particle{X: p.X, Y: p.Y, Size: p.Size, Color: p.Color}
	}
	e.draw(canvas.Particles{Points: points})
}

// report writes one diagnostic for a recoverable fault.
func (e *Engine) report(re *RuntimeError) {
	if re.Line == 0 {
		re.Line = e.state.Current + 1
	}
	e.log.Warn("runtime fault", "kind", string(re.Kind), "line", re.Line,
		"command", re.Command, "error", re.Message)
	e.write(re.Display())
}

// fault reports err immediately. Handlers use it for diagnostics that do
// not stop the command.
func (e *Engine) fault(err error) {
	e.report(asRuntimeError(err))
}

func (e *Engine) write(text string) {
	e.out.Write(text)
	if e.hooks.OnOutput != nil {
		e.hooks.OnOutput(text)
	}
}

func (e *Engine) draw(p canvas.Primitive) {
	if e.gfx != nil {
		e.gfx.Draw(p)
	}
}

func (e *Engine) setVar(name string, v expr.Value) {
	name = normalizeName(name)
	e.state.Vars[name] = v
	if e.hooks.OnVariableChanged != nil {
		e.hooks.OnVariableChanged(name, v)
	}
}

func (e *Engine) context() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
