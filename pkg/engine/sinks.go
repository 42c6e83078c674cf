package engine

import (
	"github.com/zurustar/templecode/pkg/canvas"
	"github.com/zurustar/templecode/pkg/expr"
	"github.com/zurustar/templecode/pkg/session"
)

// OutputSink receives one logical message per call.
type OutputSink interface {
	Write(text string)
}

// OutputFunc adapts a function to OutputSink.
type OutputFunc func(text string)

func (f OutputFunc) Write(text string) { f(text) }

// InputProvider blocks until the learner supplies a value.
type InputProvider interface {
	Request(prompt string) (string, error)
}

// InputFunc adapts a function to InputProvider.
type InputFunc func(prompt string) (string, error)

func (f InputFunc) Request(prompt string) (string, error) { return f(prompt) }

// GraphicsSink receives drawing primitives. Engine state changes happen
// whether or not a sink is attached.
type GraphicsSink interface {
	Draw(p canvas.Primitive)
}

// AudioSink plays sounds and tones.
type AudioSink interface {
	Register(name, path string) error
	Play(name string) error
	Tone(freq float64, ms int, volume float64, voice int) error
	Beep() error
	PlayNotes(mml string) error
}

// HardwareSink forwards device requests. Results are opaque strings.
type HardwareSink interface {
	Request(device, action string, args []string) (string, error)
}

// SessionStore persists session snapshots by slot name.
type SessionStore interface {
	Save(slot string, snap session.Snapshot) error
	Load(slot string) (session.Snapshot, error)
}

// Hooks are optional lifecycle callbacks. Nil fields are skipped.
type Hooks struct {
	OnStarted         func()
	OnFinished        func(Outcome)
	OnLineExecuted    func(index int)
	OnVariableChanged func(name string, value expr.Value)
	OnBreakpoint      func(index int)
	OnOutput          func(text string)
}

type discardOutput struct{}

func (discardOutput) Write(string) {}

type noInput struct{}

func (noInput) Request(string) (string, error) { return "", ErrInputFailed }
