// Package hardware simulates the microcontroller and single-board devices
// reachable through R: ARDUINO and R: RPI.
package hardware

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnknownDevice is returned for devices other than arduino and rpi.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrUnsupportedAction is returned for actions a device does not know.
	ErrUnsupportedAction = errors.New("unsupported action")
	// ErrNotConnected is returned when an Arduino is used before CONNECT.
	ErrNotConnected = errors.New("not connected")
)

// Request is one entry of the request log.
type Request struct {
	Time   time.Time
	Device string
	Action string
	Args   []string
	Result string
	Err    error
}

// Simulator answers device requests with fixed values.
type Simulator struct {
	mu          sync.Mutex
	log         *slog.Logger
	requireConn bool
	connected   bool
	requests    []Request
	now         func() time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRequireConnect makes Arduino actions fail until CONNECT succeeds.
func WithRequireConnect(on bool) Option {
	return func(s *Simulator) { s.requireConn = on }
}

// NewSimulator returns a simulator with an empty request log.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request implements the engine hardware sink.
func (s *Simulator) Request(device, action string, args []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device = strings.ToLower(device)
	action = strings.ToUpper(action)

	var result string
	var err error
	switch device {
	case "arduino":
		result, err = s.arduino(action, args)
	case "rpi":
		result, err = rpi(action, args)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}

	s.requests = append(s.requests, Request{
		Time:   s.now(),
		Device: device,
		Action: action,
		Args:   append([]string(nil), args...),
		Result: result,
		Err:    err,
	})
	if err != nil {
		s.log.Warn("hardware request failed", "device", device, "action", action, "args", args, "error", err)
		return "", err
	}
	s.log.Debug("hardware request", "device", device, "action", action, "args", args, "result", result)
	return result, nil
}

func (s *Simulator) arduino(action string, args []string) (string, error) {
	if action != "CONNECT" && s.requireConn && !s.connected {
		return "", ErrNotConnected
	}
	switch action {
	case "CONNECT":
		s.connected = true
		return "connected", nil
	case "READ":
		if err := arity(action, args, 1); err != nil {
			return "", err
		}
		return "512", nil
	case "WRITE":
		if err := arity(action, args, 2); err != nil {
			return "", err
		}
		return "ok", nil
	}
	return "", fmt.Errorf("%w: arduino %s", ErrUnsupportedAction, action)
}

func rpi(action string, args []string) (string, error) {
	switch action {
	case "GPIO":
		if err := arity(action, args, 1); err != nil {
			return "", err
		}
		return "0", nil
	case "WRITE":
		if err := arity(action, args, 2); err != nil {
			return "", err
		}
		return "ok", nil
	case "TEMP":
		return "42.0", nil
	}
	return "", fmt.Errorf("%w: rpi %s", ErrUnsupportedAction, action)
}

func arity(action string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d argument(s), got %d", action, n, len(args))
	}
	return nil
}

// Requests returns a copy of the request log.
func (s *Simulator) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Reset clears the log and the connection state.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	s.connected = false
}
