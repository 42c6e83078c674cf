package hardware

import (
	"errors"
	"testing"
)

func TestSimulator(t *testing.T) {
	tests := []struct {
		device, action string
		args           []string
		want           string
		wantErr        error
	}{
		{"arduino", "CONNECT", nil, "connected", nil},
		{"ARDUINO", "read", []string{"A0"}, "512", nil},
		{"arduino", "WRITE", []string{"13", "1"}, "ok", nil},
		{"rpi", "GPIO", []string{"17"}, "0", nil},
		{"rpi", "WRITE", []string{"17", "1"}, "ok", nil},
		{"rpi", "TEMP", nil, "42.0", nil},
		{"arduino", "BLINK", nil, "", ErrUnsupportedAction},
		{"rpi", "READ", []string{"4"}, "", ErrUnsupportedAction},
		{"esp32", "READ", nil, "", ErrUnknownDevice},
	}
	for _, tt := range tests {
		t.Run(tt.device+" "+tt.action, func(t *testing.T) {
			got, err := NewSimulator().Request(tt.device, tt.action, tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Request() = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestSimulator_Arity(t *testing.T) {
	s := NewSimulator()
	if _, err := s.Request("arduino", "READ", nil); err == nil {
		t.Error("expected arity error")
	}
	if _, err := s.Request("rpi", "WRITE", []string{"1"}); err == nil {
		t.Error("expected arity error")
	}
}

func TestSimulator_RequireConnect(t *testing.T) {
	s := NewSimulator(WithRequireConnect(true))
	if _, err := s.Request("arduino", "READ", []string{"A0"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}
	if _, err := s.Request("arduino", "CONNECT", nil); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Request("arduino", "READ", []string{"A0"}); err != nil || got != "512" {
		t.Errorf("Request() = %q, %v", got, err)
	}
	s.Reset()
	if _, err := s.Request("arduino", "READ", []string{"A0"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("after Reset error = %v", err)
	}
}

func TestSimulator_RequestLog(t *testing.T) {
	s := NewSimulator()
	args := []string{"13", "1"}
	s.Request("arduino", "write", args)
	s.Request("rpi", "nope", nil)
	args[0] = "changed"

	log := s.Requests()
	if len(log) != 2 {
		t.Fatalf("log = %+v", log)
	}
	if log[0].Device != "arduino" || log[0].Action != "WRITE" || log[0].Args[0] != "13" || log[0].Result != "ok" {
		t.Errorf("first = %+v", log[0])
	}
	if log[1].Err == nil || log[1].Time.IsZero() {
		t.Errorf("second = %+v", log[1])
	}
	s.Reset()
	if len(s.Requests()) != 0 {
		t.Error("Reset() kept the log")
	}
}
