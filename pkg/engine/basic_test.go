package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/templecode/pkg/canvas"
)

func TestBASICPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "print separators",
			src:  "X = 5\nPRINT \"A\";\"B\"\nPRINT \"A\",\"B\"\nPRINT \"X=\";X\nPRINT 1+2",
			want: []string{"AB", "A B", "X=5", "3"},
		},
		{
			name: "print trailing semicolon",
			src:  `PRINT "A";`,
			want: []string{"A"},
		},
		{
			name: "print falls back to interpolation",
			src:  "X = 5\nPRINT hello *X*",
			want: []string{"hello 5"},
		},
		{
			name: "if then else",
			src:  "X = 5\nIF X > 3 THEN PRINT \"big\" ELSE PRINT \"small\"\nIF X > 9 THEN PRINT \"huge\"",
			want: []string{"big"},
		},
		{
			name: "if with line number",
			src:  "10 IF 1 THEN 40\n20 PRINT \"no\"\n40 PRINT \"yes\"",
			want: []string{"yes"},
		},
		{
			name: "if else line number",
			src:  "10 IF 0 THEN 20 ELSE 30\n20 PRINT \"then\"\n30 PRINT \"else\"",
			want: []string{"else"},
		},
		{
			name: "if runs PILOT branch",
			src:  "IF 2 > 1 THEN T:pilot",
			want: []string{"pilot"},
		},
		{
			name: "gosub with line numbers",
			src:  "10 GOSUB 100\n20 PRINT \"back\"\n30 END\n100 PRINT \"sub\"\n110 RETURN",
			want: []string{"sub", "back"},
		},
		{
			name: "goto label",
			src:  "GOTO done\nPRINT \"no\"\n*done\nPRINT \"yes\"",
			want: []string{"yes"},
		},
		{
			name: "goto unknown line",
			src:  "GOTO 999\nPRINT \"after\"",
			want: []string{"Error at line 1: Line 999 not found", "after"},
		},
		{
			name: "data and read",
			src: "DATA 1, \"two\", 3\nREAD A, B\nREAD C\nPRINT A;B;C\nREAD D\n" +
				"RESTORE\nREAD E\nPRINT E",
			want: []string{"1two3", "Error at line 5: Out of data", "1"},
		},
		{
			name: "swap",
			src:  "A = 1\nB = 2\nSWAP A, B\nPRINT A;B",
			want: []string{"21"},
		},
		{
			name: "rem and comment",
			src:  "REM nothing\n' also nothing\nPRINT \"x\"",
			want: []string{"x"},
		},
		{
			name: "stop",
			src:  "PRINT 1\nSTOP\nPRINT 2",
			want: []string{"1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := runProgram(t, tt.src)
			if !equalLines(got, tt.want) {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLetIsStrict(t *testing.T) {
	h := newHarness(t, "LET X = Y + 1\nU:Z=Y + 1")
	h.run(t)
	if errs := h.out.errors(); len(errs) != 1 || !strings.HasPrefix(errs[0], "Error at line 1:") {
		t.Errorf("errors = %q", errs)
	}
	if _, ok := h.eng.Variable("X"); ok {
		t.Error("X should not be assigned")
	}
	if v, _ := h.eng.Variable("Z"); v.String() != "Y + 1" {
		t.Errorf("Z = %q", v.String())
	}
}

func TestBASICInput(t *testing.T) {
	in := &scriptedInput{answers: []string{"Bob", "7"}}
	got, _ := runProgram(t, "INPUT \"Name\";N\nINPUT K\nPRINT \"Hi \";N;K*2", WithInput(in))
	if !equalLines(got, []string{"Hi Bob14"}) {
		t.Errorf("output = %q", got)
	}
	if !equalLines(in.prompts, []string{"Name", "K? "}) {
		t.Errorf("prompts = %q", in.prompts)
	}
}

func TestBASICGraphics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want canvas.Primitive
	}{
		{
			name: "pset centre",
			src:  "COLOR 2\nPSET (320,240)",
			want: canvas.Dot{X: 0, Y: 0, Size: 1, Color: "red"},
		},
		{
			name: "preset uses background",
			src:  "PRESET (0,0)",
			want: canvas.Dot{X: -320, Y: 240, Size: 1, Color: "white"},
		},
		{
			name: "pset explicit colour",
			src:  "PSET (330,250),blue",
			want: canvas.Dot{X: 10, Y: -10, Size: 1, Color: "blue"},
		},
		{
			name: "line",
			src:  "LINE (0,0)-(640,480),4",
			want: canvas.Line{X1: -320, Y1: 240, X2: 320, Y2: -240, Color: "yellow"},
		},
		{
			name: "circle",
			src:  "CIRCLE (320,240),50",
			want: canvas.Circle{X: 0, Y: 0, Radius: 50, Extent: 360, Color: "black", Width: 1},
		},
		{
			name: "paint",
			src:  "PAINT (320,240),green",
			want: canvas.Fill{X: 0, Y: 0, Color: "green"},
		},
		{
			name: "palette",
			src:  "PALETTE 1,\"orange\"\nCOLOR 1\nPSET (320,240)",
			want: canvas.Dot{X: 0, Y: 0, Size: 1, Color: "orange"},
		},
		{
			name: "logo circle form",
			src:  "CIRCLE 30",
			want: canvas.Circle{X: 0, Y: 0, Radius: 30, Extent: 360, Color: "black", Width: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.src)
			h.run(t)
			if errs := h.out.errors(); len(errs) > 0 {
				t.Fatalf("errors = %q", errs)
			}
			if len(h.gfx.items) == 0 {
				t.Fatal("nothing drawn")
			}
			if got := h.gfx.items[len(h.gfx.items)-1]; got != tt.want {
				t.Errorf("drawn %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBASICColourErrors(t *testing.T) {
	got, _ := runProgram(t, "COLOR 99\nPALETTE 1,\"nocolour\"")
	want := []string{
		"Error at line 1: palette index out of range: 99",
		"Error at line 2: unknown colour: nocolour",
	}
	if !equalLines(got, want) {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCLS(t *testing.T) {
	h := newHarness(t, "FD 10\nCOLOR 0,blue\nCLS")
	h.run(t)
	if h.out.cleared != 1 {
		t.Errorf("text cleared %d times", h.out.cleared)
	}
	if len(h.eng.State().Turtle.Segments()) != 0 {
		t.Error("segments not cleared")
	}
	last := h.gfx.items[len(h.gfx.items)-1]
	if last != (canvas.Clear{Background: "blue"}) {
		t.Errorf("last primitive = %#v", last)
	}
}

func TestDRAW(t *testing.T) {
	h := newHarness(t, "DRAW \"U10 R10\"\nDRAW \"BM100,100 D10\"\nDRAW \"C2 NL5 E\"")
	h.run(t)
	if errs := h.out.errors(); len(errs) > 0 {
		t.Fatalf("errors = %q", errs)
	}
	want := []canvas.Line{
		{X1: 0, Y1: 0, X2: 0, Y2: 10, Color: "black"},
		{X1: 0, Y1: 10, X2: 10, Y2: 10, Color: "black"},
		{X1: -220, Y1: 140, X2: -220, Y2: 130, Color: "black"},
		{X1: -220, Y1: 130, X2: -225, Y2: 130, Color: "red"},
		{X1: -220, Y1: 130, X2: -219, Y2: 131, Color: "red"},
	}
	got := h.gfx.lines()
	if len(got) != len(want) {
		t.Fatalf("lines = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDRAWErrors(t *testing.T) {
	got, _ := runProgram(t, "DRAW \"Z\"\nDRAW \"M10\"")
	if len(got) != 2 || !strings.Contains(got[0], "unknown command") || !strings.Contains(got[1], "M expects x,y") {
		t.Errorf("output = %q", got)
	}
}

type audioCall struct {
	kind  string
	name  string
	freq  float64
	ms    int
	vol   float64
	voice int
}

type fakeAudio struct {
	calls []audioCall
	err   error
}

func (a *fakeAudio) Register(name, path string) error {
	a.calls = append(a.calls, audioCall{kind: "register", name: name + "=" + path})
	return a.err
}

func (a *fakeAudio) Play(name string) error {
	a.calls = append(a.calls, audioCall{kind: "play", name: name})
	return a.err
}

func (a *fakeAudio) Tone(freq float64, ms int, volume float64, voice int) error {
	a.calls = append(a.calls, audioCall{kind: "tone", freq: freq, ms: ms, vol: volume, voice: voice})
	return a.err
}

func (a *fakeAudio) Beep() error {
	a.calls = append(a.calls, audioCall{kind: "beep"})
	return a.err
}

func (a *fakeAudio) PlayNotes(mml string) error {
	a.calls = append(a.calls, audioCall{kind: "notes", name: mml})
	return a.err
}

func TestBASICSound(t *testing.T) {
	a := &fakeAudio{}
	got, _ := runProgram(t, "SOUND 440,18.2\nSOUND 220,9.1,0,2\nSOUND 0,10\nBEEP\nPLAY \"CDE\"", WithAudio(a))
	if len(got) != 0 {
		t.Fatalf("output = %q", got)
	}
	want := []audioCall{
		{kind: "tone", freq: 440, ms: 1000, vol: 1},
		{kind: "tone", freq: 220, ms: 500, vol: 0, voice: 2},
		{kind: "beep"},
		{kind: "notes", name: "CDE"},
	}
	if len(a.calls) != len(want) {
		t.Fatalf("calls = %+v", a.calls)
	}
	for i := range want {
		if a.calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, a.calls[i], want[i])
		}
	}
}

func TestSoundWithoutSinkIsSilent(t *testing.T) {
	got, out := runProgram(t, "SOUND 440,18\nBEEP\nPLAY \"C\"")
	if len(got) != 0 || out.Status != StatusSuccess {
		t.Errorf("output = %q, outcome %+v", got, out)
	}
}

func TestSoundErrorIsReported(t *testing.T) {
	got, _ := runProgram(t, "BEEP", WithAudio(&fakeAudio{err: errBoom}))
	if !equalLines(got, []string{"Error at line 1: BEEP: boom"}) {
		t.Errorf("output = %q", got)
	}
}

func TestWaitUsesSleeper(t *testing.T) {
	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	runProgram(t, "WAIT 0.5\nWAIT 2", WithSleeper(sleeper))
	if len(slept) != 2 || slept[0] != 500*time.Millisecond || slept[1] != 2*time.Second {
		t.Errorf("slept = %v", slept)
	}
}

func TestRandomizeIsDeterministic(t *testing.T) {
	draw := func() string {
		h := newHarness(t, "RANDOMIZE 42\nX = RND\nPRINT X")
		h.run(t)
		return strings.Join(h.out.lines, ",")
	}
	first, second := draw(), draw()
	if first != second || strings.HasPrefix(first, "Error") {
		t.Errorf("RANDOMIZE 42 gave %q then %q", first, second)
	}
}
