package program

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/templecode/pkg/expr"
)

const sample = `10 PRINT "HI"
L:START
T:Hello
*LOOP
TO SQUARE :SIZE
REPEAT 4 [FD :SIZE RT 90]
END
REPEAT 2 [
  FD 10
  RT 90
]
20 DATA 1, "two", three
E:`

func TestLoadKinds(t *testing.T) {
	p := Load(sample)

	want := []LineKind{
		Statement, Statement, Statement, Label,
		ProcedureHeader, ProcedureBody, ProcedureBody,
		Statement, Continuation, Continuation, Continuation,
		Statement, Statement,
	}
	if len(p.Lines) != len(want) {
		t.Fatalf("lines = %d, want %d", len(p.Lines), len(want))
	}
	for i, k := range want {
		if p.Lines[i].Kind != k {
			t.Errorf("line %d kind = %s, want %s", i, p.Lines[i].Kind, k)
		}
		if p.Lines[i].Index != i {
			t.Errorf("line %d index = %d", i, p.Lines[i].Index)
		}
	}
	if len(p.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", p.Warnings)
	}
}

func TestLoadTables(t *testing.T) {
	p := Load(sample)

	if idx, ok := p.ResolveLabel("START"); !ok || idx != 1 {
		t.Errorf("START = %d, %v", idx, ok)
	}
	if idx, ok := p.ResolveLabel("LOOP"); !ok || idx != 3 {
		t.Errorf("LOOP = %d, %v", idx, ok)
	}
	if _, ok := p.ResolveLabel("loop"); ok {
		t.Error("labels must be case-sensitive")
	}

	proc, ok := p.Procedure("square")
	if !ok {
		t.Fatal("procedure SQUARE missing")
	}
	if !reflect.DeepEqual(proc.Params, []string{"SIZE"}) {
		t.Errorf("params = %v", proc.Params)
	}
	if !reflect.DeepEqual(proc.Body, []string{"REPEAT 4 [FD :SIZE RT 90]"}) {
		t.Errorf("body = %q", proc.Body)
	}

	if idx, ok := p.ResolveLineNumber(20); !ok || idx != 11 {
		t.Errorf("line 20 = %d, %v", idx, ok)
	}
	if p.Lines[0].Text != `PRINT "HI"` || p.Lines[0].Number != 10 {
		t.Errorf("line number not stripped: %+v", p.Lines[0])
	}
	if p.Lines[7].Text != "REPEAT 2 [ FD 10 RT 90 ]" {
		t.Errorf("flattened = %q", p.Lines[7].Text)
	}

	wantData := []expr.Value{expr.Num(1), expr.Str("two"), expr.Str("three")}
	if len(p.Data) != len(wantData) {
		t.Fatalf("data = %v", p.Data)
	}
	for i, v := range wantData {
		if !p.Data[i].Equal(v) {
			t.Errorf("data[%d] = %v, want %v", i, p.Data[i], v)
		}
	}
}

func TestLoadWarnings(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		warning  string
		inertIdx int
	}{
		{"empty L label", "L:\nT:x", "label without a name", 0},
		{"empty star label", "*  \nT:x", "label without a name", 0},
		{"nameless procedure", "TO\nFD 1", "procedure header without a name", 0},
		{"duplicate label", "*A\n*A", "duplicate label A", -1},
		{"missing end", "TO BOX\nFD 1", "has no END", -1},
		{"never closed", "REPEAT 2 [FD 1\nRT 2", "never closed", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Load(tt.src)
			if len(p.Warnings) != 1 {
				t.Fatalf("warnings = %v, want exactly one", p.Warnings)
			}
			if !strings.Contains(p.Warnings[0].Message, tt.warning) {
				t.Errorf("warning = %q, want %q", p.Warnings[0].Message, tt.warning)
			}
			if tt.inertIdx >= 0 && p.Lines[tt.inertIdx].Kind != Inert {
				t.Errorf("line %d kind = %s, want inert", tt.inertIdx, p.Lines[tt.inertIdx].Kind)
			}
		})
	}
}

func TestDuplicateLabelLastWins(t *testing.T) {
	p := Load("*A\nT:1\n*A")
	if idx, _ := p.ResolveLabel("A"); idx != 2 {
		t.Errorf("A = %d, want 2", idx)
	}
}

func TestMissingEndRunsToEOF(t *testing.T) {
	p := Load("T:before\nTO BOX\nFD 1\nRT 90")
	proc, ok := p.Procedure("BOX")
	if !ok || len(proc.Body) != 2 {
		t.Fatalf("procedure = %+v, %v", proc, ok)
	}
	for i := 2; i < 4; i++ {
		if p.Lines[i].Kind != ProcedureBody {
			t.Errorf("line %d kind = %s", i, p.Lines[i].Kind)
		}
	}
}

func TestUnbalancedKeepsRawText(t *testing.T) {
	p := Load("REPEAT 2 [FD 1\nRT 2")
	if p.Lines[0].Text != "REPEAT 2 [FD 1" || p.Lines[1].Kind != Statement {
		t.Errorf("lines = %+v", p.Lines)
	}
}

func TestCRLFAndBlank(t *testing.T) {
	p := Load("T:a\r\n\r\nT:b   \r\n")
	if len(p.Lines) != 4 {
		t.Fatalf("lines = %d", len(p.Lines))
	}
	if p.Lines[1].Kind != Blank || p.Lines[2].Text != "T:b" {
		t.Errorf("lines = %+v", p.Lines)
	}
	if Empty().Len() != 0 {
		t.Error("empty program has lines")
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`1, "a,b", MID$(A$,1,2)`, []string{"1", ` "a,b"`, " MID$(A$,1,2)"}},
		{"x", []string{"x"}},
		{"", []string{""}},
		{"[a,b],c", []string{"[a,b]", "c"}},
	}
	for _, tt := range tests {
		if got := SplitArgs(tt.input, ','); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestProperty_LoadIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	fragments := []string{
		"T:hello", "*L1", "L:L2", "TO P :A", "END", "FD 10", "REPEAT 2 [", "]",
		"10 PRINT 1", "DATA 1,2", "", "J:L1", "TO", "L:", "*L1",
	}

	properties.Property("loading twice yields identical programs", prop.ForAll(
		func(picks []int) bool {
			lines := make([]string, len(picks))
			for i, n := range picks {
				lines[i] = fragments[n]
			}
			src := strings.Join(lines, "\n")
			return reflect.DeepEqual(Load(src), Load(src))
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.Property("every label resolves to a label-bearing line", prop.ForAll(
		func(picks []int) bool {
			lines := make([]string, len(picks))
			for i, n := range picks {
				lines[i] = fragments[n]
			}
			p := Load(strings.Join(lines, "\n"))
			for _, idx := range p.Labels {
				if idx < 0 || idx >= len(p.Lines) {
					return false
				}
				k := p.Lines[idx].Kind
				if k != Label && k != Statement {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
