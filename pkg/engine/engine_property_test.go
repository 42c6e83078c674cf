package engine

import (
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_ForLoopCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("FOR runs its body max(1, floor((end-start)/step)+1) times", prop.ForAll(
		func(start, end, step int) bool {
			if step == 0 {
				step = 1
			}
			src := fmt.Sprintf("N = 0\nFOR I = %d TO %d STEP %d\nN = N + 1\nNEXT", start, end, step)
			h := newHarness(t, src)
			h.run(t)
			want := math.Max(1, math.Floor(float64(end-start)/float64(step))+1)
			v, ok := h.eng.Variable("N")
			if !ok {
				return false
			}
			n, _ := v.Number()
			return n == want && len(h.eng.State().Loops) == 0
		},
		gen.IntRange(-20, 20),
		gen.IntRange(-20, 20),
		gen.IntRange(-5, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_UnknownLabelReportsOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a jump to a missing label reports once and falls through", prop.ForAll(
		func(label string) bool {
			got, out := runProgram(t, "J:"+label+"\nT:after")
			want := []string{"Error at line 1: Label not found: " + label, "after"}
			return out.Status == StatusSuccess && equalLines(got, want)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InterpolatesNumbers(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("*A*+*B*=*A+B* prints the integer sum", prop.ForAll(
		func(a, b int) bool {
			src := fmt.Sprintf("U:A=%d\nU:B=%d\nT:*A*+*B*=*A+B*", a, b)
			got, _ := runProgram(t, src)
			want := strconv.Itoa(a) + "+" + strconv.Itoa(b) + "=" + strconv.Itoa(a+b)
			return len(got) == 1 && got[0] == want
		},
		gen.IntRange(-10000, 10000),
		gen.IntRange(-10000, 10000),
	))

	properties.Property("a false Y: gates exactly one consuming command", prop.ForAll(
		func(filler int) bool {
			src := "Y:0\n"
			for i := 0; i < filler; i++ {
				src += fmt.Sprintf("U:X%d=%d\n", i, i)
			}
			src += "T:gated\nT:shown"
			got, _ := runProgram(t, src)
			return equalLines(got, []string{"shown"})
		},
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
