package audio

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseMML(t *testing.T) {
	q := 500 * time.Millisecond // quarter note at T120
	tests := []struct {
		name string
		mml  string
		want []Note
	}{
		{"default octave 4", "A", []Note{{Key: 81, Duration: q, Gate: q * 7 / 8}}},
		{"octave 3 is middle C", "O3 C", []Note{{Key: 60, Duration: q, Gate: q * 7 / 8}}},
		{"sharp and flat", "O3 C# D- E+", []Note{
			{Key: 61, Duration: q, Gate: q * 7 / 8},
			{Key: 61, Duration: q, Gate: q * 7 / 8},
			{Key: 65, Duration: q, Gate: q * 7 / 8},
		}},
		{"length suffix", "ML O3 C8", []Note{{Key: 60, Duration: q / 2, Gate: q / 2}}},
		{"default length", "ML L2 O3 C", []Note{{Key: 60, Duration: 2 * q, Gate: 2 * q}}},
		{"dots", "ML O3 C4.", []Note{{Key: 60, Duration: q * 3 / 2, Gate: q * 3 / 2}}},
		{"double dot", "ML O3 C4..", []Note{{Key: 60, Duration: q * 7 / 4, Gate: q * 7 / 4}}},
		{"tempo", "ML T60 O3 C", []Note{{Key: 60, Duration: 2 * q, Gate: 2 * q}}},
		{"staccato", "MS O3 C", []Note{{Key: 60, Duration: q, Gate: q * 3 / 4}}},
		{"rests", "P4 R8", []Note{{Key: Rest, Duration: q}, {Key: Rest, Duration: q / 2}}},
		{"octave shifts", "ML O3 > C < < C", []Note{
			{Key: 72, Duration: q, Gate: q},
			{Key: 48, Duration: q, Gate: q},
		}},
		{"octave clamps", "ML O6 > C O0 < C", []Note{
			{Key: 96, Duration: q, Gate: q},
			{Key: 24, Duration: q, Gate: q},
		}},
		{"note numbers", "ML N37 N0", []Note{{Key: 60, Duration: q, Gate: q}, {Key: Rest, Duration: q}}},
		{"lower case and separators", "ml o3;c", []Note{{Key: 60, Duration: q, Gate: q}}},
		{"foreground background ignored", "MF MB", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMML(tt.mml)
			if err != nil {
				t.Fatalf("ParseMML(%q) error = %v", tt.mml, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseMML(%q) = %+v, want %+v", tt.mml, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("note %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseMML_Errors(t *testing.T) {
	tests := []struct {
		mml string
		pos int
	}{
		{"T20", 0},
		{"C D O9", 4},
		{"L0", 0},
		{"L", 0},
		{"C65", 0},
		{"N85", 0},
		{"N", 0},
		{"MX", 0},
		{"M", 0},
		{"CZ", 1},
		{"X", 0},
	}
	for _, tt := range tests {
		t.Run(tt.mml, func(t *testing.T) {
			_, err := ParseMML(tt.mml)
			var merr *MMLError
			if !errors.As(err, &merr) {
				t.Fatalf("ParseMML(%q) error = %v, want MMLError", tt.mml, err)
			}
			if merr.Pos != tt.pos {
				t.Errorf("position = %d, want %d", merr.Pos, tt.pos)
			}
		})
	}
}

func TestNoteFrequency(t *testing.T) {
	if f := (Note{Key: 69}).Frequency(); f != 440 {
		t.Errorf("A4 = %g", f)
	}
	if f := (Note{Key: Rest}).Frequency(); f != 0 {
		t.Errorf("rest = %g", f)
	}
	if math.Abs(KeyFrequency(60)-261.6256) > 1e-3 {
		t.Errorf("middle C = %g", KeyFrequency(60))
	}
	if FrequencyKey(0) != Rest || FrequencyKey(880) != 81 {
		t.Error("FrequencyKey mismatch")
	}
}

func TestTotalDuration(t *testing.T) {
	notes, err := ParseMML("C D E P4")
	if err != nil {
		t.Fatal(err)
	}
	if got := TotalDuration(notes); got != 2*time.Second {
		t.Errorf("TotalDuration() = %v", got)
	}
}

func TestProperty_KeyFrequencyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("FrequencyKey inverts KeyFrequency", prop.ForAll(
		func(key int) bool {
			return FrequencyKey(KeyFrequency(key)) == key
		},
		gen.IntRange(0, 127),
	))

	properties.Property("every note of a valid string has gate <= slot", prop.ForAll(
		func(tempo, length, octave int) bool {
			mml := "T" + strconv.Itoa(tempo) + " L" + strconv.Itoa(length) + " O" + strconv.Itoa(octave) + " CDEFGAB P"
			notes, err := ParseMML(mml)
			if err != nil || len(notes) != 8 {
				return false
			}
			for _, n := range notes {
				if n.Gate > n.Duration || n.Duration <= 0 {
					return false
				}
			}
			return true
		},
		gen.IntRange(32, 255),
		gen.IntRange(1, 64),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
