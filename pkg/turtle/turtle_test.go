package turtle

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDefaults(t *testing.T) {
	tu := New()
	if tu.X != 0 || tu.Y != 0 || tu.Heading != 90 {
		t.Errorf("position/heading = (%v,%v) %v", tu.X, tu.Y, tu.Heading)
	}
	if !tu.PenDown || !tu.Visible || tu.Color != "black" || tu.Width != 1 || tu.Style != StyleSolid {
		t.Errorf("pen defaults wrong: %+v", tu)
	}
}

func TestForward(t *testing.T) {
	tests := []struct {
		name    string
		heading float64
		dist    float64
		wantX   float64
		wantY   float64
	}{
		{"up", 90, 10, 0, 10},
		{"right", 0, 10, 10, 0},
		{"left", 180, 10, -10, 0},
		{"down", 270, 5, 0, -5},
		{"back", 90, -3, 0, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := New()
			tu.SetHeading(tt.heading)
			seg, ok := tu.Forward(tt.dist)
			if !ok {
				t.Fatal("pen down move not recorded")
			}
			if tu.X != tt.wantX || tu.Y != tt.wantY {
				t.Errorf("position = (%v,%v), want (%v,%v)", tu.X, tu.Y, tt.wantX, tt.wantY)
			}
			if seg.X1 != 0 || seg.Y1 != 0 || seg.X2 != tt.wantX || seg.Y2 != tt.wantY {
				t.Errorf("segment = %+v", seg)
			}
		})
	}
}

func TestPenUpDoesNotRecord(t *testing.T) {
	tu := New()
	tu.PenDown = false
	if _, ok := tu.Forward(10); ok {
		t.Error("pen-up move returned a segment")
	}
	if len(tu.Segments()) != 0 {
		t.Error("pen-up move recorded a segment")
	}
	if tu.Y != 10 {
		t.Errorf("Y = %v, want 10", tu.Y)
	}
}

func TestSquareReturnsHome(t *testing.T) {
	tu := New()
	for i := 0; i < 4; i++ {
		tu.Forward(50)
		tu.Turn(-90)
	}
	if tu.X != 0 || tu.Y != 0 || tu.Heading != 90 {
		t.Errorf("after square: (%v,%v) heading %v", tu.X, tu.Y, tu.Heading)
	}
	if len(tu.Segments()) != 4 {
		t.Errorf("segments = %d, want 4", len(tu.Segments()))
	}
}

func TestSettersAndReset(t *testing.T) {
	tu := New()
	tu.SetPosition(3, 4)
	tu.SetWidth(0)
	if tu.Width != 1 {
		t.Errorf("width = %d, want 1", tu.Width)
	}
	if tu.SetStyle("wavy") || tu.Style != StyleSolid {
		t.Error("unknown style accepted")
	}
	if !tu.SetStyle(StyleDashed) {
		t.Error("dashed rejected")
	}
	tu.DefineSprite("cat", "cat.png")
	tu.Forward(1)
	if len(tu.Segments()) != 1 {
		t.Fatal("expected one segment")
	}

	tu.Reset()
	if tu.X != 0 || tu.Y != 0 || tu.Style != StyleSolid || len(tu.Segments()) != 0 || tu.SpriteCount() != 0 {
		t.Errorf("reset incomplete: %+v", tu)
	}
}

func TestSprites(t *testing.T) {
	tu := New()
	tu.DefineSprite("cat", "cat.png")
	s, ok := tu.MoveSprite("cat", 10, -5)
	if !ok || s.X != 10 || s.Y != -5 {
		t.Errorf("MoveSprite = %+v, %v", s, ok)
	}
	if _, ok := tu.MoveSprite("dog", 1, 1); ok {
		t.Error("moved an undefined sprite")
	}
	if got, ok := tu.Sprite("cat"); !ok || got.Path != "cat.png" {
		t.Errorf("Sprite lookup = %+v, %v", got, ok)
	}
}

func TestProperty_HeadingNormalised(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("heading stays in [0,360)", prop.ForAll(
		func(turns []float64) bool {
			tu := New()
			for _, d := range turns {
				tu.Turn(d)
				if tu.Heading < 0 || tu.Heading >= 360 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-10000, 10000)),
	))

	properties.Property("forward then back returns to start", prop.ForAll(
		func(heading, dist float64) bool {
			tu := New()
			tu.SetHeading(heading)
			tu.Forward(dist)
			tu.Back(dist)
			return math.Abs(tu.X) < 1e-6 && math.Abs(tu.Y) < 1e-6
		},
		gen.Float64Range(0, 360),
		gen.Float64Range(-1000, 1000),
	))

	properties.Property("segment count equals pen-down moves", prop.ForAll(
		func(pens []bool) bool {
			tu := New()
			want := 0
			for _, down := range pens {
				tu.PenDown = down
				tu.Forward(1)
				if down {
					want++
				}
			}
			return len(tu.Segments()) == want
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
