package tick

// Tween animates a numeric variable from Start to End over Duration
// milliseconds.
type Tween struct {
	Key      string
	Start    float64
	End      float64
	Duration float64 // ms, at least 1
	Elapsed  float64 // ms
	Easing   string
	Value    float64
	Done     bool

	ease EasingFunc
}

// Step advances the tween by dt milliseconds and returns the new value.
func (tw *Tween) Step(dt float64) float64 {
	if tw.Done {
		return tw.Value
	}
	tw.Elapsed += dt
	if tw.Elapsed >= tw.Duration {
		tw.Value = tw.End
		tw.Done = true
		return tw.Value
	}
	p := min(1, tw.Elapsed/tw.Duration)
	tw.Value = tw.Start + (tw.End-tw.Start)*tw.ease(p)
	return tw.Value
}

// Timer fires its label once after Remaining milliseconds.
type Timer struct {
	Remaining float64 // ms
	Label     string
	Fired     bool
}

// Particle is a short-lived point under constant downward acceleration.
// Velocities are in units per second and Life in milliseconds.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Life   float64
	Color  string
	Size   float64
}

// Gravity is the downward acceleration applied to particles, in units/s².
const Gravity = 30.0

// Particle defaults.
const (
	DefaultParticleColor = "#ffaa33"
	DefaultParticleSize  = 3.0
)

func (p *Particle) step(dt float64) {
	s := dt / 1000
	p.X += p.VX * s
	p.Y += p.VY * s
	p.VY -= Gravity * s
	p.Life -= dt
}
