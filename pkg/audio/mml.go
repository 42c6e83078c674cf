package audio

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Rest is the key of a silent note.
const Rest = -1

// Note is one step of a PLAY string.
type Note struct {
	Key      int           // MIDI key, or Rest
	Duration time.Duration // the full slot
	Gate     time.Duration // the sounding part of the slot
}

// IsRest reports whether the note is silent.
func (n Note) IsRest() bool { return n.Key == Rest }

// Frequency returns the equal-tempered pitch in Hz, A4 = 440.
func (n Note) Frequency() float64 {
	if n.IsRest() {
		return 0
	}
	return KeyFrequency(n.Key)
}

// KeyFrequency converts a MIDI key to Hz.
func KeyFrequency(key int) float64 {
	return 440 * math.Pow(2, float64(key-69)/12)
}

// FrequencyKey returns the nearest MIDI key for a frequency.
func FrequencyKey(freq float64) int {
	if freq <= 0 {
		return Rest
	}
	return int(math.Round(69 + 12*math.Log2(freq/440)))
}

// MMLError reports the position of a rejected PLAY string.
type MMLError struct {
	Pos int
	Msg string
}

func (e *MMLError) Error() string {
	return fmt.Sprintf("mml: %s at position %d", e.Msg, e.Pos)
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// articulation fractions of the slot that sound.
const (
	normal   = 7.0 / 8
	legato   = 1.0
	staccato = 3.0 / 4
)

type mmlParser struct {
	src    string
	pos    int
	tempo  int
	octave int
	length int
	artic  float64
	notes  []Note
}

// ParseMML parses a GW-BASIC style music string. Octave 3 starts at
// middle C. Supported: T tempo, O octave, L length, < and >, A-G with
// #/+/- and a length, N note number, P/R rests, dots, and MN/ML/MS
// articulation. MF and MB are accepted and ignored.
func ParseMML(s string) ([]Note, error) {
	p := &mmlParser{
		src:    strings.ToUpper(s),
		tempo:  120,
		octave: 4,
		length: 4,
		artic:  normal,
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.notes, nil
}

func (p *mmlParser) parse() error {
	for p.pos < len(p.src) {
		start := p.pos
		c := p.src[p.pos]
		p.pos++
		switch {
		case c == ' ' || c == '\t' || c == ';':
		case c >= 'A' && c <= 'G':
			semi := semitones[c]
			if p.pos < len(p.src) {
				switch p.src[p.pos] {
				case '#', '+':
					semi++
					p.pos++
				case '-':
					semi--
					p.pos++
				}
			}
			length, err := p.optionalNumber(start, p.length, 1, 64)
			if err != nil {
				return err
			}
			p.emit(24+12*p.octave+semi, length)
		case c == 'N':
			n, ok := p.number()
			if !ok {
				return &MMLError{start, "N needs a note number"}
			}
			if n < 0 || n > 84 {
				return &MMLError{start, fmt.Sprintf("note number %d out of range 0-84", n)}
			}
			key := Rest
			if n > 0 {
				key = 23 + n
			}
			p.emit(key, p.length)
		case c == 'P' || c == 'R':
			length, err := p.optionalNumber(start, p.length, 1, 64)
			if err != nil {
				return err
			}
			p.emit(Rest, length)
		case c == 'T':
			n, err := p.requiredNumber(start, "T", 32, 255)
			if err != nil {
				return err
			}
			p.tempo = n
		case c == 'O':
			n, err := p.requiredNumber(start, "O", 0, 6)
			if err != nil {
				return err
			}
			p.octave = n
		case c == 'L':
			n, err := p.requiredNumber(start, "L", 1, 64)
			if err != nil {
				return err
			}
			p.length = n
		case c == '>':
			p.octave = min(p.octave+1, 6)
		case c == '<':
			p.octave = max(p.octave-1, 0)
		case c == 'M':
			if p.pos >= len(p.src) {
				return &MMLError{start, "M needs N, L, S, F or B"}
			}
			switch p.src[p.pos] {
			case 'N':
				p.artic = normal
			case 'L':
				p.artic = legato
			case 'S':
				p.artic = staccato
			case 'F', 'B':
			default:
				return &MMLError{start, fmt.Sprintf("unknown mode M%c", p.src[p.pos])}
			}
			p.pos++
		default:
			return &MMLError{start, fmt.Sprintf("unexpected %q", c)}
		}
	}
	return nil
}

// emit appends a note of the given length, consuming trailing dots.
func (p *mmlParser) emit(key, length int) {
	beats := 4.0 / float64(length)
	extra := beats
	for p.pos < len(p.src) && p.src[p.pos] == '.' {
		extra /= 2
		beats += extra
		p.pos++
	}
	slot := time.Duration(beats * 60 / float64(p.tempo) * float64(time.Second))
	var gate time.Duration
	if key != Rest {
		gate = time.Duration(float64(slot) * p.artic)
	}
	p.notes = append(p.notes, Note{Key: key, Duration: slot, Gate: gate})
}

func (p *mmlParser) number() (int, bool) {
	start := p.pos
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		n = n*10 + int(p.src[p.pos]-'0')
		if n > 1<<20 {
			n = 1 << 20
		}
		p.pos++
	}
	return n, p.pos > start
}

func (p *mmlParser) requiredNumber(at int, cmd string, lo, hi int) (int, error) {
	n, ok := p.number()
	if !ok {
		return 0, &MMLError{at, cmd + " needs a number"}
	}
	if n < lo || n > hi {
		return 0, &MMLError{at, fmt.Sprintf("%s%d out of range %d-%d", cmd, n, lo, hi)}
	}
	return n, nil
}

func (p *mmlParser) optionalNumber(at, def, lo, hi int) (int, error) {
	n, ok := p.number()
	if !ok {
		return def, nil
	}
	if n < lo || n > hi {
		return 0, &MMLError{at, fmt.Sprintf("length %d out of range %d-%d", n, lo, hi)}
	}
	return n, nil
}

// TotalDuration sums the slots of notes.
func TotalDuration(notes []Note) time.Duration {
	var d time.Duration
	for _, n := range notes {
		d += n.Duration
	}
	return d
}
