package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the output sample rate.
const SampleRate = 44100

// DefaultSoundFontName is looked up next to the program when no
// SoundFont is configured.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

var (
	// ErrNoSoundFont is returned when MIDI playback needs a SoundFont.
	ErrNoSoundFont = errors.New("SoundFont file is required for MIDI playback")
	// ErrSoundFontNotFound is returned when the SoundFont file is missing.
	ErrSoundFontNotFound = errors.New("SoundFont file not found")
)

// fade keeps tone edges from clicking.
const fade = 5 * time.Millisecond

// samples converts a duration to a sample count.
func samples(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * SampleRate)
}

// voice renders one note into 16-bit little-endian stereo PCM.
type voice interface {
	render(key int, freq float64, gate, slot time.Duration, volume float64) []byte
}

// sineVoice is a plain oscillator used without a SoundFont.
type sineVoice struct{}

func (sineVoice) render(_ int, freq float64, gate, slot time.Duration, volume float64) []byte {
	total := samples(slot)
	on := min(samples(gate), total)
	ramp := samples(fade)
	left := make([]float32, total)
	for i := 0; i < on; i++ {
		env := 1.0
		if i < ramp {
			env = float64(i) / float64(ramp)
		}
		if rem := on - i; rem < ramp {
			env = math.Min(env, float64(rem)/float64(ramp))
		}
		left[i] = float32(volume * env * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return toPCM(left, left)
}

// fontVoice plays notes through a meltysynth synthesizer.
type fontVoice struct {
	synth   *meltysynth.Synthesizer
	program int
}

func newFontVoice(sf *meltysynth.SoundFont, program int) (*fontVoice, error) {
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	program = max(0, min(program, 127))
	synth.ProcessMidiMessage(0, 0xC0, int32(program), 0)
	return &fontVoice{synth: synth, program: program}, nil
}

func (v *fontVoice) render(key int, _ float64, gate, slot time.Duration, volume float64) []byte {
	total := samples(slot)
	on := min(samples(gate), total)
	left := make([]float32, total)
	right := make([]float32, total)
	if key >= 0 && key <= 127 && on > 0 {
		velocity := int32(math.Round(max(1, min(127, volume*127))))
		v.synth.NoteOn(0, int32(key), velocity)
		v.synth.Render(left[:on], right[:on])
		v.synth.NoteOff(0, int32(key))
		if total > on {
			v.synth.Render(left[on:], right[on:])
		}
	} else if total > 0 {
		v.synth.Render(left, right)
	}
	return toPCM(left, right)
}

// renderNotes concatenates the rendered notes of a PLAY string.
func renderNotes(v voice, notes []Note, volume float64) []byte {
	var buf bytes.Buffer
	for _, n := range notes {
		if n.IsRest() {
			buf.Write(make([]byte, samples(n.Duration)*4))
			continue
		}
		buf.Write(v.render(n.Key, n.Frequency(), n.Gate, n.Duration, volume))
	}
	return buf.Bytes()
}

// toPCM converts float samples to int16 interleaved stereo.
func toPCM(left, right []float32) []byte {
	out := make([]byte, len(left)*4)
	for i := range left {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(out[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(r))
	}
	return out
}

// clamp restricts a value to the range [lo, hi].
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadSoundFont reads and parses an .sf2 file. A nil fsys reads from
// the operating system.
func LoadSoundFont(fsys fs.FS, path string) (*meltysynth.SoundFont, error) {
	var data []byte
	var err error
	if fsys == nil {
		data, err = os.ReadFile(path)
	} else {
		data, err = fs.ReadFile(fsys, path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
		}
		return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
	}

	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return soundFont, nil
}

// FindSoundFont looks for DefaultSoundFontName in each directory in
// order and returns the first match, or "".
func FindSoundFont(dirs ...string) string {
	for _, dir := range dirs {
		p := filepath.Join(dir, DefaultSoundFontName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
