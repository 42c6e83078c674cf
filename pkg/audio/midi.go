package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// ErrMIDIInvalidFormat is returned when a .mid file cannot be parsed.
var ErrMIDIInvalidFormat = errors.New("invalid MIDI file format")

// midiTail lets the last notes release before the stream ends.
const midiTail = time.Second

// midiStream renders a MIDI sequence on demand for an audio player.
type midiStream struct {
	mu        sync.Mutex
	sequencer *meltysynth.MidiFileSequencer
	rendered  int
	limit     int
	stopped   bool
}

func newMIDIStream(sf *meltysynth.SoundFont, data []byte) (*midiStream, error) {
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMIDIInvalidFormat, err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	sequencer := meltysynth.NewMidiFileSequencer(synth)
	sequencer.Play(midi, false)
	return &midiStream{
		sequencer: sequencer,
		limit:     samples(midi.GetLength() + midiTail),
	}, nil
}

// Read implements io.Reader. It returns io.EOF once the sequence and its
// tail have been rendered.
func (s *midiStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.rendered >= s.limit {
		return 0, io.EOF
	}
	n := min(len(p)/4, s.limit-s.rendered)
	if n == 0 {
		return 0, nil
	}
	left := make([]float32, n)
	right := make([]float32, n)
	s.sequencer.Render(left, right)
	s.rendered += n
	return copy(p, toPCM(left, right)), nil
}

// Stop ends the stream at the next read.
func (s *midiStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
