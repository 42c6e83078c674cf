// Package audio plays the sounds, tones and music strings requested by
// running programs, mixing them through a shared Ebitengine audio
// context.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

var (
	// ErrSoundNotRegistered is returned by Play for unknown names.
	ErrSoundNotRegistered = errors.New("sound not registered")
	// ErrSoundFileNotFound is returned by Register for missing files.
	ErrSoundFileNotFound = errors.New("sound file not found")
	// ErrUnsupportedFormat is returned for files other than WAV and MIDI.
	ErrUnsupportedFormat = errors.New("unsupported sound format")
	// ErrWAVInvalidFormat is returned when a WAV file cannot be decoded.
	ErrWAVInvalidFormat = errors.New("invalid WAV file format")
	// ErrInvalidTone is returned for out of range tone parameters.
	ErrInvalidTone = errors.New("invalid tone")
)

// Tone limits follow the classic SOUND statement.
const (
	MinFrequency = 37
	MaxFrequency = 32767
)

// Beep parameters.
const (
	beepFrequency = 800
	beepDuration  = 250 * time.Millisecond
)

// Event is one entry of the mixer history.
type Event struct {
	Kind   string // register, play, tone, beep, notes
	Detail string
	Muted  bool
}

// Mixer implements the engine audio sink.
type Mixer struct {
	mu        sync.Mutex
	log       *slog.Logger
	ctx       *audio.Context
	muted     bool
	volume    float64
	baseDir   string
	fsys      fs.FS
	soundFont *meltysynth.SoundFont
	sounds    map[string]string
	players   []*audio.Player
	streams   []*midiStream
	history   []Event
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mixer) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMuted validates and logs requests without producing sound.
func WithMuted(muted bool) Option {
	return func(m *Mixer) { m.muted = muted }
}

// WithVolume sets the master volume in [0,1].
func WithVolume(v float64) Option {
	return func(m *Mixer) { m.volume = max(0, min(v, 1)) }
}

// WithBaseDir resolves relative sound paths against dir.
func WithBaseDir(dir string) Option {
	return func(m *Mixer) { m.baseDir = dir }
}

// WithFS reads relative sound paths from fsys.
func WithFS(fsys fs.FS) Option {
	return func(m *Mixer) { m.fsys = fsys }
}

// WithSoundFont uses an already loaded SoundFont for notes and MIDI.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(m *Mixer) { m.soundFont = sf }
}

// WithContext shares an existing audio context.
func WithContext(ctx *audio.Context) Option {
	return func(m *Mixer) { m.ctx = ctx }
}

// NewMixer creates a mixer. The audio context is created on first use.
func NewMixer(opts ...Option) *Mixer {
	m := &Mixer{
		log:    slog.Default(),
		volume: 1,
		sounds: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// context returns the shared audio context, creating it if needed.
// Must be called with m.mu held.
func (m *Mixer) context() *audio.Context {
	if m.ctx == nil {
		if ctx := audio.CurrentContext(); ctx != nil {
			m.ctx = ctx
		} else {
			m.ctx = audio.NewContext(SampleRate)
		}
	}
	return m.ctx
}

// Register associates name with a WAV or MIDI file.
func (m *Mixer) Register(name, file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("sound name must not be empty")
	}
	switch strings.ToLower(path.Ext(file)) {
	case ".wav", ".mid", ".midi":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, file)
	}
	if !m.exists(file) {
		return fmt.Errorf("%w: %s", ErrSoundFileNotFound, file)
	}

	m.sounds[strings.ToLower(name)] = file
	m.record("register", name+"="+file)
	m.log.Debug("sound registered", "name", name, "file", file)
	return nil
}

// Play starts a registered sound. Sounds overlap.
func (m *Mixer) Play(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.sounds[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSoundNotRegistered, name)
	}
	m.record("play", name)
	if m.muted {
		m.log.Info("sound (muted)", "name", name, "file", file)
		return nil
	}

	data, err := m.read(file)
	if err != nil {
		return err
	}
	m.cleanup()

	if ext := strings.ToLower(path.Ext(file)); ext == ".mid" || ext == ".midi" {
		if m.soundFont == nil {
			return ErrNoSoundFont
		}
		stream, err := newMIDIStream(m.soundFont, data)
		if err != nil {
			return err
		}
		player, err := m.context().NewPlayer(stream)
		if err != nil {
			return fmt.Errorf("failed to create audio player: %w", err)
		}
		m.start(player)
		m.streams = append(m.streams, stream)
		return nil
	}

	stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWAVInvalidFormat, err)
	}
	player, err := m.context().NewPlayer(stream)
	if err != nil {
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	m.start(player)
	return nil
}

// Tone plays freq Hz for ms milliseconds. With a SoundFont the voice is a
// General MIDI program number.
func (m *Mixer) Tone(freq float64, ms int, volume float64, voiceNum int) error {
	if freq < MinFrequency || freq > MaxFrequency {
		return fmt.Errorf("%w: frequency %g out of range %d-%d", ErrInvalidTone, freq, MinFrequency, MaxFrequency)
	}
	if ms <= 0 {
		return fmt.Errorf("%w: duration %dms", ErrInvalidTone, ms)
	}
	volume = max(0, min(volume, 1))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("tone", fmt.Sprintf("%gHz %dms", freq, ms))
	if m.muted {
		m.log.Debug("tone (muted)", "freq", freq, "ms", ms, "volume", volume, "voice", voiceNum)
		return nil
	}

	v, err := m.voice(voiceNum)
	if err != nil {
		return err
	}
	d := time.Duration(ms) * time.Millisecond
	return m.playPCM(v.render(FrequencyKey(freq), freq, d, d, volume))
}

// Beep plays a short fixed tone.
func (m *Mixer) Beep() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("beep", "")
	if m.muted {
		m.log.Debug("beep (muted)")
		return nil
	}
	return m.playPCM(sineVoice{}.render(0, beepFrequency, beepDuration, beepDuration, 1))
}

// PlayNotes plays a music string in the background.
func (m *Mixer) PlayNotes(mml string) error {
	notes, err := ParseMML(mml)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("notes", fmt.Sprintf("%d notes %s", len(notes), TotalDuration(notes)))
	if m.muted || len(notes) == 0 {
		m.log.Debug("music string", "notes", len(notes), "duration", TotalDuration(notes), "muted", m.muted)
		return nil
	}

	v, err := m.voice(0)
	if err != nil {
		return err
	}
	return m.playPCM(renderNotes(v, notes, 1))
}

// voice picks the SoundFont when one is loaded. Must be called with m.mu
// held.
func (m *Mixer) voice(program int) (voice, error) {
	if m.soundFont == nil {
		return sineVoice{}, nil
	}
	return newFontVoice(m.soundFont, program)
}

// playPCM must be called with m.mu held.
func (m *Mixer) playPCM(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	m.cleanup()
	m.start(m.context().NewPlayerFromBytes(pcm))
	return nil
}

func (m *Mixer) start(player *audio.Player) {
	player.SetVolume(m.volume)
	player.Play()
	m.players = append(m.players, player)
}

// cleanup closes finished players. Must be called with m.mu held.
func (m *Mixer) cleanup() {
	active := m.players[:0]
	for _, p := range m.players {
		if p.IsPlaying() {
			active = append(active, p)
		} else {
			p.Close()
		}
	}
	m.players = active
}

// Update is called once per frame to release finished players.
func (m *Mixer) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanup()
}

// SetMuted switches muted mode. Active players are silenced too.
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	for _, p := range m.players {
		if muted {
			p.SetVolume(0)
		} else {
			p.SetVolume(m.volume)
		}
	}
}

// Muted reports whether the mixer is muted.
func (m *Mixer) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// ActivePlayers returns the number of players not yet released.
func (m *Mixer) ActivePlayers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Close stops everything.
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		s.Stop()
	}
	for _, p := range m.players {
		p.Close()
	}
	m.players = nil
	m.streams = nil
}

// History returns a copy of the request history.
func (m *Mixer) History() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.history...)
}

func (m *Mixer) record(kind, detail string) {
	m.history = append(m.history, Event{Kind: kind, Detail: detail, Muted: m.muted})
}

func (m *Mixer) exists(file string) bool {
	if m.fsys != nil && !filepath.IsAbs(file) {
		_, err := fs.Stat(m.fsys, strings.TrimPrefix(filepath.ToSlash(file), "/"))
		return err == nil
	}
	_, err := os.Stat(m.resolve(file))
	return err == nil
}

func (m *Mixer) read(file string) ([]byte, error) {
	var data []byte
	var err error
	if m.fsys != nil && !filepath.IsAbs(file) {
		data, err = fs.ReadFile(m.fsys, strings.TrimPrefix(filepath.ToSlash(file), "/"))
	} else {
		data, err = os.ReadFile(m.resolve(file))
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSoundFileNotFound, file)
		}
		return nil, fmt.Errorf("failed to read sound file: %w", err)
	}
	return data, nil
}

func (m *Mixer) resolve(file string) string {
	if m.baseDir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(m.baseDir, file)
}
