// Package audio plays one-shot sounds for the scene. The service is
// constructed explicitly and injected; the output device is only opened on
// first real use, and a Noop service stands in when there is none.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"prefabforge/internal/logging"
)

var ErrUnavailable = errors.New("audio device unavailable")

// Sound is a backend-specific loaded sound.
type Sound any

// Backend is the device layer, implemented on raylib by the render host.
type Backend interface {
	Init() error
	Load(path string) (Sound, error)
	Play(s Sound)
	Stop(s Sound)
	SetVolume(s Sound, volume float32)
	Unload(s Sound)
	Close()
}

type Service interface {
	Load(path string) error
	Play(path string)
	Stop(path string)
	SetVolume(path string, volume float32)
	// SetPlayMode gates playback: sounds requested while it is off start
	// when it turns on, and turning it off stops everything.
	SetPlayMode(enabled bool)
	Close()
}

// Noop discards everything.
type Noop struct{}

func (Noop) Load(string) error { return nil }
func (Noop) Play(string)       {}
func (Noop) Stop(string)       {}

func (Noop) SetVolume(string, float32) {}
func (Noop) SetPlayMode(bool)          {}
func (Noop) Close()                    {}

type source struct {
	sound       Sound
	playing     bool
	wantsToPlay bool
}

// Manager is the Service over a real backend.
type Manager struct {
	backend Backend
	log     logging.Log

	mu       sync.Mutex
	started  bool
	failed   bool
	playMode bool
	sources  map[string]*source
}

// New returns a lazily initialised service, or Noop when backend is nil.
func New(backend Backend, log logging.Log) Service {
	if backend == nil {
		return Noop{}
	}
	return &Manager{backend: backend, log: logging.OrNop(log), sources: make(map[string]*source)}
}

// start opens the device once; the caller holds mu.
func (m *Manager) start() bool {
	if m.failed {
		return false
	}
	if m.started {
		return true
	}
	if err := m.backend.Init(); err != nil {
		m.failed = true
		m.log.Warn("audio disabled", logging.Err(err))
		return false
	}
	m.started = true
	m.log.Debug("audio device ready")
	return true
}

func (m *Manager) load(path string) (*source, error) {
	if src, ok := m.sources[path]; ok {
		return src, nil
	}
	if !m.start() {
		return nil, ErrUnavailable
	}
	s, err := m.backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load sound %s: %w", path, err)
	}
	src := &source{sound: s}
	m.sources[path] = src
	return src, nil
}

func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.load(path)
	return err
}

func (m *Manager) Play(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, err := m.load(path)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			m.log.Warn("sound not played", logging.String("path", path), logging.Err(err))
		}
		return
	}
	if !m.playMode {
		src.wantsToPlay = true
		return
	}
	m.backend.Play(src.sound)
	src.playing = true
}

func (m *Manager) Stop(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[path]
	if !ok {
		return
	}
	src.wantsToPlay = false
	if src.playing {
		m.backend.Stop(src.sound)
		src.playing = false
	}
}

func (m *Manager) SetVolume(path string, volume float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src, ok := m.sources[path]; ok {
		m.backend.SetVolume(src.sound, volume)
	}
}

func (m *Manager) SetPlayMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playMode = enabled
	for _, src := range m.sources {
		switch {
		case enabled && src.wantsToPlay && !src.playing:
			m.backend.Play(src.sound)
			src.playing = true
			src.wantsToPlay = false
		case !enabled && src.playing:
			m.backend.Stop(src.sound)
			src.playing = false
		}
	}
}

// Close unloads every sound and releases the device if it was opened.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, src := range m.sources {
		m.backend.Unload(src.sound)
	}
	m.sources = make(map[string]*source)
	if m.started {
		m.backend.Close()
		m.started = false
	}
}
