package rlhost

import (
	"fmt"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"prefabforge/internal/audio"
)

// AudioBackend plays sounds through the raylib audio device. Paths are
// resolved against Root.
type AudioBackend struct {
	Root string
}

func (b AudioBackend) Init() error {
	rl.InitAudioDevice()
	if !rl.IsAudioDeviceReady() {
		return audio.ErrUnavailable
	}
	return nil
}

func (b AudioBackend) Load(path string) (audio.Sound, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(b.Root, path)
	}
	s := rl.LoadSound(full)
	if !rl.IsSoundValid(s) {
		return nil, fmt.Errorf("load sound %s: invalid data", path)
	}
	return s, nil
}

func (b AudioBackend) Play(s audio.Sound) {
	if snd, ok := s.(rl.Sound); ok {
		rl.PlaySound(snd)
	}
}

func (b AudioBackend) Stop(s audio.Sound) {
	if snd, ok := s.(rl.Sound); ok {
		rl.StopSound(snd)
	}
}

func (b AudioBackend) SetVolume(s audio.Sound, volume float32) {
	if snd, ok := s.(rl.Sound); ok {
		rl.SetSoundVolume(snd, volume)
	}
}

func (b AudioBackend) Unload(s audio.Sound) {
	if snd, ok := s.(rl.Sound); ok {
		rl.UnloadSound(snd)
	}
}

func (b AudioBackend) Close() { rl.CloseAudioDevice() }
