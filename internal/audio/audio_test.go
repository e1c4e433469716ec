package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	initErr error
	inits   int
	closed  bool
	loaded  []string
	played  []string
	stopped []string
	unload  int
}

func (f *fakeBackend) Init() error {
	f.inits++
	return f.initErr
}

func (f *fakeBackend) Load(path string) (Sound, error) {
	if path == "missing.wav" {
		return nil, errors.New("no such file")
	}
	f.loaded = append(f.loaded, path)
	return path, nil
}

func (f *fakeBackend) Play(s Sound)             { f.played = append(f.played, s.(string)) }
func (f *fakeBackend) Stop(s Sound)             { f.stopped = append(f.stopped, s.(string)) }
func (f *fakeBackend) SetVolume(Sound, float32) {}
func (f *fakeBackend) Unload(Sound)             { f.unload++ }
func (f *fakeBackend) Close()                   { f.closed = true }

func TestNilBackendIsNoop(t *testing.T) {
	s := New(nil, nil)
	assert.IsType(t, Noop{}, s)
	assert.NoError(t, s.Load("hit.wav"))
	s.Play("hit.wav")
	s.Close()
}

func TestLazyInit(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)
	assert.Zero(t, b.inits, "no device until first use")

	require.NoError(t, s.Load("hit.wav"))
	require.NoError(t, s.Load("hit.wav"))
	assert.Equal(t, 1, b.inits)
	assert.Equal(t, []string{"hit.wav"}, b.loaded)

	assert.Error(t, s.Load("missing.wav"))

	s.Close()
	assert.True(t, b.closed)
	assert.Equal(t, 1, b.unload)
}

func TestInitFailureDegradesSilently(t *testing.T) {
	b := &fakeBackend{initErr: errors.New("no device")}
	s := New(b, nil)

	assert.ErrorIs(t, s.Load("hit.wav"), ErrUnavailable)
	s.SetPlayMode(true)
	s.Play("hit.wav")
	assert.Equal(t, 1, b.inits, "init is not retried")
	assert.Empty(t, b.played)

	s.Close()
	assert.False(t, b.closed)
}

func TestPlayModeGatesPlayback(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, nil)

	s.Play("hit.wav")
	assert.Empty(t, b.played, "deferred until play mode")

	s.SetPlayMode(true)
	assert.Equal(t, []string{"hit.wav"}, b.played)

	s.Play("hit.wav")
	assert.Len(t, b.played, 2)

	s.SetPlayMode(false)
	assert.Equal(t, []string{"hit.wav"}, b.stopped)

	s.Stop("unknown.wav")
	assert.Len(t, b.stopped, 1)
}
