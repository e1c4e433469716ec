// Package store persists prefab documents on disk and reports external
// changes to them.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"prefabforge/internal/logging"
	"prefabforge/internal/prefab"
)

// LoadFile reads and validates a prefab document.
func LoadFile(path string) (*prefab.Prefab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := prefab.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SaveFile writes p next to path and renames it into place, so readers
// never see a half-written document.
func SaveFile(path string, p *prefab.Prefab) error {
	data, err := prefab.Marshal(p)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Reload is one observed external change. Err is set when the new content
// could not be loaded; the caller keeps its current document then.
type Reload struct {
	Prefab *prefab.Prefab
	Err    error
}

// File is a document on disk. It remembers the digest of the content it
// last read or wrote so its own saves are not reported as changes.
type File struct {
	Path string
	log  logging.Log

	mu     sync.Mutex
	digest uint64
}

func Open(path string, log logging.Log) *File {
	return &File{Path: path, log: logging.OrNop(log)}
}

func (f *File) Load() (*prefab.Prefab, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	p, err := prefab.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	f.remember(data)
	return p, nil
}

func (f *File) Save(p *prefab.Prefab) error {
	data, err := prefab.Marshal(p)
	if err != nil {
		return err
	}
	f.remember(data)
	if err := writeAtomic(f.Path, data); err != nil {
		return err
	}
	f.log.Info("prefab saved", logging.String("path", f.Path), logging.Int("bytes", len(data)))
	return nil
}

func (f *File) remember(data []byte) {
	f.mu.Lock()
	f.digest = xxhash.Sum64(data)
	f.mu.Unlock()
}

// changed records data as current and reports whether it differs from
// what was last seen.
func (f *File) changed(data []byte) bool {
	sum := xxhash.Sum64(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	if sum == f.digest {
		return false
	}
	f.digest = sum
	return true
}

// Watch reports external changes to the file until ctx is done. The
// directory is watched rather than the file so atomic replacements by
// editors and by Save are seen. Reloads are delivered on the returned
// channel, which is closed when watching stops; hosts drain it from their
// frame loop.
func (f *File) Watch(ctx context.Context) (<-chan Reload, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", f.Path, err)
	}
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", f.Path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", f.Path, err)
	}

	out := make(chan Reload, 1)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				r, ok := f.reload()
				if !ok {
					continue
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn("watch error", logging.String("path", f.Path), logging.Err(err))
			}
		}
	}()
	return out, nil
}

func (f *File) reload() (Reload, bool) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		// renamed away or mid-replace; the following create reports it
		return Reload{}, false
	}
	if !f.changed(data) {
		return Reload{}, false
	}
	p, err := prefab.Parse(data)
	if err != nil {
		f.log.Warn("reloaded prefab rejected", logging.String("path", f.Path), logging.Err(err))
		return Reload{Err: err}, true
	}
	f.log.Info("prefab changed on disk", logging.String("path", f.Path))
	return Reload{Prefab: p}, true
}
