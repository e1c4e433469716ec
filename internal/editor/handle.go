package editor

import (
	"prefabforge/internal/export"
	"prefabforge/internal/prefab"
	"prefabforge/internal/scene"
)

// Handle is the imperative surface host pages use to drive an editor, for
// example to animate node transforms from a script.
type Handle struct {
	e *Editor
}

func (e *Editor) Handle() Handle { return Handle{e: e} }

func (h Handle) Prefab() *prefab.Prefab { return h.e.Prefab() }

func (h Handle) SetPrefab(p *prefab.Prefab) error { return h.e.SetPrefab(p) }

// Screenshot captures the attached renderer's current frame.
func (h Handle) Screenshot() ([]byte, error) {
	if h.e.renderer == nil {
		return nil, scene.ErrNoHost
	}
	return h.e.renderer.Screenshot()
}

// ExportScene returns the current document as GLB bytes.
func (h Handle) ExportScene() ([]byte, error) {
	return export.Bytes(h.e.Prefab())
}
