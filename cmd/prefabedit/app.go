package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"prefabforge/internal/assets"
	"prefabforge/internal/audio"
	"prefabforge/internal/components"
	"prefabforge/internal/config"
	"prefabforge/internal/editor"
	"prefabforge/internal/logging"
	"prefabforge/internal/physics"
	"prefabforge/internal/prefab"
	"prefabforge/internal/rlhost"
	"prefabforge/internal/scene"
	"prefabforge/internal/store"
)

var colorBackground = rl.NewColor(30, 30, 38, 255)

type App struct {
	cfg config.Config
	log logging.Log

	file     *store.File
	assets   *assets.Manager
	sim      *physics.Sim
	sound    audio.Service
	host     *rlhost.Host
	renderer *scene.Renderer
	editor   *editor.Editor
	reloads  <-chan store.Reload

	camera *rlhost.OrbitCamera
	ui     *panels

	status     string
	statusTime time.Time
}

func newApp(ctx context.Context, cfg config.Config, path string, log logging.Log) (*App, error) {
	a := &App{cfg: cfg, log: log, camera: rlhost.NewOrbitCamera()}

	a.file = store.Open(path, log.With(logging.String("component", "store")))
	p, err := a.file.Load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("starting new document", logging.String("path", path))
		p = editor.Empty()
	case err != nil:
		return nil, err
	}

	a.assets = assets.NewManager(assets.FileLoader{Root: cfg.Assets.Root}, log.With(logging.String("component", "assets")))
	if err := a.assets.Preload(ctx, modelPaths(p), cfg.Assets.PreloadWorkers); err != nil {
		log.Warn("preload incomplete", logging.Err(err))
	}

	var world physics.World
	if cfg.Physics.Enabled {
		a.sim = physics.NewSim(cfg.Gravity(), cfg.Physics.CellSize, log.With(logging.String("component", "physics")))
		world = a.sim
	}

	var backend audio.Backend
	var host scene.Host
	if !cfg.Headless {
		backend = rlhost.AudioBackend{Root: cfg.Assets.Root}
		a.host = rlhost.New(a.assets, log.With(logging.String("component", "host")))
		host = a.host
	}
	a.sound = audio.New(backend, log.With(logging.String("component", "audio")))

	sceneOpts, err := cfg.SceneOptions()
	if err != nil {
		return nil, err
	}
	editorOpts, err := cfg.EditorOptions()
	if err != nil {
		return nil, err
	}

	reg := components.NewRegistry()
	a.renderer = scene.New(scene.Deps{
		Registry: reg,
		Host:     host,
		Assets:   a.assets,
		Physics:  world,
		Audio:    a.sound,
		Log:      log.With(logging.String("component", "scene")),
	}, sceneOpts)
	if a.host != nil {
		a.renderer.Batches().Release = a.host.Release
	}

	a.editor = editor.New(p, reg, editorOpts, log.With(logging.String("component", "editor")))
	a.editor.Attach(a.renderer)

	a.reloads, err = a.file.Watch(ctx)
	if err != nil {
		log.Warn("hot reload disabled", logging.Err(err))
	}
	return a, nil
}

// modelPaths lists every model file referenced by p.
func modelPaths(p *prefab.Prefab) []string {
	var out []string
	for _, n := range prefab.Flatten(p.Root) {
		if c := n.Component("model"); c != nil {
			if f := c.String("filename"); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

func (a *App) Run(ctx context.Context) error {
	w := a.cfg.Window
	rl.SetConfigFlags(rl.FlagWindowHighdpi)
	rl.InitWindow(w.Width, w.Height, w.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(w.TargetFPS)
	defer a.host.Close()

	a.ui = newPanels()
	for !rl.WindowShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.drainReloads()

		blocked := a.ui.contains(rl.GetMousePosition())
		a.camera.Update(blocked)
		a.handleKeys()
		a.host.HandleInput(a.renderer, a.camera, blocked)
		a.renderer.Frame(rl.GetFrameTime())
		a.editor.Tick()

		rl.BeginDrawing()
		rl.ClearBackground(colorBackground)
		a.host.Draw(a.camera, a.renderer.Selected(), a.renderer.EditMode())
		a.ui.draw(a)
		rl.EndDrawing()
	}
	return nil
}

// RunHeadless advances the scene a fixed number of frames without a
// window and reports what was built.
func (a *App) RunHeadless(ctx context.Context, frames int) error {
	const dt = float32(1.0 / 60)
	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.drainReloads()
		a.renderer.Frame(dt)
		a.editor.Tick()
	}
	fields := []logging.Field{
		logging.Int("frames", frames),
		logging.Int("nodes", len(prefab.Flatten(a.editor.Prefab().Root))),
		logging.Int("batches", len(a.renderer.Batches().Groups())),
		logging.Duration("elapsed", time.Since(start)),
	}
	if a.sim != nil {
		fields = append(fields, logging.Int("bodies", a.sim.BodyCount()))
	}
	a.log.Info("headless run finished", fields...)
	return nil
}

func (a *App) drainReloads() {
	for {
		select {
		case r, ok := <-a.reloads:
			if !ok {
				a.reloads = nil
				return
			}
			if r.Err != nil {
				a.notify("reload rejected: " + r.Err.Error())
				continue
			}
			if err := a.editor.SetPrefab(r.Prefab); err != nil {
				a.notify("reload rejected: " + err.Error())
				continue
			}
			a.notify("reloaded from disk")
		default:
			return
		}
	}
}

func (a *App) notify(msg string) {
	a.status = msg
	a.statusTime = time.Now()
	a.log.Info(msg)
}

func ctrlDown() bool {
	return rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) ||
		rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)
}

func (a *App) handleKeys() {
	shift := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	sel := a.editor.Selected()
	switch {
	case ctrlDown() && rl.IsKeyPressed(rl.KeyZ) && shift:
		a.editor.Redo()
	case ctrlDown() && rl.IsKeyPressed(rl.KeyZ):
		a.editor.Undo()
	case ctrlDown() && rl.IsKeyPressed(rl.KeyY):
		a.editor.Redo()
	case ctrlDown() && rl.IsKeyPressed(rl.KeyS):
		a.save()
	case ctrlDown() && rl.IsKeyPressed(rl.KeyE):
		a.export()
	case ctrlDown() && rl.IsKeyPressed(rl.KeyD) && sel != "":
		a.report(a.editor.DuplicateNode(sel))
	case rl.IsKeyPressed(rl.KeyDelete) && sel != "":
		a.report("", a.editor.DeleteNode(sel))
	case rl.IsKeyPressed(rl.KeyF) && sel != "":
		a.focus(sel)
	case rl.IsKeyPressed(rl.KeyP):
		a.togglePlay()
	case rl.IsKeyPressed(rl.KeyEscape):
		a.editor.Select("")
	}
}

func (a *App) report(_ string, err error) {
	if err != nil {
		a.notify(err.Error())
	}
}

func (a *App) save() {
	if err := a.file.Save(a.editor.Prefab()); err != nil {
		a.notify("save failed: " + err.Error())
		return
	}
	a.editor.History().Flush()
	a.notify("saved " + a.file.Path)
}

func (a *App) export() {
	data, err := a.editor.Handle().ExportScene()
	if err != nil {
		a.notify("export failed: " + err.Error())
		return
	}
	out := strings.TrimSuffix(a.file.Path, ".json") + ".glb"
	if err := os.WriteFile(out, data, 0o644); err != nil {
		a.notify("export failed: " + err.Error())
		return
	}
	a.notify(fmt.Sprintf("exported %s (%d bytes)", out, len(data)))
}

func (a *App) focus(id string) {
	pose, ok := a.renderer.WorldPose(id)
	if !ok {
		return
	}
	radius := pose.Scale.Len()
	a.camera.Focus(pose.Position, radius)
}

func (a *App) togglePlay() {
	a.editor.History().Flush()
	a.renderer.SetEditMode(!a.renderer.EditMode())
	if a.renderer.EditMode() {
		a.notify("edit mode")
	} else {
		a.notify("play mode")
	}
}

func (a *App) Close() {
	a.renderer.Close()
	a.assets.Close()
	a.sound.Close()
}
