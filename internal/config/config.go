// Package config loads the YAML configuration shared by the editor binary
// and the headless tools. Every value has a default; a file only needs the
// keys it changes.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"prefabforge/internal/editor"
	"prefabforge/internal/scene"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Editor   EditorConfig  `yaml:"editor"`
	Assets   AssetsConfig  `yaml:"assets"`
	Physics  PhysicsConfig `yaml:"physics"`
	Log      LogConfig     `yaml:"log"`
	Window   WindowConfig  `yaml:"window"`
	Headless bool          `yaml:"headless"`
}

type EditorConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
	HistoryDepth   int           `yaml:"history_depth"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	ClickTolerance float32       `yaml:"click_tolerance"`
	EditMode       bool          `yaml:"edit_mode"`
}

type AssetsConfig struct {
	Root           string `yaml:"root"`
	PreloadWorkers int    `yaml:"preload_workers"`
}

type PhysicsConfig struct {
	Enabled  bool       `yaml:"enabled"`
	Gravity  [3]float32 `yaml:"gravity"`
	CellSize float32    `yaml:"cell_size"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WindowConfig struct {
	Width     int32  `yaml:"width"`
	Height    int32  `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int32  `yaml:"target_fps"`
}

func Default() Config {
	return Config{
		Editor: EditorConfig{
			DebounceWindow: editor.DefaultDebounceWindow,
			HistoryDepth:   editor.DefaultHistoryDepth,
			SettleDelay:    scene.DefaultSettleDelay,
			EditMode:       true,
		},
		Assets:  AssetsConfig{Root: ".", PreloadWorkers: 4},
		Physics: PhysicsConfig{Enabled: true, Gravity: [3]float32{0, -9.81, 0}, CellSize: 5},
		Log:     LogConfig{Level: "info"},
		Window:  WindowConfig{Width: 1280, Height: 720, Title: "Prefab Editor", TargetFPS: 60},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes YAML from r over the defaults and validates the result.
func Read(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Editor.DebounceWindow < 0:
		return fmt.Errorf("%w: editor.debounce_window must not be negative", ErrInvalid)
	case c.Editor.HistoryDepth < 1:
		return fmt.Errorf("%w: editor.history_depth must be at least 1", ErrInvalid)
	case c.Editor.ClickTolerance < 0:
		return fmt.Errorf("%w: editor.click_tolerance must not be negative", ErrInvalid)
	case c.Assets.PreloadWorkers < 1:
		return fmt.Errorf("%w: assets.preload_workers must be at least 1", ErrInvalid)
	case c.Physics.CellSize <= 0:
		return fmt.Errorf("%w: physics.cell_size must be positive", ErrInvalid)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size must be positive", ErrInvalid)
	}
	return nil
}

// EditorOptions maps the editor section onto editor.Options.
func (c Config) EditorOptions() (editor.Options, error) {
	var o editor.Options
	return o, mapSection(&o, &c.Editor)
}

// SceneOptions maps the editor section onto scene.Options.
func (c Config) SceneOptions() (scene.Options, error) {
	var o scene.Options
	return o, mapSection(&o, &c.Editor)
}

func mapSection(to, from any) error {
	if err := copier.Copy(to, from); err != nil {
		return fmt.Errorf("map %T onto %T: %w", from, to, err)
	}
	return nil
}

func (c Config) Gravity() mgl32.Vec3 {
	return mgl32.Vec3(c.Physics.Gravity)
}
