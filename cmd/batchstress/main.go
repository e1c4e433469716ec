// Stress test comparing instanced batches against standalone nodes, with
// physics running, at increasing node counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/assets"
	"prefabforge/internal/logging"
	"prefabforge/internal/physics"
	"prefabforge/internal/prefab"
	"prefabforge/internal/scene"
)

const asset = "crate.glb"

func main() {
	counts := flag.String("counts", "100,500,1000,2000,5000", "comma separated node counts")
	frames := flag.Int("frames", 60, "simulated frames per run")
	seed := flag.Int64("seed", 42, "random seed for node placement")
	level := flag.String("log", "warn", "log level")
	flag.Parse()
	if *frames < 1 {
		*frames = 1
	}

	log, err := logging.New(*level, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, field := range strings.Split(*counts, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "bad count %q\n", field)
			os.Exit(2)
		}
		standalone := run(n, *frames, *seed, false, log)
		instanced := run(n, *frames, *seed, true, log)
		fmt.Printf("%5d nodes: standalone %s | instanced %s | %.1fx frame speedup\n",
			n, standalone, instanced, float64(standalone.frame)/float64(instanced.frame))
	}
}

type result struct {
	build   time.Duration
	frame   time.Duration
	move    time.Duration
	bodies  int
	batches int
}

func (r result) String() string {
	return fmt.Sprintf("build %8v frame %8v move %8v (%d bodies, %d batches)",
		r.build.Round(time.Microsecond), r.frame.Round(time.Microsecond),
		r.move.Round(time.Microsecond), r.bodies, r.batches)
}

// stubModel stands in for a loaded file so the run measures the scene
// pipeline and not disk access.
func stubModel(_ context.Context, path string) assets.Result {
	return assets.Result{Success: true, Model: &assets.Model{
		Path:   path,
		Format: "glb",
		Parts:  []assets.Part{{Name: "crate", Local: mgl32.Ident4()}},
	}}
}

func run(count, frames int, seed int64, instanced bool, log logging.Log) result {
	mgr := assets.NewManager(assets.LoaderFunc(stubModel), log)
	defer mgr.Close()
	if err := mgr.Preload(context.Background(), []string{asset}, 1); err != nil {
		panic(err)
	}

	sim := physics.NewSim(mgl32.Vec3{0, -9.81, 0}, 5, log)
	r := scene.New(scene.Deps{Assets: mgr, Physics: sim, Log: log}, scene.Options{EditMode: false})
	defer r.Close()

	rng := rand.New(rand.NewSource(seed))
	spawn := 50 + float64(count)/100
	p := &prefab.Prefab{Name: "stress", Root: &prefab.GameObject{ID: "root"}}
	for i := 0; i < count; i++ {
		pos := []any{rng.Float64()*spawn - spawn/2, rng.Float64() * spawn, rng.Float64()*spawn - spawn/2}
		p.Root.Children = append(p.Root.Children, crate(fmt.Sprintf("n%05d", i), pos, instanced))
	}

	start := time.Now()
	r.SetPrefab(p)
	var res result
	res.build = time.Since(start)

	start = time.Now()
	for i := 0; i < frames; i++ {
		r.Frame(1.0 / 60)
	}
	res.frame = time.Since(start) / time.Duration(frames)

	// Shift every node once to measure a full re-sync.
	moved := make([]*prefab.GameObject, len(p.Root.Children))
	for i, c := range p.Root.Children {
		pos := c.Component(prefab.KeyTransform).Properties["position"].([]any)
		moved[i] = crate(c.ID, []any{pos[0], pos[1].(float64) + 1, pos[2]}, instanced)
	}
	start = time.Now()
	r.SetPrefab(p.WithRoot(&prefab.GameObject{ID: "root", Children: moved}))
	res.move = time.Since(start)

	res.bodies = sim.BodyCount()
	res.batches = len(r.Batches().Groups())
	return res
}

func crate(id string, pos []any, instanced bool) *prefab.GameObject {
	return &prefab.GameObject{ID: id, Components: map[string]*prefab.ComponentData{
		prefab.KeyTransform: {Type: "Transform", Properties: map[string]any{"position": pos}},
		prefab.KeyModel:     {Type: "Model", Properties: map[string]any{"filename": asset, "instanced": instanced}},
		prefab.KeyPhysics:   {Type: "Physics", Properties: map[string]any{"type": string(physics.Dynamic)}},
	}}
}
