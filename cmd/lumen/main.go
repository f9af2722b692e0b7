// lumen - batch aggregation demo
//
// Builds a small scene of meshes, LOD groups, and ground markers, then
// aggregates it into render batches every frame and draws the result as a
// terminal wireframe view.
//
// Controls:
//
//	A/D         - Orbit camera left/right
//	W/S         - Zoom in/out
//	Q/E         - Raise/lower camera
//	?           - Toggle HUD (batch and cache stats)
//	Esc, Ctrl+C - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/lumen/pkg/loader"
	"github.com/taigrr/lumen/pkg/material"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/mesh"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/surface"
)

var (
	targetFPS = flag.Int("fps", 60, "Target FPS")
	modelPath = flag.String("model", "", "Optional GLB model to add to the scene")
	bgColor   = flag.String("bg", "12,14,24", "Background color (R,G,B)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "lumen - batch aggregation demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: lumen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  A/D  - Orbit camera\n")
		fmt.Fprintf(os.Stderr, "  W/S  - Zoom\n")
		fmt.Fprintf(os.Stderr, "  Q/E  - Raise/lower camera\n")
		fmt.Fprintf(os.Stderr, "  ?    - Toggle HUD\n")
		fmt.Fprintf(os.Stderr, "  Esc  - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildScene populates the graph with a ring of cubes governed by LOD
// groups, ground markers, and optionally a loaded model.
func buildScene(graph *scene.Graph) error {
	cubeData := surface.NewShared(surface.NewCubeData(1))

	palette := []*material.Shared{
		material.NewShared(&material.Material{Name: "amber", BaseColor: [4]float64{1, 0.7, 0.2, 1}, Roughness: 0.8}),
		material.NewShared(&material.Material{Name: "teal", BaseColor: [4]float64{0.2, 0.8, 0.7, 1}, Roughness: 0.5}),
		material.NewShared(&material.Material{Name: "violet", BaseColor: [4]float64{0.6, 0.3, 0.9, 1}, Roughness: 0.3}),
	}
	markerMat := material.NewShared(&material.Material{Name: "marker", BaseColor: [4]float64{0.9, 0.9, 0.2, 0.6}})

	const ringSize = 12
	for i := range ringSize {
		angle := float64(i) / ringSize * 2 * math.Pi
		pos := math3d.V3(8*math.Cos(angle), 0.5, 8*math.Sin(angle))

		// Near representation: the full cube.
		near := mesh.NewNode(fmt.Sprintf("cube-%d", i))
		near.Transform = math3d.Translate(pos)
		near.Surfaces = []mesh.Surface{{Data: cubeData, Material: palette[i%len(palette)]}}
		near.SortKey = uint64(i)
		nearHandle := graph.Add(near)
		near.Self = nearHandle

		// Far representation: a smaller stand-in cube.
		far := mesh.NewNode(fmt.Sprintf("cube-%d-far", i))
		far.Transform = math3d.Translate(pos).Mul(math3d.ScaleUniform(0.4))
		far.Surfaces = []mesh.Surface{{Data: cubeData, Material: palette[i%len(palette)]}}
		far.SortKey = uint64(i)
		farHandle := graph.Add(far)
		far.Self = farHandle

		// The governing node switches the two by observer distance.
		governor := mesh.NewNode(fmt.Sprintf("cube-%d-lod", i))
		governor.LOD = &scene.LODGroup{
			Levels: []scene.LODLevel{
				{Begin: 0, End: 0.3, Objects: []scene.Handle{nearHandle}},
				{Begin: 0.3, End: 1, Objects: []scene.Handle{farHandle}},
			},
		}
		governor.Self = graph.Add(governor)

		marker := mesh.NewMarker(fmt.Sprintf("marker-%d", i), 1.5)
		marker.Position = math3d.V3(pos.X, 0, pos.Z)
		marker.Material = markerMat
		marker.Color = [4]float64{0.9, 0.9, 0.2, 0.6}
		marker.Self = graph.Add(marker)
	}

	if *modelPath != "" {
		model, err := loader.LoadGLB(*modelPath)
		if err != nil {
			return fmt.Errorf("load model: %w", err)
		}
		node := mesh.NewNode(model.Name)
		node.Transform = math3d.Translate(math3d.V3(0, 1, 0))
		for _, p := range model.Primitives {
			node.Surfaces = append(node.Surfaces, mesh.Surface{Data: p.Data, Material: p.Material})
		}
		node.Self = graph.Add(node)
	}

	return nil
}

func run() error {
	var bgR, bgG, bgB uint8 = 12, 14, 24
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	graph := scene.NewGraph()
	if err := buildScene(graph); err != nil {
		return err
	}

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)

	camera := render.NewCamera()
	camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	camera.SetClipPlanes(0.1, 100)

	rig := render.NewOrbitRig(*targetFPS)
	rig.TargetDistance = 14
	rig.TargetHeight = 6

	view := render.NewBatchView(camera, fb)
	cache := render.NewGeometryCache()

	showHUD := true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb = render.NewFramebuffer(fbWidth, fbHeight)
				view = render.NewBatchView(camera, fb)
				camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"), ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("a", "left"):
					rig.TargetAngle -= 0.3
				case ev.MatchString("d", "right"):
					rig.TargetAngle += 0.3
				case ev.MatchString("w", "up"):
					rig.TargetDistance = math.Max(3, rig.TargetDistance-1)
				case ev.MatchString("s", "down"):
					rig.TargetDistance = math.Min(40, rig.TargetDistance+1)
				case ev.MatchString("q"):
					rig.TargetHeight = math.Min(25, rig.TargetHeight+1)
				case ev.MatchString("e"):
					rig.TargetHeight = math.Max(0.5, rig.TargetHeight-1)
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					showHUD = !showHUD
				}
			}
		}
	}()

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		if dt > 0.1 {
			dt = 0.1
		}

		rig.Update()
		rig.Apply(camera)

		// Aggregate the frame.
		storage := render.FromGraph(graph, camera.Observer(), "main")
		cache.Sync(storage)
		cache.Update(dt)

		// Draw it.
		fb.Clear(render.RGB(bgR, bgG, bgB))
		view.DrawGrid(20, 2, render.RGB(40, 45, 60))
		view.DrawAxes(2)
		view.DrawStorage(storage)

		termRenderer.Render(fb)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		if showHUD {
			drawHUD(storage, cache)
		}

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// drawHUD prints batch and cache statistics on the top line.
func drawHUD(storage *render.BatchStorage, cache *render.GeometryCache) {
	instances := 0
	for i := range storage.Batches {
		instances += len(storage.Batches[i].Instances)
	}
	stats := cache.Stats()
	fmt.Printf("\x1b[1;1H\x1b[2K\x1b[40m\x1b[92m %d batches  %d instances  cache %d live (%d hit / %d miss / %d evict) \x1b[0m",
		len(storage.Batches), instances, cache.Len(), stats.Hits, stats.Misses, stats.Evictions)
}
