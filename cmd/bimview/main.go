package main

import (
	"flag"
	"fmt"
	"math"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/bimview"
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
	"github.com/gekko3d/bimview/rt/gpu/wgpudev"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/xlab/closer"
)

func init() {
	runtime.LockOSThread()
}

type gpuState struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	config   *wgpu.SurfaceConfiguration
}

func initGPU(window *glfw.Window) (*gpuState, error) {
	s := &gpuState{instance: wgpu.CreateInstance(nil)}
	s.surface = s.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	var err error
	s.adapter, err = s.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: s.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, err
	}
	s.device, err = s.adapter.RequestDevice(nil)
	if err != nil {
		return nil, err
	}

	width, height := window.GetFramebufferSize()
	caps := s.surface.GetCapabilities(s.adapter)
	s.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	s.surface.Configure(s.adapter, s.device, s.config)
	return s, nil
}

func (s *gpuState) release() {
	s.surface.Release()
	s.device.Release()
	s.adapter.Release()
	s.instance.Release()
}

// box returns a unit cube mesh at p with triangle and edge indices.
func box(id string, p mgl64.Vec3, size float64, color [4]uint8) bimview.MeshParams {
	positions := make([]float64, 0, 24)
	for i := 0; i < 8; i++ {
		positions = append(positions,
			p[0]+size*float64(i&1),
			p[1]+size*float64(i>>1&1),
			p[2]+size*float64(i>>2&1))
	}
	return bimview.MeshParams{
		ID:        id,
		Primitive: core.PrimitiveTriangles,
		Positions: positions,
		Color:     color,
		Indices: []uint32{
			0, 2, 1, 1, 2, 3, // -z
			4, 5, 6, 5, 7, 6, // +z
			0, 1, 4, 1, 5, 4, // -y
			2, 6, 3, 3, 6, 7, // +y
			0, 4, 2, 2, 4, 6, // -x
			1, 3, 5, 3, 7, 5, // +x
		},
		EdgeIndices: []uint32{
			0, 1, 1, 3, 3, 2, 2, 0,
			4, 5, 5, 7, 7, 6, 6, 4,
			0, 4, 1, 5, 2, 6, 3, 7,
		},
	}
}

// loadGrid fills a model with a grid of boxes; every seventh one is glass.
func loadGrid(v *bimview.Viewer, n int, offset mgl64.Vec3) (*bimview.SceneModel, error) {
	m, err := v.CreateModel("")
	if err != nil {
		return nil, err
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			id := fmt.Sprintf("box-%d-%d", x, y)
			color := [4]uint8{uint8(40 + 200*x/n), uint8(40 + 200*y/n), 180, 255}
			if (x*n+y)%7 == 0 {
				color[3] = 110
			}
			pos := offset.Add(mgl64.Vec3{float64(x) * 2, 0, float64(y) * 2})
			if _, err := m.CreateMesh(box(id, pos, 1.2, color)); err != nil {
				return nil, err
			}
			p := bimview.NewEntityParams(id, id)
			p.Edges = true
			if _, err := m.CreateEntity(p); err != nil {
				return nil, err
			}
		}
	}
	return m, m.Finalize()
}

func main() {
	configPath := flag.String("config", "", "YAML viewer config")
	gridSize := flag.Int("grid", 24, "boxes per grid side")
	farAway := flag.Float64("offset", 0, "place the grid this far from the world origin")
	debug := flag.Bool("debug", false, "log debug messages")
	flag.Parse()
	defer closer.Close()

	cfg := bimview.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = bimview.LoadConfig(*configPath); err != nil {
			closer.Fatalln(err)
		}
	}
	cfg.Debug = cfg.Debug || *debug
	logger := core.NewDefaultLogger(cfg.LogPrefix, cfg.Debug)

	if err := glfw.Init(); err != nil {
		closer.Fatalln(err)
	}
	closer.Bind(glfw.Terminate)

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "bimview", nil, nil)
	if err != nil {
		closer.Fatalln(err)
	}
	closer.Bind(window.Destroy)

	state, err := initGPU(window)
	if err != nil {
		closer.Fatalln(err)
	}
	closer.Bind(state.release)

	dev, err := wgpudev.New(state.device, wgpudev.Options{
		SurfaceFormat: state.config.Format,
		Width:         state.config.Width,
		Height:        state.config.Height,
		Logger:        logger,
	})
	if err != nil {
		closer.Fatalln(err)
	}
	closer.Bind(dev.Release)

	viewer, err := bimview.NewViewerBuilder(dev).
		UseConfig(cfg).
		UseLogger(logger).
		UseModule(bimview.FrustumCullingModule{}, &bimview.StatsModule{Every: 600}).
		Build()
	if err != nil {
		closer.Fatalln(err)
	}
	closer.Bind(viewer.Destroy)

	view, _ := viewer.CreateView("main")
	offset := mgl64.Vec3{*farAway, 0, *farAway}
	model, err := loadGrid(viewer, *gridSize, offset)
	if err != nil {
		closer.Fatalln(err)
	}
	entities := model.Entities()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if width == 0 || height == 0 {
			return
		}
		state.config.Width, state.config.Height = uint32(width), uint32(height)
		state.surface.Configure(state.adapter, state.device, state.config)
		if err := dev.Resize(uint32(width), uint32(height)); err != nil {
			logger.Errorf("resize: %v", err)
		}
	})

	xray, cut := false, false
	selected := 0
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyX:
			xray = !xray
			for i, e := range entities {
				if i != selected {
					e.SetXRayed(view, xray)
				}
			}
		case glfw.KeyN:
			entities[selected].SetSelected(view, false)
			selected = (selected + 1) % len(entities)
			entities[selected].SetSelected(view, true)
		case glfw.KeyG:
			g := view.GlowThrough()
			view.SetGlowThrough(core.GlowThrough{Highlighted: !g.Highlighted, Selected: !g.Selected})
		case glfw.KeyC:
			cut = !cut
			if cut {
				center := model.AABB().Center()
				view.AddSectionPlane(&core.SectionPlane{ID: "cut", Pos: center, Dir: mgl32.Vec3{1, 0, 0}})
			} else {
				view.RemoveSectionPlane("cut")
			}
		case glfw.KeyR:
			viewer.Recompile()
		}
	})
	entities[selected].SetSelected(view, true)

	center := model.AABB().Center()
	radius := model.AABB().Extent().Len()
	for !window.ShouldClose() {
		glfw.PollEvents()

		t := glfw.GetTime() * 0.2
		eye := center.Add(mgl64.Vec3{math.Cos(t) * radius, radius * 0.5, math.Sin(t) * radius})
		width, height := window.GetFramebufferSize()
		aspect := float32(width) / float32(max(height, 1))
		view.SetCamera(
			mgl64.LookAtV(eye, center, mgl64.Vec3{0, 1, 0}),
			mgl32.Perspective(mgl32.DegToRad(50), aspect, 0.1, float32(radius*4)),
			eye,
		)

		if err := frame(state, dev, viewer, view); err != nil {
			logger.Errorf("frame: %v", err)
		}
	}
}

func frame(state *gpuState, dev *wgpudev.Device, viewer *bimview.Viewer, view *core.View) error {
	next, err := state.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	defer next.Release()
	target, err := next.CreateView(nil)
	if err != nil {
		return err
	}
	defer target.Release()

	dev.BeginFrame()
	if err := dev.BeginPass(gpu.TargetSurface, target, wgpu.Color{R: 0.12, G: 0.13, B: 0.15, A: 1}, true); err != nil {
		return err
	}
	viewer.RenderFrame(view)
	if err := dev.EndPass(); err != nil {
		return err
	}
	state.surface.Present()
	return nil
}
