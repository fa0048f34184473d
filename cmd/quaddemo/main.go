// Command quaddemo renders a grid of quads with a HUD overlay on the
// first available GPU backend and saves the last frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/quad"
	"github.com/gogpu/quad/hud"
	"github.com/gogpu/quad/overlay"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		width      = flag.Uint("width", 0, "image width")
		height     = flag.Uint("height", 0, "image height")
		frames     = flag.Int("frames", 0, "frames to render")
		grid       = flag.Int("grid", -1, "quads per grid side")
		output     = flag.String("output", "", "output file")
		backend    = flag.String("backend", "", "vulkan, metal, dx12, gl, software or auto")
		debug      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := loadConfigFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = uint32(*width)
		case "height":
			cfg.Height = uint32(*height)
		case "frames":
			cfg.Frames = *frames
		case "grid":
			cfg.Grid = *grid
		case "output":
			cfg.Output = *output
		case "backend":
			cfg.Backend = *backend
		case "v":
			cfg.Debug = *debug
		}
	})
	if err := cfg.validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	quad.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		log.Fatalf("quaddemo: %v", err)
	}
}

func run(cfg demoConfig) error {
	backends, err := parseBackends(cfg.Backend)
	if err != nil {
		return err
	}
	dev, err := quad.OpenDevice(backends...)
	if err != nil {
		return err
	}
	defer dev.Close()
	log.Printf("Using %s (%s)", dev.Info().Name, dev.Info().DeviceType)

	opts, err := cfg.options()
	if err != nil {
		return err
	}
	r, err := quad.NewHeadless(dev.Device(), dev.Queue(), cfg.Width, cfg.Height, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	var text *hud.Text
	if cfg.HUD {
		atlas, err := hud.NewAtlas(nil, 2)
		if err != nil {
			return err
		}
		tex, err := r.CreateTexture("hud_atlas", atlas.Image)
		if err != nil {
			return err
		}
		text = &hud.Text{
			Atlas:      atlas,
			Texture:    tex,
			MaxWidth:   float32(cfg.Width) / 2,
			Color:      [4]float32{1, 1, 1, 1},
			Background: [4]float32{0, 0, 0, 0.6},
			Padding:    6,
		}
	}

	camera := quad.NewOrthoCamera(float32(cfg.Width) / float32(cfg.Height))
	for i := range cfg.Frames {
		t := float32(i) / float32(max(cfg.Frames-1, 1))
		camera.Zoom = 1 + 0.1*float32(math.Sin(float64(t)*math.Pi))
		if err := drawFrame(r, camera, cfg.Grid, t, text); err != nil {
			return err
		}
	}

	img, err := r.ReadPixels()
	if err != nil {
		return err
	}
	if blank(img) {
		log.Printf("Backend readback is blank, writing the CPU reference image")
		if img, err = r.ReferenceImage(); err != nil {
			return err
		}
	}
	if err := savePNG(cfg.Output, img); err != nil {
		return err
	}
	st := r.Stats()
	log.Printf("Demo saved to %s (%dx%d): %d frames presented, %d skipped",
		cfg.Output, cfg.Width, cfg.Height, st.Presented, st.Skipped)
	return nil
}

func drawFrame(r *quad.Renderer, camera quad.OrthoCamera, grid int, t float32, text *hud.Text) error {
	if err := r.Begin(); err != nil {
		return err
	}
	r.SetViewProjection(camera.ViewProjection())
	if err := addGrid(r, camera.Aspect, grid, t); err != nil {
		return err
	}
	if text != nil {
		st := r.Stats()
		msg := fmt.Sprintf("frame %d\nfps %.1f  avg %.2f ms\nquads %d  draws %d",
			st.Presented, st.FPS, float64(st.AvgFrame.Microseconds())/1000, st.Quads, st.QuadDraws+st.OverlayDraws)
		list, err := text.DrawList(12, 12, msg, overlay.Unclipped)
		if err != nil {
			return err
		}
		if err := r.AddOverlay(list); err != nil {
			return err
		}
	}
	return r.End()
}

// addGrid fills [-aspect, aspect]×[-1, 1] with grid×grid quads shaded by
// position and animated by t.
func addGrid(r *quad.Renderer, aspect float32, grid int, t float32) error {
	if grid == 0 {
		return nil
	}
	cellW, cellH := 2*aspect/float32(grid), 2/float32(grid)
	for y := range grid {
		for x := range grid {
			fx, fy := float32(x)/float32(grid), float32(y)/float32(grid)
			err := r.AddQuad(quad.Quad{
				Position: [3]float32{-aspect + (float32(x)+0.5)*cellW, -1 + (float32(y)+0.5)*cellH, 0},
				Size:     [2]float32{cellW * 0.45, cellH * 0.45},
				Color:    quad.RGB(fx, fy, 0.5+0.5*float32(math.Sin(float64(fx+fy+t)*math.Pi))),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func blank(img *image.RGBA) bool {
	for _, v := range img.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
