// Command guidemo renders synthetic GUI frames through guirender.
//
// By default it runs on the noop HAL backend, which records everything and
// draws nothing; -backend=vulkan opens the first discrete or integrated GPU.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender"
	"github.com/gogpu/guirender/backend/wgpu"
	"github.com/gogpu/guirender/fontatlas"
	"github.com/gogpu/guirender/gpucore"
)

func main() {
	var (
		width   = flag.Int("width", 1280, "framebuffer width")
		height  = flag.Int("height", 720, "framebuffer height")
		frames  = flag.Int("frames", 120, "frames to render")
		slots   = flag.Int("frames-in-flight", 2, "frame slots (1..3)")
		backend = flag.String("backend", "noop", "HAL backend: noop or vulkan")
		size    = flag.Float64("font-size", 13, "font pixel size")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	guirender.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dev, cleanup, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("open device: %v", err)
	}
	defer cleanup()

	if err := run(dev, *width, *height, *frames, *slots, *size); err != nil {
		log.Fatal(err)
	}
}

func openDevice(name string) (*wgpu.Device, func(), error) {
	switch name {
	case "noop":
		return wgpu.OpenNoop()
	case "vulkan":
		return wgpu.OpenBackend(gputypes.BackendVulkan)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
}

func run(dev *wgpu.Device, width, height, frames, slots int, fontSize float64) error {
	failures := 0
	b, err := guirender.New(guirender.NewConfig(dev, slots,
		guirender.WithCheckResult(func(err error) {
			failures++
			slog.Warn("guidemo: device error", "err", err)
		}),
	))
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer b.Shutdown()

	atlas, err := fontatlas.New(fontatlas.Options{Size: fontSize})
	if err != nil {
		return fmt.Errorf("bake font: %w", err)
	}
	if _, err := b.CreateFontTexture(atlas); err != nil {
		return fmt.Errorf("upload font: %w", err)
	}
	b.DestroyFontUploadObjects()

	// Two targets with different formats exercise the pipeline cache.
	formats := []gputypes.TextureFormat{
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA8Unorm,
	}
	targets := make([]*target, len(formats))
	for i, f := range formats {
		id, err := dev.CreateRenderTarget(uint32(width), uint32(height), f)
		if err != nil {
			return fmt.Errorf("create render target: %w", err)
		}
		defer dev.DestroyTexture(id)
		targets[i] = &target{id: id, format: f}
	}

	scene := newScene(atlas, float32(width), float32(height))
	for i := range frames {
		b.NewFrame()
		data := scene.build(i)

		t := targets[(i/30)%len(targets)]
		frame, err := dev.BeginFrame(t.id, gputypes.Color{R: 0.1, G: 0.1, B: 0.12, A: 1})
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := b.RenderDrawData(data, t.format, frame.Pass()); err != nil {
			_ = frame.End()
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := frame.End(); err != nil {
			return fmt.Errorf("frame %d: submit: %w", i, err)
		}
		if dev.Pending() > slots {
			if err := dev.WaitIdle(); err != nil {
				return fmt.Errorf("frame %d: wait: %w", i, err)
			}
		}
	}
	if err := dev.WaitIdle(); err != nil {
		return err
	}

	slog.Info("guidemo: done",
		"frames", frames,
		"free_textures", b.FreeTextures(),
		"device_errors", failures)
	return nil
}

type target struct {
	id     gpucore.TextureID
	format gputypes.TextureFormat
}
