package guirender

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guirender/gpucore"
)

// copyPitchAlignment is the row pitch alignment of buffer-to-image copies.
const copyPitchAlignment = 256

// FontAtlas is the source of the GUI font texture.
type FontAtlas interface {
	// RGBA32 returns the atlas pixels, tightly packed RGBA8, row-major.
	RGBA32() (pixels []byte, width, height int)

	// SetTextureID stores the handle the atlas is rendered with.
	SetTextureID(id TextureID)
}

// CreateFontTexture uploads the atlas into a new image, binds it to a
// texture handle and stores the handle in the atlas.
//
// The upload is synchronous: it submits a one-off command buffer and waits
// for the device to go idle. Calling it again rebuilds the font texture;
// the previous handle is released and the previous image destroyed once
// the device is idle.
func (b *Backend) CreateFontTexture(atlas FontAtlas) (TextureID, error) {
	b.mustInit("create font texture")
	dev := b.cfg.Device

	pixels, width, height := atlas.RGBA32()
	if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
		return NoTexture, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidAtlas, width, height, len(pixels))
	}
	w, h := uint32(width), uint32(height)

	image, err := dev.CreateTexture(&gpucore.TextureDesc{
		Label:       "gui_font",
		Width:       w,
		Height:      h,
		Format:      gputypes.TextureFormatRGBA8Unorm,
		Usage:       gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		SampleCount: 1,
	})
	if b.check(err) != nil {
		return NoTexture, fmt.Errorf("create font image: %w", err)
	}

	id := b.CreateTexture(image)
	if id == NoTexture {
		dev.DestroyTexture(image)
		return NoTexture, ErrHandlesExhausted
	}

	if err := b.uploadFont(image, pixels, w, h); err != nil {
		b.DestroyTexture(id)
		dev.DestroyTexture(image)
		return NoTexture, err
	}

	// The device is idle, so the previous font image is no longer read.
	if b.fontImage != gpucore.InvalidID {
		b.DestroyTexture(b.fontID)
		dev.DestroyTexture(b.fontImage)
	}
	b.fontImage = image
	b.fontID = id
	atlas.SetTextureID(id)

	b.logger().Info("guirender: font texture uploaded", "width", w, "height", h, "texture", uint64(id))
	return id, nil
}

// uploadFont copies pixels into image through the staging buffer.
func (b *Backend) uploadFont(image gpucore.TextureID, pixels []byte, w, h uint32) error {
	dev := b.cfg.Device

	// A previous rebuild's staging buffer is no longer needed.
	b.DestroyFontUploadObjects()

	rowBytes := w * 4
	pitch := (rowBytes + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)

	staging, err := dev.CreateBuffer(&gpucore.BufferDesc{
		Label:       "gui_font_staging",
		Size:        uint64(pitch) * uint64(h),
		Usage:       gputypes.BufferUsageCopySrc,
		HostVisible: true,
	})
	if b.check(err) != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	b.staging = staging

	mapped, err := dev.MapBuffer(staging)
	if b.check(err) != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	for row := uint32(0); row < h; row++ {
		src := pixels[row*rowBytes : (row+1)*rowBytes]
		copy(mapped[row*pitch:], src)
	}
	dev.UnmapBuffer(staging)

	enc, err := dev.CreateCommandEncoder("gui_font_upload")
	if b.check(err) != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	enc.TransitionTexture(image, gpucore.UsageUndefined, gputypes.TextureUsageCopyDst)
	enc.CopyBufferToTexture(staging, image, gpucore.BufferImageCopy{
		BytesPerRow: pitch,
		Width:       w,
		Height:      h,
	})
	enc.TransitionTexture(image, gputypes.TextureUsageCopyDst, gputypes.TextureUsageTextureBinding)

	cmd, err := enc.Finish()
	if b.check(err) != nil {
		enc.Discard()
		return fmt.Errorf("finish font upload: %w", err)
	}
	defer cmd.Release()

	if err := dev.Submit(cmd); b.check(err) != nil {
		return fmt.Errorf("submit font upload: %w", err)
	}
	if err := dev.WaitIdle(); b.check(err) != nil {
		return fmt.Errorf("wait for font upload: %w", err)
	}
	return nil
}

// DestroyFontUploadObjects releases the font staging buffer. It is safe to
// call at any time after CreateFontTexture returned.
func (b *Backend) DestroyFontUploadObjects() {
	if b.staging != gpucore.InvalidID {
		b.cfg.Device.DestroyBuffer(b.staging)
		b.staging = gpucore.InvalidID
	}
}
