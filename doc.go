// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package guirender renders immediate-mode GUI draw lists with a GPU.
//
// # Overview
//
// Each frame the GUI layer produces a [DrawData]: draw lists of vertices,
// 16-bit indices and draw commands. [Backend.RenderDrawData] uploads the
// geometry into per-frame buffers and records scissored, textured, indexed
// draws into a render pass the caller owns. The backend never begins, ends
// or submits that pass.
//
// The backend talks to the GPU through the [gpucore.Device] contract. The
// backend/wgpu package implements it on gogpu/wgpu's HAL (Vulkan, Metal,
// DX12, GLES, software or noop).
//
// # Quick Start
//
//	dev, cleanup, _ := wgpu.OpenNoop()
//	defer cleanup()
//
//	b, err := guirender.New(guirender.NewConfig(dev, 2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Shutdown()
//
//	atlas, _ := fontatlas.New(fontatlas.Options{Size: 13})
//	b.CreateFontTexture(atlas)
//
//	target, _ := dev.CreateRenderTarget(1280, 720, gputypes.TextureFormatBGRA8Unorm)
//	for each frame {
//	    b.NewFrame()
//	    // ... GUI builds drawData ...
//	    frame, _ := dev.BeginFrame(target, gputypes.Color{})
//	    b.RenderDrawData(drawData, gputypes.TextureFormatBGRA8Unorm, frame.Pass())
//	    frame.End()
//	}
//
// # Frames in Flight
//
// Config.FrameCount (1..[MaxFramesInFlight]) frame slots rotate round-robin,
// one per RenderDrawData call. A slot's vertex and index buffers are only
// rewritten when the slot comes around again. Texture handles released
// with [Backend.DestroyTexture] are queued on the current slot and become
// reusable only when that slot is current again. Both rely on the device
// finishing a frame within FrameCount frames; no fence is waited on.
//
// # Textures
//
// A [TextureID] is a slot in a fixed-size descriptor table (1024 by
// default). [Backend.CreateTexture] returns [NoTexture] when every slot is
// in use.
//
// # Pipelines
//
// The graphics pipeline depends on the color target format. The backend
// keeps the pipeline for the current format and the one it replaced; a
// third format destroys the oldest.
//
// # Logging
//
// guirender logs through log/slog. By default nothing is logged; see
// [SetLogger] and Config.Logger.
package guirender
