package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guirender/gpucore"
)

// layout is a descriptor layout: one bind group layout per space plus the
// pipeline layout built from them.
type layout struct {
	spaces   []hal.BindGroupLayout
	entries  [][]gputypes.BindGroupLayoutEntry
	pipeline hal.PipelineLayout
}

// table holds one bind group per (space, slot). Writing a slot rebuilds its
// group; the replaced group is retired until the GPU is idle.
type table struct {
	layout  *layout
	maxSets []uint32
	writes  map[slotKey]gpucore.DescriptorWrite
	groups  map[slotKey]hal.BindGroup
	retired []hal.BindGroup
}

type slotKey struct {
	space, slot uint32
}

// CreateDescriptorLayout implements gpucore.Device.
func (d *Device) CreateDescriptorLayout(desc *gpucore.DescriptorLayoutDesc) (gpucore.DescriptorLayoutID, error) {
	l := &layout{entries: desc.Spaces}
	for i, entries := range desc.Spaces {
		bgl, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_space%d", desc.Label, i),
			Entries: entries,
		})
		if err != nil {
			d.destroyLayout(l)
			return gpucore.InvalidID, fmt.Errorf("create descriptor layout %q space %d: %w", desc.Label, i, err)
		}
		l.spaces = append(l.spaces, bgl)
	}

	pl, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: l.spaces,
	})
	if err != nil {
		d.destroyLayout(l)
		return gpucore.InvalidID, fmt.Errorf("create pipeline layout %q: %w", desc.Label, err)
	}
	l.pipeline = pl

	id := gpucore.DescriptorLayoutID(d.newID())
	d.mu.Lock()
	d.layouts[id] = l
	d.mu.Unlock()
	return id, nil
}

// DestroyDescriptorLayout implements gpucore.Device.
func (d *Device) DestroyDescriptorLayout(id gpucore.DescriptorLayoutID) {
	d.mu.Lock()
	l, ok := d.layouts[id]
	if ok {
		delete(d.layouts, id)
	}
	d.mu.Unlock()

	if ok {
		d.destroyLayout(l)
	}
}

func (d *Device) destroyLayout(l *layout) {
	if l.pipeline != nil {
		d.device.DestroyPipelineLayout(l.pipeline)
		l.pipeline = nil
	}
	for _, bgl := range l.spaces {
		d.device.DestroyBindGroupLayout(bgl)
	}
	l.spaces = nil
}

// CreateDescriptorTable implements gpucore.Device. Bind groups are created
// lazily by WriteDescriptor.
func (d *Device) CreateDescriptorTable(desc *gpucore.DescriptorTableDesc) (gpucore.DescriptorTableID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.layouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("create descriptor table %q: layout %d: %w", desc.Label, desc.Layout, ErrUnknownResource)
	}
	if len(desc.MaxSets) != len(l.spaces) {
		return gpucore.InvalidID, fmt.Errorf("create descriptor table %q: %d set limits for %d spaces",
			desc.Label, len(desc.MaxSets), len(l.spaces))
	}

	id := gpucore.DescriptorTableID(d.newID())
	d.tables[id] = &table{
		layout:  l,
		maxSets: append([]uint32(nil), desc.MaxSets...),
		writes:  make(map[slotKey]gpucore.DescriptorWrite),
		groups:  make(map[slotKey]hal.BindGroup),
	}
	return id, nil
}

// DestroyDescriptorTable implements gpucore.Device.
func (d *Device) DestroyDescriptorTable(id gpucore.DescriptorTableID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.tables[id]; ok {
		delete(d.tables, id)
		d.destroyTable(t)
	}
}

// destroyTable must be called with mu held.
func (d *Device) destroyTable(t *table) {
	for k, g := range t.groups {
		d.device.DestroyBindGroup(g)
		delete(t.groups, k)
	}
	d.releaseRetired(t)
}

func (d *Device) releaseRetired(t *table) {
	for _, g := range t.retired {
		d.device.DestroyBindGroup(g)
	}
	t.retired = t.retired[:0]
}

// WriteDescriptor implements gpucore.Device. Writes accumulate per slot so
// a sampler and a texture can be written separately; the slot's bind group
// is rebuilt once every binding of its space has a resource.
func (d *Device) WriteDescriptor(id gpucore.DescriptorTableID, space, slot uint32, w gpucore.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tables[id]
	if !ok {
		return fmt.Errorf("write descriptor: table %d: %w", id, ErrUnknownResource)
	}
	if int(space) >= len(t.layout.spaces) {
		return fmt.Errorf("write descriptor: space %d out of range", space)
	}
	if slot >= t.maxSets[space] {
		return fmt.Errorf("write descriptor: slot %d exceeds %d sets in space %d", slot, t.maxSets[space], space)
	}

	key := slotKey{space, slot}
	merged := t.writes[key]
	if w.Sampler != gpucore.InvalidID {
		merged.Sampler = w.Sampler
	}
	if w.Texture != gpucore.InvalidID {
		merged.Texture = w.Texture
	}
	t.writes[key] = merged

	entries, complete, err := d.bindGroupEntries(t.layout.entries[space], merged)
	if err != nil {
		return fmt.Errorf("write descriptor (%d, %d): %w", space, slot, err)
	}
	if !complete {
		return nil
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("gui_bind_%d_%d", space, slot),
		Layout:  t.layout.spaces[space],
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("write descriptor (%d, %d): %w", space, slot, err)
	}
	if old, ok := t.groups[key]; ok {
		t.retired = append(t.retired, old)
	}
	t.groups[key] = group
	return nil
}

// bindGroupEntries resolves the layout entries of a space against the
// resources written so far. Uniform buffers bind the push constant block.
// Must be called with mu held.
func (d *Device) bindGroupEntries(layoutEntries []gputypes.BindGroupLayoutEntry, w gpucore.DescriptorWrite) ([]gputypes.BindGroupEntry, bool, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(layoutEntries))
	for _, le := range layoutEntries {
		entry := gputypes.BindGroupEntry{Binding: le.Binding}
		switch {
		case le.Sampler != nil:
			if w.Sampler == gpucore.InvalidID {
				return nil, false, nil
			}
			s, ok := d.samplers[w.Sampler]
			if !ok {
				return nil, false, fmt.Errorf("sampler %d: %w", w.Sampler, ErrUnknownResource)
			}
			entry.Resource = gputypes.SamplerBinding{Sampler: s.NativeHandle()}
		case le.Texture != nil:
			if w.Texture == gpucore.InvalidID {
				return nil, false, nil
			}
			tex, ok := d.textures[w.Texture]
			if !ok {
				return nil, false, fmt.Errorf("texture %d: %w", w.Texture, ErrUnknownResource)
			}
			entry.Resource = gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}
		case le.Buffer != nil:
			size := le.Buffer.MinBindingSize
			if size == 0 {
				size = pushConstantSize
			}
			entry.Resource = gputypes.BufferBinding{Buffer: d.push.NativeHandle(), Offset: 0, Size: size}
		default:
			return nil, false, fmt.Errorf("binding %d: unsupported binding type", le.Binding)
		}
		entries = append(entries, entry)
	}
	return entries, true, nil
}

// bindGroup returns the group bound at (space, slot), or nil.
func (d *Device) bindGroup(id gpucore.DescriptorTableID, space, slot uint32) hal.BindGroup {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.tables[id]; ok {
		return t.groups[slotKey{space, slot}]
	}
	return nil
}

// === Pipelines ===

// CreateRenderPipeline implements gpucore.Device.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	d.mu.RLock()
	l, okLayout := d.layouts[desc.Layout]
	vs, okVS := d.shaders[desc.VertexShader]
	fs, okFS := d.shaders[desc.FragmentShader]
	d.mu.RUnlock()

	switch {
	case !okLayout:
		return gpucore.InvalidID, fmt.Errorf("create pipeline %q: layout %d: %w", desc.Label, desc.Layout, ErrUnknownResource)
	case !okVS:
		return gpucore.InvalidID, fmt.Errorf("create pipeline %q: vertex shader %d: %w", desc.Label, desc.VertexShader, ErrUnknownResource)
	case !okFS:
		return gpucore.InvalidID, fmt.Errorf("create pipeline %q: fragment shader %d: %w", desc.Label, desc.FragmentShader, ErrUnknownResource)
	}

	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	raw, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: l.pipeline,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.desc.EntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.desc.EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    desc.ColorFormat,
					Blend:     desc.Blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}

	id := gpucore.RenderPipelineID(d.newID())
	d.mu.Lock()
	d.pipelines[id] = raw
	d.mu.Unlock()
	return id, nil
}

// DestroyRenderPipeline implements gpucore.Device.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	d.mu.Lock()
	p, ok := d.pipelines[id]
	if ok {
		delete(d.pipelines, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyRenderPipeline(p)
	}
}
