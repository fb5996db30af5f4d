// Package gpucore defines the GPU device contract consumed by the guirender
// backend.
//
// The backend never talks to a graphics API directly. It records work through
// the [Device], [CommandEncoder] and [RenderPass] interfaces defined here, and
// thin adapters translate those calls to a concrete API:
//
//	               +------------------+
//	               |    guirender     |
//	               | (Backend.Render) |
//	               +--------+---------+
//	                        |
//	               +--------v---------+
//	               |     gpucore      |
//	               | Device/RenderPass|
//	               +--------+---------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  backend/wgpu   |          | internal/gputest|
//	|  (hal.Device)   |          | (recording fake)|
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// GPU resources are referenced by opaque IDs ([BufferID], [TextureID], etc.).
// Adapters own the mapping between IDs and the real resources. IDs are never
// reused by an adapter, so a stale ID is detectable.
//
// # Descriptor Tables
//
// A descriptor table is a fixed-capacity array of binding sets per space.
// Space 0 holds shared state (sampler, transform); space 1 holds one sampled
// image per slot. The backend's texture handles are space 1 slot indices.
package gpucore
