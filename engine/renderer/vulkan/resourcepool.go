package vulkan

import "github.com/kestrel-render/vkcore/engine/core"

// maxInFlightFrames bounds the deferred-disposal ring; actual in-flight
// frame count is read from the swapchain and must not exceed this.
const maxInFlightFrames = 3

// ResourcePool is the persistent resource pool of §4.2: allocate_image,
// allocate_buffer and import_external all return a generational core.Handle,
// and dispose defers the underlying Vulkan teardown until the frame slot
// that last used the resource has cycled back around.
type ResourcePool struct {
	images  *core.HandleSlab
	buffers *core.HandleSlab

	disposalQueues [maxInFlightFrames][]func(*VulkanContext)
}

func NewResourcePool() *ResourcePool {
	return &ResourcePool{images: core.NewHandleSlab(), buffers: core.NewHandleSlab()}
}

func (p *ResourcePool) AllocateImage(img *VulkanImage) core.Handle {
	return p.images.Acquire(img)
}

func (p *ResourcePool) Image(h core.Handle) (*VulkanImage, error) {
	v, err := p.images.Lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*VulkanImage), nil
}

func (p *ResourcePool) AllocateBuffer(buf *VulkanBuffer) core.Handle {
	return p.buffers.Acquire(buf)
}

func (p *ResourcePool) Buffer(h core.Handle) (*VulkanBuffer, error) {
	v, err := p.buffers.Lookup(h)
	if err != nil {
		return nil, err
	}
	return v.(*VulkanBuffer), nil
}

// DisposeImage releases the handle immediately (so a stale lookup fails
// right away) but defers the Vulkan-side teardown to frame slot `frame`,
// per §4.2's command-end disposal manager.
func (p *ResourcePool) DisposeImage(h core.Handle, frame uint32) error {
	img, err := p.Image(h)
	if err != nil {
		return err
	}
	if err := p.images.Release(h); err != nil {
		return err
	}
	slot := frame % maxInFlightFrames
	p.disposalQueues[slot] = append(p.disposalQueues[slot], func(ctx *VulkanContext) {
		img.ImageDestroy(ctx)
	})
	return nil
}

func (p *ResourcePool) DisposeBuffer(h core.Handle, frame uint32) error {
	buf, err := p.Buffer(h)
	if err != nil {
		return err
	}
	if err := p.buffers.Release(h); err != nil {
		return err
	}
	slot := frame % maxInFlightFrames
	p.disposalQueues[slot] = append(p.disposalQueues[slot], func(ctx *VulkanContext) {
		BufferDestroy(ctx, buf)
	})
	return nil
}

// RunDeferredDisposals executes and clears every disposal queued for the
// given frame slot. Call once the timeline value that slot's last submission
// signals has been reached.
func (p *ResourcePool) RunDeferredDisposals(ctx *VulkanContext, frame uint32) {
	slot := frame % maxInFlightFrames
	for _, fn := range p.disposalQueues[slot] {
		fn(ctx)
	}
	p.disposalQueues[slot] = p.disposalQueues[slot][:0]
}
