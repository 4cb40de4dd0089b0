package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

// transientBlockSize is the default linear-arena block size (§4.3).
const transientBlockSize uint64 = 256 * 1024

// transientAlignment is the alignment every bump-allocated offset honors,
// large enough to satisfy both uniform- and storage-buffer offset alignment
// on common hardware (§4.3).
const transientAlignment uint64 = 256

// BufferArenaKind names one of the four transient buffer arenas (§4.3).
type BufferArenaKind uint8

const (
	ArenaSharedDefault BufferArenaKind = iota
	ArenaSharedWriteCombined
	ArenaManagedDefault
	ArenaManagedWriteCombined
)

func (k BufferArenaKind) descriptor(length uint64) metadata.BufferDescriptor {
	switch k {
	case ArenaSharedDefault:
		return metadata.BufferDescriptor{Length: length, StorageMode: metadata.StorageModeShared, CacheMode: metadata.CacheModeDefault, UsageHint: metadata.UsageHintShaderRead}
	case ArenaSharedWriteCombined:
		return metadata.BufferDescriptor{Length: length, StorageMode: metadata.StorageModeShared, CacheMode: metadata.CacheModeWriteCombined, UsageHint: metadata.UsageHintShaderRead}
	case ArenaManagedDefault:
		return metadata.BufferDescriptor{Length: length, StorageMode: metadata.StorageModeManaged, CacheMode: metadata.CacheModeDefault, UsageHint: metadata.UsageHintShaderRead}
	default: // ArenaManagedWriteCombined
		return metadata.BufferDescriptor{Length: length, StorageMode: metadata.StorageModeManaged, CacheMode: metadata.CacheModeWriteCombined, UsageHint: metadata.UsageHintShaderRead}
	}
}

func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// transientBlock is one linear-bump-allocated buffer block belonging to an
// arena. Cursor is reset to zero whenever the block is recycled back into
// service N frames after its last deposit.
type transientBlock struct {
	buffer *VulkanBuffer
	size   uint64
	cursor uint64
}

func (b *transientBlock) tryAllocate(size uint64) (uint64, bool) {
	offset := alignUp(b.cursor, transientAlignment)
	if offset+size > b.size {
		return 0, false
	}
	b.cursor = offset + size
	return offset, true
}

// bufferArena is a linear per-frame bump allocator cycling N block free
// lists, per §4.3: a block retired at the end of frame k becomes available
// again for allocation at frame k+N, once the caller has confirmed frame k's
// submission has completed (the renderer's timeline-semaphore wait already
// enforces this before BeginFrame is called for a reused slot).
type bufferArena struct {
	kind       BufferArenaKind
	n          int
	slots      [][]*transientBlock // free lists, one per frame slot
	active     []*transientBlock   // blocks in use by the current frame
	activeSlot int
}

func newBufferArena(kind BufferArenaKind, framesInFlight int) *bufferArena {
	return &bufferArena{kind: kind, n: framesInFlight, slots: make([][]*transientBlock, framesInFlight)}
}

func (a *bufferArena) beginFrame(frameIndex uint64) {
	slot := int(frameIndex % uint64(a.n))
	a.activeSlot = slot
	a.active = a.slots[slot]
	a.slots[slot] = nil
	for _, block := range a.active {
		block.cursor = 0
	}
}

func (a *bufferArena) endFrame() {
	a.slots[a.activeSlot] = a.active
	a.active = nil
}

// collect bump-allocates size bytes from the active block list, growing by a
// new block of max(size, transientBlockSize) when nothing fits.
func (a *bufferArena) collect(context *VulkanContext, size uint64) (*VulkanBuffer, uint64, error) {
	for _, block := range a.active {
		if offset, ok := block.tryAllocate(size); ok {
			return block.buffer, offset, nil
		}
	}

	blockSize := transientBlockSize
	if size > blockSize {
		blockSize = size
	}
	buffer, err := BufferCreate(context, a.kind.descriptor(blockSize))
	if err != nil {
		return nil, 0, fmt.Errorf("transient arena: failed to grow block: %w", err)
	}
	block := &transientBlock{buffer: buffer, size: blockSize}
	offset, _ := block.tryAllocate(size)
	a.active = append(a.active, block)
	return block.buffer, offset, nil
}

func (a *bufferArena) destroy(context *VulkanContext) {
	for _, slot := range a.slots {
		for _, block := range slot {
			BufferDestroy(context, block.buffer)
		}
	}
	for _, block := range a.active {
		BufferDestroy(context, block.buffer)
	}
}

// imagePool is a free list of transient images keyed by descriptor, plus a
// pending list awaiting their submission's GPU completion before reuse
// (§4.3 collect_image/deposit_image). A historyLimit of 1 models the
// history-buffer pool used for one-frame-persisting temporal images: only
// the image from the previous deposit is ever kept alive.
type imagePool struct {
	mu           sync.Mutex
	free         map[metadata.TextureDescriptor][]*VulkanImage
	pending      map[metadata.TextureDescriptor][]*VulkanImage
	historyLimit int
}

func newImagePool(historyLimit int) *imagePool {
	return &imagePool{
		free:         make(map[metadata.TextureDescriptor][]*VulkanImage),
		pending:      make(map[metadata.TextureDescriptor][]*VulkanImage),
		historyLimit: historyLimit,
	}
}

// collectImage returns a free image matching desc exactly, or allocates one.
func (p *imagePool) collectImage(context *VulkanContext, desc metadata.TextureDescriptor, tiling vk.ImageTiling, memoryFlags vk.MemoryPropertyFlags) (*VulkanImage, error) {
	p.mu.Lock()
	if list := p.free[desc]; len(list) > 0 {
		image := list[len(list)-1]
		p.free[desc] = list[:len(list)-1]
		p.mu.Unlock()
		return image, nil
	}
	p.mu.Unlock()
	return ImageCreate(context, desc, tiling, memoryFlags, true)
}

// depositImage retires an image into the pending list for its descriptor.
// retirePending moves everything pending back to the free list once the
// caller has confirmed the depositing frame's fence has signaled.
func (p *imagePool) depositImage(image *VulkanImage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	desc := image.Descriptor
	p.pending[desc] = append(p.pending[desc], image)
	if p.historyLimit > 0 && len(p.pending[desc]) > p.historyLimit {
		overflow := p.pending[desc][:len(p.pending[desc])-p.historyLimit]
		p.pending[desc] = p.pending[desc][len(p.pending[desc])-p.historyLimit:]
		for _, stale := range overflow {
			p.free[desc] = append(p.free[desc], stale)
		}
	}
}

func (p *imagePool) retirePending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for desc, list := range p.pending {
		p.free[desc] = append(p.free[desc], list...)
		delete(p.pending, desc)
	}
}

func (p *imagePool) destroy(context *VulkanContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.free {
		for _, image := range list {
			image.ImageDestroy(context)
		}
	}
	for _, list := range p.pending {
		for _, image := range list {
			image.ImageDestroy(context)
		}
	}
	p.free = make(map[metadata.TextureDescriptor][]*VulkanImage)
	p.pending = make(map[metadata.TextureDescriptor][]*VulkanImage)
}

// descriptorPoolRing is a fixed-size ring of "reset whole pool" descriptor
// pools (§4.3): per-frame argument-buffer allocations draw from
// pool[frame_index mod N], and the pool is bulk-reset on its next use N
// frames later rather than freeing individual sets.
type descriptorPoolRing struct {
	pools []vk.DescriptorPool
	n     int
}

func newDescriptorPoolRing(context *VulkanContext, framesInFlight int, maxSetsPerPool uint32) (*descriptorPoolRing, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSetsPerPool * 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxSetsPerPool * 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSetsPerPool * 4},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: maxSetsPerPool},
	}
	ring := &descriptorPoolRing{pools: make([]vk.DescriptorPool, framesInFlight), n: framesInFlight}
	for i := 0; i < framesInFlight; i++ {
		createInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       maxSetsPerPool,
			PoolSizeCount: uint32(len(sizes)),
			PPoolSizes:    sizes,
		}
		var pool vk.DescriptorPool
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
			return nil, fmt.Errorf("failed to create transient descriptor pool: %s", VulkanResultString(res, true))
		}
		ring.pools[i] = pool
	}
	return ring, nil
}

// reset bulk-resets pool[frameIndex mod N], invalidating every descriptor set
// allocated from it on the prior cycle through this slot.
func (r *descriptorPoolRing) reset(context *VulkanContext, frameIndex uint64) error {
	pool := r.pools[frameIndex%uint64(r.n)]
	if res := vk.ResetDescriptorPool(context.Device.LogicalDevice, pool, 0); res != vk.Success {
		return fmt.Errorf("failed to reset transient descriptor pool: %s", VulkanResultString(res, true))
	}
	return nil
}

func (r *descriptorPoolRing) poolFor(frameIndex uint64) vk.DescriptorPool {
	return r.pools[frameIndex%uint64(r.n)]
}

func (r *descriptorPoolRing) destroy(context *VulkanContext) {
	for i, pool := range r.pools {
		if pool != nil {
			vk.DestroyDescriptorPool(context.Device.LogicalDevice, pool, context.Allocator)
			r.pools[i] = nil
		}
	}
}

// newPersistentDescriptorPool creates a pool with the incremental-free flag
// set, for argument buffers that outlive a single frame (§4.3).
func newPersistentDescriptorPool(context *VulkanContext, maxSets uint32) (vk.DescriptorPool, error) {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxSets * 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: maxSets},
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool); res != vk.Success {
		return nil, fmt.Errorf("failed to create persistent descriptor pool: %s", VulkanResultString(res, true))
	}
	return pool, nil
}

// TransientAllocator is the per-frame resource allocator (§4.3): four buffer
// arenas, a staging/private image pool, a one-frame history image pool, and a
// ring of "reset whole pool" descriptor pools for per-frame argument buffers.
type TransientAllocator struct {
	arenas      [4]*bufferArena
	images      *imagePool
	history     *imagePool
	descriptors *descriptorPoolRing
	frameIndex  uint64
}

func NewTransientAllocator(context *VulkanContext, framesInFlight int, maxDescriptorSetsPerFrame uint32) (*TransientAllocator, error) {
	ring, err := newDescriptorPoolRing(context, framesInFlight, maxDescriptorSetsPerFrame)
	if err != nil {
		return nil, err
	}
	alloc := &TransientAllocator{
		images:      newImagePool(0),
		history:     newImagePool(1),
		descriptors: ring,
	}
	for i := range alloc.arenas {
		alloc.arenas[i] = newBufferArena(BufferArenaKind(i), framesInFlight)
	}
	return alloc, nil
}

// BeginFrame rotates every arena, image pool, and descriptor pool onto the
// slot for frameIndex, making resources deposited N frames ago available for
// reuse. Callers must have already waited on that slot's timeline value.
func (a *TransientAllocator) BeginFrame(context *VulkanContext, frameIndex uint64) error {
	a.frameIndex = frameIndex
	for _, arena := range a.arenas {
		arena.beginFrame(frameIndex)
	}
	a.images.retirePending()
	a.history.retirePending()
	return a.descriptors.reset(context, frameIndex)
}

func (a *TransientAllocator) EndFrame() {
	for _, arena := range a.arenas {
		arena.endFrame()
	}
}

// CollectBuffer bump-allocates size bytes from the named arena for this frame.
func (a *TransientAllocator) CollectBuffer(context *VulkanContext, kind BufferArenaKind, size uint64) (*VulkanBuffer, uint64, error) {
	return a.arenas[kind].collect(context, size)
}

// CollectImage reuses or allocates a transient image; persisting selects the
// one-frame history pool instead of the general staging/private pool.
func (a *TransientAllocator) CollectImage(context *VulkanContext, desc metadata.TextureDescriptor, tiling vk.ImageTiling, memoryFlags vk.MemoryPropertyFlags, persisting bool) (*VulkanImage, error) {
	if persisting {
		return a.history.collectImage(context, desc, tiling, memoryFlags)
	}
	return a.images.collectImage(context, desc, tiling, memoryFlags)
}

func (a *TransientAllocator) DepositImage(image *VulkanImage, persisting bool) {
	if persisting {
		a.history.depositImage(image)
		return
	}
	a.images.depositImage(image)
}

// DescriptorPoolForFrame returns the ring slot a caller should allocate
// per-frame descriptor sets from this frame.
func (a *TransientAllocator) DescriptorPoolForFrame() vk.DescriptorPool {
	return a.descriptors.poolFor(a.frameIndex)
}

func (a *TransientAllocator) Destroy(context *VulkanContext) {
	for _, arena := range a.arenas {
		arena.destroy(context)
	}
	a.images.destroy(context)
	a.history.destroy(context)
	a.descriptors.destroy(context)
}
