package vulkan

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/kestrel-render/vkcore/engine/config"
	"github.com/kestrel-render/vkcore/engine/core"
	"github.com/kestrel-render/vkcore/engine/platform"
	"github.com/kestrel-render/vkcore/engine/renderer/metadata"
)

type VulkanRenderer struct {
	platform                *platform.Platform
	FrameNumber             uint64
	context                 *VulkanContext
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32
	shaderWatcher           *ShaderWatcher
	clock                   *core.Clock

	// pendingPlan is the frame plan staged by SubmitFramePlan for the frame
	// currently between BeginFrame and EndFrame; nil means "drive the single
	// on-screen MainRenderTargetGroup", the module's original behavior.
	pendingPlan *FramePlan

	debug bool
}

func New(p *platform.Platform, cfg *config.BackendConfig) *VulkanRenderer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &VulkanRenderer{
		platform:    p,
		FrameNumber: 0,
		context: &VulkanContext{
			Config:            cfg,
			FramebufferWidth:  0,
			FramebufferHeight: 0,
			Allocator:         nil,
			Resources:         NewResourcePool(),
		},
		cachedFramebufferWidth:  0,
		cachedFramebufferHeight: 0,
		debug:                   cfg.Vulkan.EnableValidationLayers,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		core.LogFatal("GetInstanceProcAddress is nil")
		return fmt.Errorf("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	// TODO: custom allocator.
	vr.context.Allocator = nil

	vr.cachedFramebufferWidth = appWidth
	vr.cachedFramebufferHeight = appHeight

	if vr.cachedFramebufferWidth != 0 {
		vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	}

	if vr.cachedFramebufferHeight != 0 {
		vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	}

	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("vkcore"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	required_extensions := []string{"VK_KHR_surface"} // Generic surface extension
	en := vr.platform.GetRequiredExtensionNames()
	required_extensions = append(required_extensions, en...)

	if runtime.GOOS == "darwin" {
		required_extensions = append(required_extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if vr.debug {
		required_extensions = append(required_extensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName) // debug utilities
		core.LogInfo("Required extensions:")
		for i := 0; i < len(required_extensions); i++ {
			core.LogInfo(required_extensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(required_extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(required_extensions)

	// Validation layers.
	required_validation_layer_names := []string{}

	// If validation should be done, get a list of the required validation layer names
	// and make sure they exist. Validation layers should only be enabled on non-release builds.
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")

		// The list of validation layers required.
		required_validation_layer_names = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		// Obtain a list of available validation layers
		var available_layer_count uint32
		if res := vk.EnumerateInstanceLayerProperties(&available_layer_count, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layer properties")
		}

		available_layers := make([]vk.LayerProperties, available_layer_count)
		if res := vk.EnumerateInstanceLayerProperties(&available_layer_count, available_layers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layer properties")
		}

		// Verify all required layers are available.
		for i := range required_validation_layer_names {
			core.LogInfo("Searching for layer: %s...", required_validation_layer_names[i])
			found := false
			for j := range available_layers {
				available_layers[j].Deref()
				core.LogInfo("Available Layer: `%s`", string(available_layers[j].LayerName[:]))
				end := FindFirstZeroInByteArray(available_layers[j].LayerName[:])
				if required_validation_layer_names[i] == vk.ToString(available_layers[j].LayerName[:end+1]) {
					found = true
					core.LogInfo("Found.")
					break
				}
			}

			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", required_validation_layer_names[i])
				core.LogFatal(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(required_validation_layer_names))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(required_validation_layer_names)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")

		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportInformationBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg

		core.LogDebug("Vulkan debugger created.")
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface := vr.createVulkanSurface()
	if surface == 0 {
		err := fmt.Errorf("failed to create platform surface")
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(vr.context); err != nil {
		err := fmt.Errorf("failed to create device: %w", err)
		core.LogError(err.Error())
		return err
	}

	vr.context.Shaders = NewShaderModuleCache()
	vr.context.Pipelines = NewPipelineCache(newPipelineLayoutCache())

	if err := core.MetricsInitialize(); err != nil {
		core.LogWarn("metrics unavailable: %s", err.Error())
	}
	vr.clock = core.NewClock()
	vr.clock.Start()

	if vr.context.Config.Shaders.HotReload {
		watcher, err := NewShaderWatcher(vr.context, vr.context.Shaders, vr.context.Config.Shaders.Directory)
		if err != nil {
			core.LogWarn("shader hot-reload disabled: %s", err.Error())
		} else {
			vr.shaderWatcher = watcher
		}
	}

	// Swapchain
	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	group := mainRenderTargetGroup(vr.context)
	rp, err := BuildRenderPass(vr.context, group)
	if err != nil {
		return err
	}
	vr.context.MainRenderPass = rp
	vr.context.MainRenderTargetGroup = &RenderTargetGroupState{Group: group, RenderPass: rp}

	// Swapchain framebuffers.
	vr.context.Swapchain.Framebuffers = make([]*VulkanFramebuffer, vr.context.Swapchain.ImageCount)
	if err := vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderPass); err != nil {
		return err
	}
	vr.context.MainRenderTargetGroup.Framebuffers = vr.context.Swapchain.Framebuffers

	// Create command buffers.
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}

	// Create sync objects: a binary semaphore pair per frame-in-flight slot
	// for swapchain acquire/present, plus the one timeline semaphore every
	// submission signals (§4.1/§4.8).
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, vr.context.Swapchain.MaxFramesInFlight)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, vr.context.Swapchain.MaxFramesInFlight)

	for i := 0; i < int(vr.context.Swapchain.MaxFramesInFlight); i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}

		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on image available")
			core.LogError(err.Error())
			return err
		}

		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create semaphore on queue complete")
			core.LogError(err.Error())
			return err
		}
	}

	timeline, err := NewTimelineSemaphore(vr.context)
	if err != nil {
		err := fmt.Errorf("failed to create timeline semaphore: %w", err)
		core.LogError(err.Error())
		return err
	}
	vr.context.Timeline = timeline

	// A zero value means "this slot/image has never been submitted to",
	// which TimelineSemaphore.Wait treats as already satisfied, matching the
	// old pre-signaled-fence behavior for the first frame through each slot.
	vr.context.FrameTimelineValues = make([]uint64, vr.context.Swapchain.MaxFramesInFlight)
	vr.context.ImageTimelineValues = make([]uint64, vr.context.Swapchain.ImageCount)

	transient, err := NewTransientAllocator(vr.context, int(vr.context.Swapchain.MaxFramesInFlight), 256)
	if err != nil {
		err := fmt.Errorf("failed to create transient allocator: %w", err)
		core.LogError(err.Error())
		return err
	}
	vr.context.Transient = transient

	core.LogInfo("Vulkan renderer initialized successfully.")

	return nil
}

// mainRenderTargetGroup builds the single-subpass render target group used
// for on-screen presentation: one color slot (the swapchain image, resolved
// separately into a VkImageView by the swapchain) and a depth slot, both
// cleared at the start of the pass and handed back to the swapchain/presented
// at the end (§4.6).
func mainRenderTargetGroup(context *VulkanContext) *metadata.RenderTargetGroup {
	descriptor := metadata.RenderTargetDescriptor{
		Colors:      []metadata.ColorAttachment{{}},
		Depth:       &metadata.AttachmentRef{},
		Width:       context.FramebufferWidth,
		Height:      context.FramebufferHeight,
		ArrayLength: 1,
	}
	if descriptor.Width == 0 {
		descriptor.Width = 1
	}
	if descriptor.Height == 0 {
		descriptor.Height = 1
	}

	colorOp := metadata.AttachmentOpState{
		LoadOp:        vk.AttachmentLoadOpClear,
		StoreOp:       vk.AttachmentStoreOpStore,
		InitialLayout: vk.ImageLayoutUndefined,
		FinalLayout:   vk.ImageLayoutPresentSrc,
		Clear: metadata.ClearOperation{
			Kind:    metadata.ClearColor,
			Float32: [4]float32{0.0, 0.0, 0.2, 1.0},
		},
	}
	depthOp := metadata.AttachmentOpState{
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		Clear: metadata.ClearOperation{
			Kind:    metadata.ClearColor,
			Float32: [4]float32{1.0, 0, 0, 0},
		},
	}

	subpass := metadata.NewSubpass(descriptor, 0)

	return &metadata.RenderTargetGroup{
		Descriptor: descriptor,
		Subpasses:  []*metadata.Subpass{subpass},
		ColorOps:   []metadata.AttachmentOpState{colorOp},
		DepthOp:    &depthOp,
	}
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	if vr.shaderWatcher != nil {
		vr.shaderWatcher.Close()
	}

	if vr.clock != nil {
		vr.clock.Update()
		core.LogInfo("renderer ran for %d frames over %.1fs", vr.FrameNumber, vr.clock.Elapsed()/1e9)
		vr.clock.Stop()
	}

	// Destroy in the opposite order of creation.

	// Sync objects
	for i := 0; i < int(vr.context.Swapchain.MaxFramesInFlight); i++ {
		if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(
				vr.context.Device.LogicalDevice,
				vr.context.ImageAvailableSemaphores[i],
				vr.context.Allocator)
			vr.context.ImageAvailableSemaphores[i] = vk.NullSemaphore
		}
		if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(
				vr.context.Device.LogicalDevice,
				vr.context.QueueCompleteSemaphores[i],
				vr.context.Allocator)
			vr.context.QueueCompleteSemaphores[i] = vk.NullSemaphore
		}
	}
	vr.context.Timeline.Destroy(vr.context)

	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.FrameTimelineValues = nil
	vr.context.ImageTimelineValues = nil

	// Command buffers
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		if vr.context.GraphicsCommandBuffers[i].Handle != nil {
			vr.context.GraphicsCommandBuffers[i].Free(vr.context, vr.context.Device.GraphicsCommandPool)
			vr.context.GraphicsCommandBuffers[i].Handle = nil
		}
	}
	vr.context.GraphicsCommandBuffers = nil

	// Destroy framebuffers
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}

	// Renderpass
	vr.context.MainRenderPass.RenderpassDestroy(vr.context)

	// Swapchain
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	// Pipeline, shader, and transient-allocator caches
	vr.context.Transient.Destroy(vr.context)
	vr.context.Pipelines.Destroy(vr.context)
	vr.context.Shaders.Destroy(vr.context)

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug {
		core.LogDebug("Destroying Vulkan debugger...")
		if vr.context.debugMessenger != vk.NullDebugReportCallback {
			vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		}
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	return nil
}

func (vr *VulkanRenderer) Resized(width, height uint16) error {
	// Update the "framebuffer size generation", a counter which indicates when the
	// framebuffer size has been updated.
	vr.cachedFramebufferWidth = uint32(width)
	vr.cachedFramebufferHeight = uint32(height)
	vr.context.FramebufferSizeGeneration++

	core.LogInfo("Vulkan renderer backend->resized: w/h/gen: %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
	return nil
}

func (vr *VulkanRenderer) BeginFrame(deltaTime float64) error {
	device := vr.context.Device
	// Check if recreating swap chain and boot out.
	if vr.context.RecreatingSwapchain {
		result := vk.DeviceWaitIdle(device.LogicalDevice)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vulkan_renderer_backend_begin_frame vkDeviceWaitIdle (1) failed: '%s'", VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Recreating swapchain, booting.")
		return core.ErrSwapchainBooting
	}

	// Check if the framebuffer has been resized. If so, a new swapchain must be created.
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		result := vk.DeviceWaitIdle(device.LogicalDevice)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vulkan_renderer_backend_begin_frame vkDeviceWaitIdle (2) failed: '%s'", VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}

		// If the swapchain recreation failed (because, for example, the window was minimized),
		// boot out before unsetting the flag.
		if !vr.recreateSwapchain() {
			err := fmt.Errorf("failed to recreate the swapchain")
			core.LogError(err.Error())
			return err
		}

		core.LogInfo("Resized, booting.")
		return core.ErrSwapchainBooting
	}

	// Wait for the submission that last used this frame-in-flight slot to
	// complete before reusing it (§4.8), via the timeline semaphore in place
	// of the old per-slot fence.
	// 10 s timeout, in nanoseconds (§7).
	if err := vr.context.Timeline.Wait(vr.context, vr.context.FrameTimelineValues[vr.context.CurrentFrame], 10_000_000_000); err != nil {
		core.LogWarn(err.Error())
		return err
	}

	// That submission has completed, so anything the resource pool queued for
	// disposal at this frame slot can now be released (§4.2).
	vr.context.Resources.RunDeferredDisposals(vr.context, vr.context.CurrentFrame)

	// The timeline wait above guarantees the frame N-framesInFlight submission
	// that last used this slot has completed, so its transient allocations are
	// now safe to recycle (§4.3).
	if err := vr.context.Transient.BeginFrame(vr.context, uint64(vr.context.CurrentFrame)); err != nil {
		core.LogError(err.Error())
		return err
	}

	// Acquire the next image from the swap chain. Pass along the semaphore that should signaled when this completes.
	// This same semaphore will later be waited on by the queue submission to ensure this image is available.
	imageIndex, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, math.MaxUint64, vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame], vk.NullFence)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			core.LogInfo("swapchain out of date during acquire, booting: %s", err.Error())
			return core.ErrSwapchainBooting
		}
		if !errors.Is(err, core.ErrSwapchainSuboptimal) {
			core.LogError(err.Error())
			return err
		}
		// Suboptimal: proceed with the acquired image this frame, recreate on the next one.
	}
	vr.context.ImageIndex = imageIndex

	// Begin recording commands.
	command_buffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]
	command_buffer.Reset()
	command_buffer.Begin(false, false, false)

	// Dynamic state
	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}

	// Scissor
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{
			X: 0,
			Y: 0,
		},
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}

	vk.CmdSetViewport(command_buffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(command_buffer.Handle, 0, 1, []vk.Rect2D{scissor})

	// A caller-supplied plan (§1/§2) drives the render target planner,
	// layout tracker, and encoders over its own pass-record list; it opens
	// and closes every VkRenderPass it needs right here, since nothing else
	// records commands between BeginFrame and EndFrame. Without a plan, fall
	// back to the single on-screen render target group set up at
	// Initialize, unchanged.
	if vr.pendingPlan != nil && len(vr.pendingPlan.Passes) > 0 {
		if err := vr.recordFramePlan(command_buffer, vr.pendingPlan); err != nil {
			core.LogError(err.Error())
			return err
		}
		return nil
	}

	vr.context.MainRenderPass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderPass.H = float32(vr.context.FramebufferHeight)

	// Begin the render pass.
	vr.context.MainRenderPass.RenderpassBegin(command_buffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)

	return nil
}

func (vr *VulkanRenderer) EndFrame(deltaTime float64) error {
	command_buffer := vr.context.GraphicsCommandBuffers[vr.context.ImageIndex]

	usedPlan := vr.pendingPlan != nil && len(vr.pendingPlan.Passes) > 0
	if !usedPlan {
		// End renderpass
		vr.context.MainRenderPass.RenderpassEnd(command_buffer)
	}
	vr.pendingPlan = nil

	command_buffer.End()

	// Make sure the previous frame is not still using this swapchain image
	// (its submission's timeline value is waited on, not a separate fence).
	if prior := vr.context.ImageTimelineValues[vr.context.ImageIndex]; prior != 0 {
		if err := vr.context.Timeline.Wait(vr.context, prior, 10_000_000_000); err != nil {
			core.LogWarn(err.Error())
			return err
		}
	}

	signalValue := vr.context.Timeline.Next()

	// Submit the queue: one binary semaphore wait (swapchain acquire), two
	// signals — the binary present semaphore and the timeline semaphore's
	// next value — chained via VkTimelineSemaphoreSubmitInfo (§4.1/§4.8).
	// Binary semaphore entries ignore their corresponding timeline value
	// slot; the array lengths must still match the semaphore counts.
	timelineSubmitInfo := vk.TimelineSemaphoreSubmitInfo{
		SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
		WaitSemaphoreValueCount:   1,
		PWaitSemaphoreValues:      []uint64{0},
		SignalSemaphoreValueCount: 2,
		PSignalSemaphoreValues:    []uint64{0, signalValue},
	}
	timelineSubmitInfo.Deref()

	submit_info := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
		PNext: unsafe.Pointer(&timelineSubmitInfo),
	}

	// Command buffer(s) to be executed.
	submit_info.CommandBufferCount = 1
	submit_info.PCommandBuffers = []vk.CommandBuffer{command_buffer.Handle}

	// The semaphore(s) to be signaled when the queue is complete: the binary
	// present semaphore, then the timeline semaphore.
	submit_info.SignalSemaphoreCount = 2
	submit_info.PSignalSemaphores = []vk.Semaphore{
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame],
		vr.context.Timeline.Handle,
	}

	// Wait semaphore ensures that the operation cannot begin until the image is available.
	submit_info.WaitSemaphoreCount = 1
	submit_info.PWaitSemaphores = []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]}

	// Each semaphore waits on the corresponding pipeline stage to complete. 1:1 ratio.
	// VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT prevents subsequent colour attachment
	// writes from executing until the semaphore signals (i.e. one frame is presented at a time)
	flags := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	submit_info.PWaitDstStageMask = []vk.PipelineStageFlags{flags}

	submit_info.Deref()

	if result := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submit_info}, vk.NullFence); result != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(result, true))
		core.LogError(err.Error())
		return err
	}

	vr.context.FrameTimelineValues[vr.context.CurrentFrame] = signalValue
	vr.context.ImageTimelineValues[vr.context.ImageIndex] = signalValue

	command_buffer.UpdateSubmitted()

	// Give the image back to the swapchain.
	if err := vr.context.Swapchain.SwapchainPresent(
		vr.context,
		vr.context.Device.GraphicsQueue,
		vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame],
		vr.context.ImageIndex); err != nil {
		if !errors.Is(err, core.ErrSwapchainOutOfDate) {
			return err
		}
		// Recreation was already triggered; the next BeginFrame will boot out
		// on the RecreatingSwapchain check until it settles.
	}

	vr.context.Transient.EndFrame()

	vr.clock.Update()
	core.MetricsUpdate(deltaTime)
	vr.FrameNumber++
	if vr.FrameNumber%uint64(core.AVG_COUNT) == 0 {
		fps, frameMS := core.MetricsFrame()
		core.LogDebug("frame %d: %.1f fps, %.2fms avg frame time", vr.FrameNumber, fps, frameMS)
	}

	return nil
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	if len(vr.context.GraphicsCommandBuffers) == 0 {
		vr.context.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.Swapchain.ImageCount)
	}
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		if vr.context.GraphicsCommandBuffers[i] != nil && vr.context.GraphicsCommandBuffers[i].Handle != nil {
			vr.context.GraphicsCommandBuffers[i].Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
		vr.context.GraphicsCommandBuffers[i] = nil
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.context.GraphicsCommandBuffers[i] = cb
	}

	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) regenerateFramebuffers(swapchain *VulkanSwapchain, renderpass *VulkanRenderPass) error {
	for i := 0; i < int(swapchain.ImageCount); i++ {
		var attachment_count uint32 = 2
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, renderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachment_count, attachments)
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

func (vr *VulkanRenderer) recreateSwapchain() bool {
	// If already being recreated, do not try again.
	if vr.context.RecreatingSwapchain {
		core.LogDebug("recreate_swapchain called when already recreating. Booting.")
		return false
	}

	// Detect if the window is too small to be drawn to
	if vr.context.FramebufferWidth == 0 || vr.context.FramebufferHeight == 0 {
		core.LogDebug("recreate_swapchain called when window is < 1 in a dimension. Booting.")
		return false
	}

	// Mark as recreating if the dimensions are valid.
	vr.context.RecreatingSwapchain = true

	// Wait for any operations to complete.
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Requery support
	DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, vr.context.Device.SwapchainSupport)
	if err := DeviceDetectDepthFormat(vr.context.Device); err != nil {
		core.LogError("failed to detect depth format on swapchain recreate: %s", err.Error())
		vr.context.RecreatingSwapchain = false
		return false
	}

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.cachedFramebufferWidth, vr.cachedFramebufferHeight)
	if err != nil {
		vr.context.RecreatingSwapchain = false
		return false
	}
	vr.context.Swapchain = sc
	vr.context.ImageTimelineValues = make([]uint64, vr.context.Swapchain.ImageCount)

	// Sync the framebuffer size with the cached sizes.
	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	vr.cachedFramebufferWidth = 0
	vr.cachedFramebufferHeight = 0

	// Update framebuffer size generation.
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	// cleanup swapchain
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.GraphicsCommandBuffers[i].Free(vr.context, vr.context.Device.GraphicsCommandPool)
	}

	// Framebuffers.
	for i := 0; i < int(vr.context.Swapchain.ImageCount); i++ {
		vr.context.Swapchain.Framebuffers[i].Destroy(vr.context)
	}

	vr.context.MainRenderPass.X = 0
	vr.context.MainRenderPass.Y = 0
	vr.context.MainRenderPass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderPass.H = float32(vr.context.FramebufferHeight)

	vr.regenerateFramebuffers(vr.context.Swapchain, vr.context.MainRenderPass)
	vr.context.MainRenderTargetGroup.Framebuffers = vr.context.Swapchain.Framebuffers

	vr.createCommandBuffers()

	// Clear the recreating flag.
	vr.context.RecreatingSwapchain = false

	return true
}

func (vr *VulkanRenderer) createVulkanSurface() uintptr {
	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogFatal("Vulkan surface creation failed.")
		return 0
	}
	return surface
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogInfo("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
