package device

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/gpu"
)

// DefaultVulkanApplicationInfo application info describes a Vulkan application
var DefaultVulkanApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "tessera\x00",
	PEngineName:        "tessera\x00",
}

// package errors
var (
	ErrNoPhysicalDevice = errors.New("device: no physical device available")
	ErrNoQueueFamily    = errors.New("device: no graphics queue family")
	ErrMemoryType       = errors.New("device: requested memory type not found")
	ErrUnknownHandle    = errors.New("device: unknown handle")
)

// NewVulkanDevice creates a Vulkan instance and, unless instanceOnly is set,
// a logical device on the first physical device with a graphics queue.
// procAddr comes from the windowing layer, nil uses the loader default.
func NewVulkanDevice(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration, instanceOnly bool, log logrus.FieldLogger) (*Vulkan, error) {
	if log == nil {
		log = core.NopLogger()
	}
	if cfg.DebugMode {
		cfg.Layers = append(cfg.Layers, "VK_LAYER_LUNARG_standard_validation")
		cfg.Extensions = append(cfg.Extensions, "VK_EXT_debug_report")
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.New("vk.SetDefaultGetInstanceProcAddr(): " + err.Error())
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}

	extensions := core.SafeStrings(cfg.Extensions)
	layers := core.SafeStrings(cfg.Layers)
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	v := &Vulkan{
		configuration: cfg,
		objects:       make(map[gpu.Handle]*vulkanObject),
		log:           log.WithField("component", "device.vulkan"),
	}
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &v.instance)); err != nil {
		return nil, errors.New("vk.CreateInstance(): " + err.Error())
	}
	vk.InitInstance(v.instance)

	if err := v.enumerateDevices(); err != nil {
		v.Destroy()
		return nil, err
	}
	if instanceOnly {
		return v, nil
	}
	if err := v.createLogicalDevice(); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

type objectKind int

const (
	bufferObject objectKind = iota
	textureObject
	shaderObject
	framebufferObject
)

type vulkanObject struct {
	kind objectKind

	buffer      vk.Buffer
	image       vk.Image
	view        vk.ImageView
	memory      vk.DeviceMemory
	shader      vk.ShaderModule
	renderPass  vk.RenderPass
	framebuffer vk.Framebuffer
	format      vk.Format
}

// Vulkan is a Vulkan API device. Device objects are kept in an arena keyed
// by gpu.Handle, handles are never reused.
type Vulkan struct {
	configuration InstanceConfiguration

	instance         vk.Instance
	availableDevices []vk.PhysicalDevice
	physicalDevice   vk.PhysicalDevice
	logicalDevice    vk.Device
	graphicsQueue    uint32
	surfaces         []vk.Surface

	mu      sync.Mutex
	next    gpu.Handle
	objects map[gpu.Handle]*vulkanObject

	log logrus.FieldLogger
}

func (v *Vulkan) enumerateDevices() error {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, nil)); err != nil {
		return fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	v.availableDevices = make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(v.instance, &deviceCount, v.availableDevices)); err != nil {
		return fmt.Errorf("vulkan physical device enumeration failed: %s", err)
	}
	return nil
}

func (v *Vulkan) createLogicalDevice() error {
	if len(v.availableDevices) == 0 {
		return ErrNoPhysicalDevice
	}
	v.physicalDevice = v.availableDevices[0]

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(v.physicalDevice, &queueFamilyCount, queueFamilies)

	found := false
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			v.graphicsQueue = i
			found = true
			break
		}
	}
	if !found {
		return ErrNoQueueFamily
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.graphicsQueue,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	extensions := core.SafeStrings(v.configuration.DeviceExtensions)
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &v.logicalDevice)); err != nil {
		return errors.New("vk.CreateDevice(): " + err.Error())
	}
	return nil
}

// PhysicalDevices implements interface
func (v *Vulkan) PhysicalDevices() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(v.availableDevices))
	for i := 0; i < len(v.availableDevices); i++ {
		// Get extension info
		var numDeviceExtensions uint32
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(v.availableDevices[i], "", &numDeviceExtensions, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceExt := make([]vk.ExtensionProperties, numDeviceExtensions)
		if err := vk.Error(vk.EnumerateDeviceExtensionProperties(v.availableDevices[i], "", &numDeviceExtensions, deviceExt)); err != nil {
			pdi[i].Invalid = true
		}
		for _, ext := range deviceExt {
			ext.Deref()
			pdi[i].Extensions = append(pdi[i].Extensions, vk.ToString(ext.ExtensionName[:]))
		}

		// Get layers info
		var numDeviceLayers uint32
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(v.availableDevices[i], &numDeviceLayers, nil)); err != nil {
			pdi[i].Invalid = true
		}
		deviceLayers := make([]vk.LayerProperties, numDeviceLayers)
		if err := vk.Error(vk.EnumerateDeviceLayerProperties(v.availableDevices[i], &numDeviceLayers, deviceLayers)); err != nil {
			pdi[i].Invalid = true
		}
		for _, layer := range deviceLayers {
			layer.Deref()
			pdi[i].Layers = append(pdi[i].Layers, vk.ToString(layer.LayerName[:]))
		}

		// Get memory info
		var memoryProperties vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(v.availableDevices[i], &memoryProperties)
		memoryProperties.Deref()
		for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
			memoryProperties.MemoryHeaps[iMem].Deref()
			pdi[i].Memory += memoryProperties.MemoryHeaps[iMem].Size
		}

		// Get general device info
		var physicalDeviceProperties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(v.availableDevices[i], &physicalDeviceProperties)
		physicalDeviceProperties.Deref()
		pdi[i].ID = int(physicalDeviceProperties.DeviceID)
		pdi[i].VendorID = int(physicalDeviceProperties.VendorID)
		pdi[i].Name = vk.ToString(physicalDeviceProperties.DeviceName[:])
		pdi[i].DriverVersion = int(physicalDeviceProperties.DriverVersion)
	}
	return pdi
}

// Instance returns internal vk.Instance
func (v *Vulkan) Instance() interface{} {
	return v.instance
}

// AttachSurface takes ownership of a window surface created on this
// instance and reports whether the graphics queue can present to it.
func (v *Vulkan) AttachSurface(surface unsafe.Pointer) (bool, error) {
	if surface == nil {
		return false, errors.New("device: nil surface")
	}
	s := vk.SurfaceFromPointer(uintptr(surface))
	v.mu.Lock()
	v.surfaces = append(v.surfaces, s)
	v.mu.Unlock()
	if v.physicalDevice == nil {
		return false, nil
	}
	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(v.physicalDevice, v.graphicsQueue, s, &supported)); err != nil {
		return false, fmt.Errorf("surface support query failed: %s", err)
	}
	return supported == vk.True, nil
}

// Live implements interface
func (v *Vulkan) Live() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.objects)
}

func (v *Vulkan) store(obj *vulkanObject) gpu.Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	v.objects[v.next] = obj
	return v.next
}

func (v *Vulkan) take(h gpu.Handle, kind objectKind) (*vulkanObject, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	obj, ok := v.objects[h]
	if !ok || obj.kind != kind {
		return nil, false
	}
	delete(v.objects, h)
	return obj, true
}

func (v *Vulkan) lookup(h gpu.Handle, kind objectKind) (*vulkanObject, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	obj, ok := v.objects[h]
	if !ok || obj.kind != kind {
		return nil, false
	}
	return obj, true
}

func (v *Vulkan) getMemoryType(typeBits uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(v.physicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for idx := uint32(0); idx < memoryProperties.MemoryTypeCount; idx++ {
		if (typeBits & 1) == 1 {
			memoryProperties.MemoryTypes[idx].Deref()
			if (memoryProperties.MemoryTypes[idx].PropertyFlags & properties) == properties {
				return idx, nil
			}
		}
		typeBits >>= 1
	}
	return 0, ErrMemoryType
}

func (v *Vulkan) allocate(req vk.MemoryRequirements) (vk.DeviceMemory, error) {
	req.Deref()
	memoryType, err := v.getMemoryType(req.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(v.logicalDevice, &mai, nil, &memory)); err != nil {
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}

func (v *Vulkan) upload(memory vk.DeviceMemory, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var pData unsafe.Pointer
	if err := vk.Error(vk.MapMemory(v.logicalDevice, memory, 0, vk.DeviceSize(len(data)), 0, &pData)); err != nil {
		return err
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(v.logicalDevice, memory)
	return nil
}

func bufferUsage(u gpu.BufferUsage) vk.BufferUsageFlags {
	switch u {
	case gpu.IndexBuffer:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case gpu.UniformBuffer:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	case gpu.StorageBuffer:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
}

// CreateBuffer implements gpu.Device
func (v *Vulkan) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Handle, error) {
	size := len(desc.Data)
	if size == 0 {
		size = 4
	}
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(desc.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(v.logicalDevice, &bci, nil, &buffer)); err != nil {
		return 0, fmt.Errorf("vk.CreateBuffer(%s): %w", desc.Label, err)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.logicalDevice, buffer, &req)
	memory, err := v.allocate(req)
	if err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		return 0, err
	}
	if err := vk.Error(vk.BindBufferMemory(v.logicalDevice, buffer, memory, 0)); err != nil {
		vk.FreeMemory(v.logicalDevice, memory, nil)
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		return 0, err
	}
	if err := v.upload(memory, desc.Data); err != nil {
		vk.FreeMemory(v.logicalDevice, memory, nil)
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		return 0, err
	}
	return v.store(&vulkanObject{kind: bufferObject, buffer: buffer, memory: memory}), nil
}

// DestroyBuffer implements gpu.Device
func (v *Vulkan) DestroyBuffer(h gpu.Handle) {
	obj, ok := v.take(h, bufferObject)
	if !ok {
		v.log.WithField("handle", h).Warn(ErrUnknownHandle)
		return
	}
	vk.DestroyBuffer(v.logicalDevice, obj.buffer, nil)
	vk.FreeMemory(v.logicalDevice, obj.memory, nil)
}

func textureFormat(f gpu.TextureFormat) vk.Format {
	switch f {
	case gpu.BGRA8:
		return vk.FormatB8g8r8a8Unorm
	case gpu.R8:
		return vk.FormatR8Unorm
	case gpu.Depth32F:
		return vk.FormatD32Sfloat
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

// CreateTexture implements gpu.Device. Textures are linear and host visible
// so pixel data can be copied in row by row.
func (v *Vulkan) CreateTexture(desc gpu.TextureDescriptor) (gpu.Handle, error) {
	format := textureFormat(desc.Format)
	usage := vk.ImageUsageSampledBit | vk.ImageUsageColorAttachmentBit
	aspect := vk.ImageAspectColorBit
	if desc.Format == gpu.Depth32F {
		usage = vk.ImageUsageDepthStencilAttachmentBit
		aspect = vk.ImageAspectDepthBit
	}

	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingLinear,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutPreinitialized,
	}
	var image vk.Image
	if err := vk.Error(vk.CreateImage(v.logicalDevice, &ici, nil, &image)); err != nil {
		return 0, fmt.Errorf("vk.CreateImage(%s): %w", desc.Label, err)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.logicalDevice, image, &req)
	memory, err := v.allocate(req)
	if err != nil {
		vk.DestroyImage(v.logicalDevice, image, nil)
		return 0, err
	}
	if err := vk.Error(vk.BindImageMemory(v.logicalDevice, image, memory, 0)); err != nil {
		vk.FreeMemory(v.logicalDevice, memory, nil)
		vk.DestroyImage(v.logicalDevice, image, nil)
		return 0, err
	}
	if err := v.uploadPixels(image, memory, desc); err != nil {
		vk.FreeMemory(v.logicalDevice, memory, nil)
		vk.DestroyImage(v.logicalDevice, image, nil)
		return 0, err
	}

	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(v.logicalDevice, &ivci, nil, &view)); err != nil {
		vk.FreeMemory(v.logicalDevice, memory, nil)
		vk.DestroyImage(v.logicalDevice, image, nil)
		return 0, err
	}
	return v.store(&vulkanObject{kind: textureObject, image: image, view: view, memory: memory, format: format}), nil
}

func (v *Vulkan) uploadPixels(image vk.Image, memory vk.DeviceMemory, desc gpu.TextureDescriptor) error {
	if len(desc.Pixels) == 0 {
		return nil
	}
	subresource := vk.ImageSubresource{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit)}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(v.logicalDevice, image, &subresource, &layout)
	layout.Deref()

	rowSize := int(desc.Width) * desc.Format.BytesPerPixel()
	rowPitch := int(layout.RowPitch)
	if rowPitch < rowSize {
		rowPitch = rowSize
	}
	staged := make([]byte, rowPitch*int(desc.Height))
	for y := 0; y < int(desc.Height) && (y+1)*rowSize <= len(desc.Pixels); y++ {
		copy(staged[y*rowPitch:], desc.Pixels[y*rowSize:(y+1)*rowSize])
	}

	var pData unsafe.Pointer
	if err := vk.Error(vk.MapMemory(v.logicalDevice, memory, vk.DeviceSize(layout.Offset), vk.DeviceSize(len(staged)), 0, &pData)); err != nil {
		return err
	}
	vk.Memcopy(pData, staged)
	vk.UnmapMemory(v.logicalDevice, memory)
	return nil
}

// DestroyTexture implements gpu.Device
func (v *Vulkan) DestroyTexture(h gpu.Handle) {
	obj, ok := v.take(h, textureObject)
	if !ok {
		v.log.WithField("handle", h).Warn(ErrUnknownHandle)
		return
	}
	vk.DestroyImageView(v.logicalDevice, obj.view, nil)
	vk.DestroyImage(v.logicalDevice, obj.image, nil)
	vk.FreeMemory(v.logicalDevice, obj.memory, nil)
}

// CreateShader implements gpu.Device. The source must be SPIR-V.
func (v *Vulkan) CreateShader(desc gpu.ShaderDescriptor) (gpu.Handle, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(desc.Source)),
		PCode:    core.SliceUint32(desc.Source),
	}
	var shader vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(v.logicalDevice, &smci, nil, &shader)); err != nil {
		return 0, fmt.Errorf("vk.CreateShaderModule(%s, stage %d): %w", desc.Name, desc.Stage, err)
	}
	return v.store(&vulkanObject{kind: shaderObject, shader: shader}), nil
}

// DestroyShader implements gpu.Device
func (v *Vulkan) DestroyShader(h gpu.Handle) {
	obj, ok := v.take(h, shaderObject)
	if !ok {
		v.log.WithField("handle", h).Warn(ErrUnknownHandle)
		return
	}
	vk.DestroyShaderModule(v.logicalDevice, obj.shader, nil)
}

// CreateFramebuffer implements gpu.Device. A render pass compatible with the
// attachments is created alongside and owned by the framebuffer.
func (v *Vulkan) CreateFramebuffer(desc gpu.FramebufferDescriptor) (gpu.Handle, error) {
	var (
		attachments []vk.AttachmentDescription
		colorRefs   []vk.AttachmentReference
		depthRef    *vk.AttachmentReference
		views       []vk.ImageView
	)
	for i, h := range desc.Attachments {
		tex, ok := v.lookup(h, textureObject)
		if !ok {
			return 0, fmt.Errorf("framebuffer %s attachment %d: %w", desc.Label, i, ErrUnknownHandle)
		}
		views = append(views, tex.view)
		if tex.format == vk.FormatD32Sfloat {
			attachments = append(attachments, vk.AttachmentDescription{
				Format:         tex.format,
				Samples:        vk.SampleCount1Bit,
				LoadOp:         vk.AttachmentLoadOpClear,
				StoreOp:        vk.AttachmentStoreOpDontCare,
				StencilLoadOp:  vk.AttachmentLoadOpDontCare,
				StencilStoreOp: vk.AttachmentStoreOpDontCare,
				InitialLayout:  vk.ImageLayoutUndefined,
				FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
			})
			depthRef = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
			continue
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         tex.format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}
	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(v.logicalDevice, &rpci, nil, &renderPass)); err != nil {
		return 0, errors.New("vk.CreateRenderPass(): " + err.Error())
	}

	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Width,
		Height:          desc.Height,
		Layers:          1,
	}
	var framebuffer vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(v.logicalDevice, &fci, nil, &framebuffer)); err != nil {
		vk.DestroyRenderPass(v.logicalDevice, renderPass, nil)
		return 0, err
	}
	return v.store(&vulkanObject{kind: framebufferObject, framebuffer: framebuffer, renderPass: renderPass}), nil
}

// DestroyFramebuffer implements gpu.Device
func (v *Vulkan) DestroyFramebuffer(h gpu.Handle) {
	obj, ok := v.take(h, framebufferObject)
	if !ok {
		v.log.WithField("handle", h).Warn(ErrUnknownHandle)
		return
	}
	vk.DestroyFramebuffer(v.logicalDevice, obj.framebuffer, nil)
	vk.DestroyRenderPass(v.logicalDevice, obj.renderPass, nil)
}

// Destroy releases every remaining device object, then the device and
// the instance.
func (v *Vulkan) Destroy() {
	if v == nil {
		return
	}
	v.mu.Lock()
	remaining := make([]gpu.Handle, 0, len(v.objects))
	for h := range v.objects {
		remaining = append(remaining, h)
	}
	v.mu.Unlock()
	if len(remaining) > 0 {
		v.log.WithField("count", len(remaining)).Warn("device objects still alive at shutdown")
	}
	for _, h := range remaining {
		v.destroyAny(h)
	}

	v.availableDevices = nil
	if v.logicalDevice != nil {
		vk.DestroyDevice(v.logicalDevice, nil)
		v.logicalDevice = nil
	}
	if v.instance != nil {
		for _, s := range v.surfaces {
			vk.DestroySurface(v.instance, s, nil)
		}
		v.surfaces = nil
		vk.DestroyInstance(v.instance, nil)
		v.instance = nil
	}
}

func (v *Vulkan) destroyAny(h gpu.Handle) {
	v.mu.Lock()
	obj, ok := v.objects[h]
	v.mu.Unlock()
	if !ok {
		return
	}
	switch obj.kind {
	case textureObject:
		v.DestroyTexture(h)
	case shaderObject:
		v.DestroyShader(h)
	case framebufferObject:
		v.DestroyFramebuffer(h)
	default:
		v.DestroyBuffer(h)
	}
}
