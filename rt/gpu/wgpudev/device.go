// Package wgpudev implements gpu.Device on WebGPU.
package wgpudev

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
)

const (
	uniformAlign       = 256
	defaultUniformRing = 4 << 20
	depthFormat        = wgpu.TextureFormatDepth24Plus
)

var (
	ErrNoPass     = errors.New("draw outside of a render pass")
	ErrPassActive = errors.New("render pass already active")
	ErrRingFull   = errors.New("uniform ring exhausted")
)

type Options struct {
	SurfaceFormat wgpu.TextureFormat
	Width, Height uint32
	// UniformRingSize bounds the uniform bytes of one frame.
	UniformRingSize uint64
	Logger          core.Logger
}

type buffer struct {
	b     *wgpu.Buffer
	label string
	size  uint64
}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }
func (b *buffer) Release() {
	if b.b != nil {
		b.b.Release()
		b.b = nil
	}
}

type program struct {
	label          string
	target         gpu.Target
	uniformSize    uint64
	module         *wgpu.ShaderModule
	bindLayout     *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	opaque         *wgpu.RenderPipeline
	transparent    *wgpu.RenderPipeline
	bindGroup      *wgpu.BindGroup
}

func (p *program) Label() string { return p.label }

func (p *program) Release() {
	if p.opaque == nil {
		return
	}
	p.bindGroup.Release()
	p.transparent.Release()
	p.opaque.Release()
	p.pipelineLayout.Release()
	p.bindLayout.Release()
	p.module.Release()
	p.opaque = nil
}

// Device records draws into one render pass at a time. Uniforms of every
// draw in a frame go to a ring buffer bound with a dynamic offset.
type Device struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	logger core.Logger
	opts   Options

	ring     *wgpu.Buffer
	ringSize uint64
	ringUsed uint64

	depth     *wgpu.Texture
	depthView *wgpu.TextureView
	offscreen map[gpu.Target]*wgpu.Texture
	views     map[gpu.Target]*wgpu.TextureView

	encoder    *wgpu.CommandEncoder
	pass       *wgpu.RenderPassEncoder
	passTarget gpu.Target
}

var _ gpu.Device = (*Device)(nil)

func New(device *wgpu.Device, opts Options) (*Device, error) {
	if opts.UniformRingSize == 0 {
		opts.UniformRingSize = defaultUniformRing
	}
	ring, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "bimview.uniforms",
		Size:  opts.UniformRingSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform ring: %w", err)
	}
	d := &Device{
		device:    device,
		queue:     device.GetQueue(),
		logger:    core.OrNop(opts.Logger),
		opts:      opts,
		ring:      ring,
		ringSize:  opts.UniformRingSize,
		offscreen: make(map[gpu.Target]*wgpu.Texture),
		views:     make(map[gpu.Target]*wgpu.TextureView),
	}
	if err := d.Resize(opts.Width, opts.Height); err != nil {
		ring.Release()
		return nil, err
	}
	return d, nil
}

func bufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gpu.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&gpu.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&gpu.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gpu.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func pad4(b []byte) []byte {
	if r := len(b) % 4; r != 0 {
		return append(b, make([]byte, 4-r)...)
	}
	return b
}

func (d *Device) CreateBuffer(label string, usage gpu.BufferUsage, contents []byte) (gpu.Buffer, error) {
	contents = pad4(contents)
	b, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    bufferUsage(usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	return &buffer{b: b, label: label, size: uint64(len(contents))}, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b, ok := buf.(*buffer)
	if !ok || b.b == nil {
		d.logger.Errorf("write to foreign or released buffer %T", buf)
		return
	}
	if err := d.queue.WriteBuffer(b.b, offset, pad4(data)); err != nil {
		d.logger.Errorf("write buffer %s at %d: %v", b.label, offset, err)
	}
}

func (d *Device) targetFormat(t gpu.Target) wgpu.TextureFormat {
	switch t {
	case gpu.TargetPick:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.TargetFloat:
		return wgpu.TextureFormatRGBA32Float
	}
	return d.opts.SurfaceFormat
}

func topology(t gpu.Topology) wgpu.PrimitiveTopology {
	switch t {
	case gpu.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gpu.TopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func vertexFormat(f gpu.VertexFormat) wgpu.VertexFormat {
	switch f {
	case gpu.FormatUint16x2:
		return wgpu.VertexFormatUint16x2
	case gpu.FormatUnorm8x4:
		return wgpu.VertexFormatUnorm8x4
	case gpu.FormatUint32:
		return wgpu.VertexFormatUint32
	}
	return wgpu.VertexFormatUint16x4
}

var alphaBlend = &wgpu.BlendState{
	Color: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
	Alpha: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
}

func (d *Device) CreateProgram(desc *gpu.ProgramDescriptor) (gpu.Program, error) {
	p := &program{label: desc.Label, target: desc.Target, uniformSize: desc.UniformSize}
	var err error
	fail := func(step string, err error) (gpu.Program, error) {
		p.releasePartial()
		return nil, fmt.Errorf("program %s: %s: %w", desc.Label, step, err)
	}

	p.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return fail("shader module", err)
	}
	p.bindLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: desc.Label + " uniforms",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   desc.UniformSize,
			},
		}},
	})
	if err != nil {
		return fail("bind group layout", err)
	}
	p.pipelineLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fail("pipeline layout", err)
	}

	var blend *wgpu.BlendState
	if desc.Blend == gpu.BlendAlpha && desc.Target != gpu.TargetFloat {
		blend = alphaBlend
	}
	if p.opaque, err = d.pipeline(desc, p, blend, desc.DepthWrite); err != nil {
		return fail("opaque pipeline", err)
	}
	blend = alphaBlend
	if desc.Target == gpu.TargetFloat {
		blend = nil
	}
	if p.transparent, err = d.pipeline(desc, p, blend, false); err != nil {
		return fail("transparent pipeline", err)
	}

	p.bindGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  desc.Label,
		Layout: p.bindLayout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  d.ring,
			Size:    desc.UniformSize,
		}},
	})
	if err != nil {
		return fail("bind group", err)
	}
	return p, nil
}

func (p *program) releasePartial() {
	if p.transparent != nil {
		p.transparent.Release()
	}
	if p.opaque != nil {
		p.opaque.Release()
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	if p.bindLayout != nil {
		p.bindLayout.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

func (d *Device) pipeline(desc *gpu.ProgramDescriptor, p *program, blend *wgpu.BlendState, depthWrite bool) (*wgpu.RenderPipeline, error) {
	layouts := make([]wgpu.VertexBufferLayout, len(desc.Attributes))
	for i, a := range desc.Attributes {
		layouts[i] = wgpu.VertexBufferLayout{
			ArrayStride: a.Format.ByteSize(),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         vertexFormat(a.Format),
				Offset:         0,
				ShaderLocation: a.Location,
			}},
		}
	}
	return d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
			Buffers:    layouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    d.targetFormat(desc.Target),
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: depthWrite,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

// Resize recreates the depth and offscreen attachments.
func (d *Device) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	d.releaseAttachments()
	d.opts.Width, d.opts.Height = width, height

	var err error
	if d.depth, d.depthView, err = d.attachment("bimview.depth", depthFormat); err != nil {
		return err
	}
	for _, t := range []gpu.Target{gpu.TargetPick, gpu.TargetFloat} {
		tex, view, err := d.attachment(fmt.Sprintf("bimview.offscreen.%d", t), d.targetFormat(t))
		if err != nil {
			return err
		}
		d.offscreen[t], d.views[t] = tex, view
	}
	return nil
}

func (d *Device) attachment(label string, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: d.opts.Width, Height: d.opts.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("view %s: %w", label, err)
	}
	return tex, view, nil
}

func (d *Device) releaseAttachments() {
	if d.depthView != nil {
		d.depthView.Release()
		d.depth.Release()
		d.depthView, d.depth = nil, nil
	}
	for t, v := range d.views {
		v.Release()
		d.offscreen[t].Release()
		delete(d.views, t)
		delete(d.offscreen, t)
	}
}

// Offscreen returns the attachment texture of an offscreen target.
func (d *Device) Offscreen(t gpu.Target) *wgpu.Texture { return d.offscreen[t] }

// BeginFrame rewinds the uniform ring. Call once per frame before any pass.
func (d *Device) BeginFrame() {
	d.ringUsed = 0
}

// BeginPass opens a render pass on the target. color is the swapchain view
// for TargetSurface and ignored otherwise.
func (d *Device) BeginPass(t gpu.Target, color *wgpu.TextureView, clear wgpu.Color, clearDepth bool) error {
	if d.pass != nil {
		return ErrPassActive
	}
	if t != gpu.TargetSurface {
		color = d.views[t]
	}
	if color == nil || d.depthView == nil {
		return fmt.Errorf("begin pass %d: no attachment", t)
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	load := wgpu.LoadOpLoad
	depthLoad := wgpu.LoadOpLoad
	if clearDepth {
		load = wgpu.LoadOpClear
		depthLoad = wgpu.LoadOpClear
	}
	d.encoder = encoder
	d.passTarget = t
	d.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       color,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	return nil
}

// EndPass ends the pass and submits it.
func (d *Device) EndPass() error {
	if d.pass == nil {
		return ErrNoPass
	}
	pass, encoder := d.pass, d.encoder
	d.pass, d.encoder = nil, nil
	defer encoder.Release()

	if err := pass.End(); err != nil {
		return fmt.Errorf("end pass: %w", err)
	}
	pass.Release()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish pass: %w", err)
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
	return nil
}

func (d *Device) Draw(cmd *gpu.DrawCommand) {
	if d.pass == nil {
		d.logger.Errorf("draw %s: %v", cmd.Program.Label(), ErrNoPass)
		return
	}
	p, ok := cmd.Program.(*program)
	if !ok || p.opaque == nil {
		d.logger.Errorf("draw with foreign or released program %T", cmd.Program)
		return
	}
	if p.target != d.passTarget {
		d.logger.Errorf("draw %s: program target %d in pass target %d", p.label, p.target, d.passTarget)
		return
	}

	offset := (d.ringUsed + uniformAlign - 1) / uniformAlign * uniformAlign
	if offset+p.uniformSize > d.ringSize {
		d.logger.Errorf("draw %s: %v", p.label, ErrRingFull)
		return
	}
	uniforms := cmd.Uniforms
	if uint64(len(uniforms)) > p.uniformSize {
		uniforms = uniforms[:p.uniformSize]
	}
	if err := d.queue.WriteBuffer(d.ring, offset, pad4(uniforms)); err != nil {
		d.logger.Errorf("draw %s: uniforms: %v", p.label, err)
		return
	}
	d.ringUsed = offset + p.uniformSize

	pipeline := p.opaque
	if cmd.Transparent {
		pipeline = p.transparent
	}
	d.pass.SetPipeline(pipeline)
	for slot, vb := range cmd.Vertex {
		b := vb.(*buffer)
		d.pass.SetVertexBuffer(uint32(slot), b.b, 0, wgpu.WholeSize)
	}
	d.pass.SetBindGroup(0, p.bindGroup, []uint32{uint32(offset)})
	if cmd.Index != nil {
		d.pass.SetIndexBuffer(cmd.Index.(*buffer).b, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		d.pass.DrawIndexed(cmd.Count, 1, 0, 0, 0)
		return
	}
	d.pass.Draw(cmd.Count, 1, 0, 0)
}

// Release frees the ring and attachments. Buffers and programs are released
// by their owners.
func (d *Device) Release() {
	d.releaseAttachments()
	if d.ring != nil {
		d.ring.Release()
		d.ring = nil
	}
}
