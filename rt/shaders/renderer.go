package shaders

import (
	"container/list"
	"errors"
	"fmt"

	"github.com/gekko3d/bimview/rt/core"
	"github.com/gekko3d/bimview/rt/gpu"
)

var (
	ErrDestroyed     = errors.New("renderer destroyed")
	ErrMissingBuffer = errors.New("drawable is missing a vertex buffer")
)

// State is the renderer lifecycle: Uncompiled -> Valid -> Stale -> Valid ... -> Destroyed.
type State uint8

const (
	StateUncompiled State = iota
	StateValid
	StateStale
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUncompiled:
		return "uncompiled"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

type cachedProgram struct {
	hash    string
	program gpu.Program
	feat    Features
}

// Renderer draws one Kind for one primitive. Programs are compiled lazily on
// Bind and kept in a small LRU keyed by feature hash, so views with
// different lights or section planes each compile once.
type Renderer struct {
	kind      Kind
	primitive core.Primitive
	device    gpu.Device
	logger    core.Logger
	profiler  *core.Profiler

	state     State
	current   *cachedProgram
	boundView int

	cacheSize int
	lru       *list.List
	byHash    map[string]*list.Element

	compiles int
	vertex   []gpu.Buffer
	uniforms []byte
}

func newRenderer(kind Kind, primitive core.Primitive, cfg *SetConfig) *Renderer {
	size := cfg.ProgramCacheSize
	if size <= 0 {
		size = 1
	}
	return &Renderer{
		kind:      kind,
		primitive: primitive,
		device:    cfg.Device,
		logger:    core.With(cfg.Logger, fmt.Sprintf("renderer %s/%s", primitive, kind)),
		profiler:  cfg.Profiler,
		boundView: -1,
		cacheSize: size,
		lru:       list.New(),
		byHash:    make(map[string]*list.Element),
	}
}

func (r *Renderer) Kind() Kind { return r.kind }

func (r *Renderer) State() State { return r.state }

// Compiles returns how many programs this renderer has compiled.
func (r *Renderer) Compiles() int { return r.compiles }

// FeatureHash returns the live hash for a view.
func (r *Renderer) FeatureHash(v *core.View) string {
	return FeatureHash(r.primitive, r.kind, v)
}

// Hash returns the hash captured at the last compile or reuse, or "".
func (r *Renderer) Hash() string {
	if r.current == nil {
		return ""
	}
	return r.current.hash
}

// Source returns the program text for the view's features.
func (r *Renderer) Source(v *core.View) string {
	return Compose(FeaturesFor(r.primitive, r.kind, v)).String()
}

// MarkStale forces the next Bind to compare hashes.
func (r *Renderer) MarkStale() {
	if r.state == StateValid {
		r.state = StateStale
	}
}

// Bind makes the program for the view current, compiling at most once.
func (r *Renderer) Bind(v *core.View) error {
	switch r.state {
	case StateDestroyed:
		return fmt.Errorf("bind %s/%s: %w", r.primitive, r.kind, ErrDestroyed)
	case StateValid:
		if v.Index == r.boundView {
			return nil
		}
	}

	hash := r.FeatureHash(v)
	if r.current != nil && r.current.hash == hash {
		r.state = StateValid
		r.boundView = v.Index
		return nil
	}

	if el, ok := r.byHash[hash]; ok {
		r.lru.MoveToFront(el)
		r.current = el.Value.(*cachedProgram)
		r.state = StateValid
		r.boundView = v.Index
		r.profiler.Add(core.StatProgramsReused, 1)
		return nil
	}

	feat := FeaturesFor(r.primitive, r.kind, v)
	label := fmt.Sprintf("%s/%s#%d", r.primitive, r.kind, r.compiles)
	program, err := r.device.CreateProgram(feat.Descriptor(label))
	if err != nil {
		return fmt.Errorf("compile %s (%s): %w", label, hash, err)
	}
	r.compiles++
	r.profiler.Add(core.StatProgramsCompile, 1)
	r.logger.Debugf("compiled #%d for hash %s", r.compiles-1, hash)

	cp := &cachedProgram{hash: hash, program: program, feat: feat}
	r.byHash[hash] = r.lru.PushFront(cp)
	r.evict()

	r.current = cp
	r.state = StateValid
	r.boundView = v.Index
	return nil
}

func (r *Renderer) evict() {
	for r.lru.Len() > r.cacheSize {
		el := r.lru.Back()
		cp := el.Value.(*cachedProgram)
		r.lru.Remove(el)
		delete(r.byHash, cp.hash)
		cp.program.Release()
	}
}

// Draw binds the program for the frame's view and issues one draw of d for
// the pass.
func (r *Renderer) Draw(frame *FrameContext, d Drawable, pass core.RenderPass) error {
	if err := r.Bind(frame.View); err != nil {
		return err
	}
	feat := r.current.feat

	var index gpu.Buffer
	var count uint32
	switch {
	case r.kind.UsesEdgeIndices():
		index, count = d.EdgeIndices()
	case r.kind.Indexed(r.primitive):
		index, count = d.Indices()
	default:
		count = d.NumVertices()
	}
	if count == 0 {
		return nil
	}

	r.vertex = r.vertex[:0]
	for _, a := range feat.attributes() {
		b := d.VertexBuffer(frame.View.Index, a.Semantic)
		if b == nil {
			return fmt.Errorf("draw %s/%s: semantic %d: %w", r.primitive, r.kind, a.Semantic, ErrMissingBuffer)
		}
		r.vertex = append(r.vertex, b)
	}

	r.uniforms = packUniforms(r.uniforms, feat, frame, d, pass)
	_, alpha := emphasisColor(frame.View, pass)
	r.device.Draw(&gpu.DrawCommand{
		Program:     r.current.program,
		Vertex:      r.vertex,
		Index:       index,
		Count:       count,
		Uniforms:    r.uniforms,
		Transparent: pass == core.PassColorTransparent || pass == core.PassEdgesColorTransparent || alpha < 1,
	})
	r.profiler.Add(core.StatDraws, 1)
	return nil
}

// Destroy releases every cached program.
func (r *Renderer) Destroy() {
	if r.state == StateDestroyed {
		return
	}
	for el := r.lru.Front(); el != nil; el = el.Next() {
		el.Value.(*cachedProgram).program.Release()
	}
	r.lru.Init()
	r.byHash = make(map[string]*list.Element)
	r.current = nil
	r.state = StateDestroyed
}
