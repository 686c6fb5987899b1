package layer

import (
	"encoding/binary"

	"github.com/gekko3d/bimview/rt/core"
)

func (l *Layer) SetVisible(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateVisible, on)
}

func (l *Layer) SetHighlighted(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateHighlighted, on)
}

func (l *Layer) SetXRayed(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateXRayed, on)
}

func (l *Layer) SetSelected(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateSelected, on)
}

func (l *Layer) SetClippable(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateClippable, on)
}

func (l *Layer) SetPickable(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StatePickable, on)
}

func (l *Layer) SetCulled(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateCulled, on)
}

func (l *Layer) SetTransparent(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateTransparent, on)
}

func (l *Layer) SetEdges(v *core.View, m MeshHandle, on bool) {
	l.setBit(v, m, core.StateEdges, on)
}

// MeshState returns the stored state of a mesh in a view.
func (l *Layer) MeshState(v *core.View, m MeshHandle) core.MeshState {
	return l.states[l.checkView(v, "state")][l.checkMesh(m)]
}

// setBit applies one boolean transition: layer and model counters move by
// exactly one, then the mesh's flags are re-encoded and patched.
func (l *Layer) setBit(v *core.View, m MeshHandle, bit core.MeshState, on bool) {
	vi := l.checkView(v, "set "+bit.String())
	mi := l.checkMesh(m)

	s := l.states[vi][mi]
	if s.Has(bit) == on {
		l.logger.Debugf("view %d mesh %d: %s already %t", vi, mi, bit, on)
		return
	}
	l.states[vi][mi] = s.With(bit, on)

	l.counts.At(vi).Apply(bit, on)
	if mc := l.modelCounts.At(vi); mc != nil {
		mc.Apply(bit, on)
	}
	l.patchFlags(v, mi)
}

// SetState replaces a mesh's whole state in one view and patches its flags
// once. Counters move by the difference between old and new state.
func (l *Layer) SetState(v *core.View, m MeshHandle, s core.MeshState) {
	vi := l.checkView(v, "set state")
	mi := l.checkMesh(m)

	old := l.states[vi][mi]
	if old == s {
		return
	}
	l.states[vi][mi] = s

	lc := l.counts.At(vi)
	lc.AddState(old, -1)
	lc.AddState(s, 1)
	if mc := l.modelCounts.At(vi); mc != nil {
		mc.AddState(old, -1)
		mc.AddState(s, 1)
	}
	l.patchFlags(v, mi)
}

// SetColor overwrites the mesh's color in one view. Color changes do not
// affect counters; transparency is set separately with SetTransparent.
func (l *Layer) SetColor(v *core.View, m MeshHandle, rgba [4]uint8) {
	vi := l.checkView(v, "set color")
	p := l.portions[l.checkMesh(m)]
	vb := l.views[vi]
	if vb.colors == nil {
		return
	}

	n := p.numVertices * colorStride
	buf := l.scratch.Bytes(n)
	for i := 0; i < n; i += colorStride {
		copy(buf[i:i+colorStride], rgba[:])
	}
	l.device.WriteBuffer(vb.colors, uint64(p.vertexBase*colorStride), buf)
	l.profiler.Add(core.StatColorsPatched, 1)
	l.profiler.Add(core.StatBytesPatched, n)
}

// RefreshFlags re-encodes every mesh of one view in a single write. Needed
// when the view's glow-through settings change.
func (l *Layer) RefreshFlags(v *core.View) {
	vi := l.checkView(v, "refresh flags")
	vb := l.views[vi]
	if vb.flags == nil {
		return
	}
	glow := v.GlowThrough()
	n := l.numVerts * flagsStride
	buf := l.scratch.Bytes(n)
	for mi, p := range l.portions {
		fillFlags(buf[p.vertexBase*flagsStride:(p.vertexBase+p.numVertices)*flagsStride], core.EncodeFlags(l.states[vi][mi], glow))
	}
	l.device.WriteBuffer(vb.flags, 0, buf)
	l.profiler.Add(core.StatFlagsPatched, len(l.portions))
	l.profiler.Add(core.StatBytesPatched, n)
}

// patchFlags writes one mesh's flags word over exactly its vertex range.
func (l *Layer) patchFlags(v *core.View, mi int) {
	vb := l.views[v.Index]
	if vb.flags == nil {
		return
	}
	p := l.portions[mi]
	n := p.numVertices * flagsStride
	buf := l.scratch.Bytes(n)
	fillFlags(buf, core.EncodeFlags(l.states[v.Index][mi], v.GlowThrough()))
	l.device.WriteBuffer(vb.flags, uint64(p.vertexBase*flagsStride), buf)
	l.profiler.Add(core.StatFlagsPatched, 1)
	l.profiler.Add(core.StatBytesPatched, n)
}

func fillFlags(dst []byte, flags uint32) {
	for i := 0; i+flagsStride <= len(dst); i += flagsStride {
		binary.LittleEndian.PutUint32(dst[i:], flags)
	}
}

// checkView enforces the state-mutation protocol: the layer must be built and
// the view known and live.
func (l *Layer) checkView(v *core.View, op string) int {
	if !l.built {
		l.fail(ErrNotBuilt, "%s", op)
	}
	if v == nil || v.Index < 0 || v.Index >= len(l.views) || l.views[v.Index] == nil {
		idx := -1
		if v != nil {
			idx = v.Index
		}
		l.fail(ErrUnknownView, "%s: view %d", op, idx)
	}
	return v.Index
}
