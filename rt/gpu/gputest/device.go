// Package gputest provides an in-memory gpu.Device that records every call so
// tests can inspect buffer contents, partial writes, compiles and draws.
package gputest

import (
	"fmt"

	"github.com/gekko3d/bimview/rt/gpu"
)

type Buffer struct {
	label    string
	usage    gpu.BufferUsage
	Data     []byte
	Released bool
}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Size() uint64           { return uint64(len(b.Data)) }
func (b *Buffer) Release()               { b.Released = true }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }

type Program struct {
	Desc     gpu.ProgramDescriptor
	Released bool
}

func (p *Program) Label() string { return p.Desc.Label }
func (p *Program) Release()      { p.Released = true }

// Write records one WriteBuffer call.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Length uint64
}

// Device records buffers, writes, programs and draws.
type Device struct {
	Buffers  []*Buffer
	Writes   []Write
	Programs []*Program
	Draws    []gpu.DrawCommand

	// CompileError, when set, is returned by CreateProgram.
	CompileError error
	// FailBuffers maps buffer labels to an error returned by the next
	// CreateBuffer with that label. Each entry fires once.
	FailBuffers map[string]error
}

func NewDevice() *Device {
	return &Device{}
}

func (d *Device) CreateBuffer(label string, usage gpu.BufferUsage, contents []byte) (gpu.Buffer, error) {
	if err, ok := d.FailBuffers[label]; ok {
		delete(d.FailBuffers, label)
		return nil, err
	}
	b := &Buffer{label: label, usage: usage, Data: append([]byte(nil), contents...)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) {
	b, ok := buf.(*Buffer)
	if !ok {
		panic(fmt.Sprintf("gputest: foreign buffer %T", buf))
	}
	if b.Released {
		panic(fmt.Sprintf("gputest: write to released buffer %q", b.label))
	}
	end := offset + uint64(len(data))
	if end > uint64(len(b.Data)) {
		panic(fmt.Sprintf("gputest: write [%d,%d) outside buffer %q of %d bytes", offset, end, b.label, len(b.Data)))
	}
	copy(b.Data[offset:end], data)
	d.Writes = append(d.Writes, Write{Buffer: b, Offset: offset, Length: uint64(len(data))})
}

func (d *Device) CreateProgram(desc *gpu.ProgramDescriptor) (gpu.Program, error) {
	if d.CompileError != nil {
		return nil, d.CompileError
	}
	p := &Program{Desc: *desc}
	d.Programs = append(d.Programs, p)
	return p, nil
}

func (d *Device) Draw(cmd *gpu.DrawCommand) {
	c := *cmd
	c.Uniforms = append([]byte(nil), cmd.Uniforms...)
	c.Vertex = append([]gpu.Buffer(nil), cmd.Vertex...)
	d.Draws = append(d.Draws, c)
}

// BufferByLabel returns the most recently created buffer with the label.
func (d *Device) BufferByLabel(label string) *Buffer {
	for i := len(d.Buffers) - 1; i >= 0; i-- {
		if d.Buffers[i].label == label {
			return d.Buffers[i]
		}
	}
	return nil
}

// WritesTo returns the writes that touched b.
func (d *Device) WritesTo(b *Buffer) []Write {
	var out []Write
	for _, w := range d.Writes {
		if w.Buffer == b {
			out = append(out, w)
		}
	}
	return out
}

// ResetLog forgets recorded writes and draws but keeps buffers and programs.
func (d *Device) ResetLog() {
	d.Writes = nil
	d.Draws = nil
}
