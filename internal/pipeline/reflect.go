package pipeline

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/quad/internal/gpuerr"
)

// Input is one @location input of a vertex entry point.
type Input struct {
	Location   uint32
	Name       string
	Kind       ir.ScalarKind
	Components int
	Width      int // bytes per component
}

// VertexInputs lists the @location inputs of a vertex entry point, sorted
// by location. Inputs may be plain arguments or members of a struct
// argument; builtins are skipped.
func (c *Compiled) VertexInputs(entry string) ([]Input, error) {
	ep, err := c.entryPoint(entry, ir.StageVertex)
	if err != nil {
		return nil, err
	}
	var inputs []Input
	for _, arg := range ep.Function.Arguments {
		if arg.Binding != nil {
			in, ok, err := c.input(arg.Name, arg.Type, *arg.Binding)
			if err != nil {
				return nil, err
			}
			if ok {
				inputs = append(inputs, in)
			}
			continue
		}
		st, ok := c.typeInner(arg.Type).(ir.StructType)
		if !ok {
			return nil, fmt.Errorf("%w: argument %q has no binding", gpuerr.ErrShaderCompilation, arg.Name)
		}
		for _, m := range st.Members {
			if m.Binding == nil {
				continue
			}
			in, ok, err := c.input(m.Name, m.Type, *m.Binding)
			if err != nil {
				return nil, err
			}
			if ok {
				inputs = append(inputs, in)
			}
		}
	}
	slices.SortFunc(inputs, func(a, b Input) int { return cmp.Compare(a.Location, b.Location) })
	return inputs, nil
}

func (c *Compiled) input(name string, th ir.TypeHandle, b ir.Binding) (Input, bool, error) {
	loc, ok := b.(ir.LocationBinding)
	if !ok {
		return Input{}, false, nil
	}
	in := Input{Location: loc.Location, Name: name}
	switch t := c.typeInner(th).(type) {
	case ir.ScalarType:
		in.Kind, in.Components, in.Width = t.Kind, 1, int(t.Width)
	case ir.VectorType:
		in.Kind, in.Components, in.Width = t.Scalar.Kind, int(t.Size), int(t.Scalar.Width)
	default:
		return Input{}, false, fmt.Errorf("%w: input %q at location %d has non-vertex type %T",
			gpuerr.ErrShaderCompilation, name, loc.Location, t)
	}
	return in, true, nil
}

func (c *Compiled) typeInner(h ir.TypeHandle) ir.TypeInner {
	if int(h) >= len(c.Module.Types) {
		return nil
	}
	return c.Module.Types[h].Inner
}

type formatInfo struct {
	kind       ir.ScalarKind
	components int
	width      int // bytes per component as stored in the buffer
}

// vertexFormats describes the attribute formats the builder accepts.
// Normalized formats feed float inputs.
var vertexFormats = map[gputypes.VertexFormat]formatInfo{
	gputypes.VertexFormatFloat32:   {ir.ScalarFloat, 1, 4},
	gputypes.VertexFormatFloat32x2: {ir.ScalarFloat, 2, 4},
	gputypes.VertexFormatFloat32x3: {ir.ScalarFloat, 3, 4},
	gputypes.VertexFormatFloat32x4: {ir.ScalarFloat, 4, 4},
	gputypes.VertexFormatUint32:    {ir.ScalarUint, 1, 4},
	gputypes.VertexFormatUint32x2:  {ir.ScalarUint, 2, 4},
	gputypes.VertexFormatUint32x3:  {ir.ScalarUint, 3, 4},
	gputypes.VertexFormatUint32x4:  {ir.ScalarUint, 4, 4},
	gputypes.VertexFormatSint32:    {ir.ScalarSint, 1, 4},
	gputypes.VertexFormatSint32x2:  {ir.ScalarSint, 2, 4},
	gputypes.VertexFormatSint32x3:  {ir.ScalarSint, 3, 4},
	gputypes.VertexFormatSint32x4:  {ir.ScalarSint, 4, 4},
	gputypes.VertexFormatUnorm8x4:  {ir.ScalarFloat, 4, 1},
	gputypes.VertexFormatUnorm16x2: {ir.ScalarFloat, 2, 2},
	gputypes.VertexFormatUnorm16x4: {ir.ScalarFloat, 4, 2},
	gputypes.VertexFormatFloat16x2: {ir.ScalarFloat, 2, 2},
	gputypes.VertexFormatFloat16x4: {ir.ScalarFloat, 4, 2},
}

// CheckLayout verifies that buffers feed every input exactly once with a
// compatible format, and that no attribute overruns its buffer's stride.
// Attributes the shader does not read are allowed.
func CheckLayout(inputs []Input, buffers []gputypes.VertexBufferLayout) error {
	type attr struct {
		buffer int
		a      gputypes.VertexAttribute
	}
	byLoc := make(map[uint32]attr)
	for bi, buf := range buffers {
		for _, a := range buf.Attributes {
			if prev, dup := byLoc[a.ShaderLocation]; dup {
				return fmt.Errorf("%w: location %d bound by buffers %d and %d",
					gpuerr.ErrLayoutMismatch, a.ShaderLocation, prev.buffer, bi)
			}
			size := a.Format.Size()
			if size == 0 {
				return fmt.Errorf("%w: location %d has unknown format %v",
					gpuerr.ErrLayoutMismatch, a.ShaderLocation, a.Format)
			}
			if buf.ArrayStride != 0 && a.Offset+size > buf.ArrayStride {
				return fmt.Errorf("%w: location %d (offset %d, size %d) overruns stride %d",
					gpuerr.ErrLayoutMismatch, a.ShaderLocation, a.Offset, size, buf.ArrayStride)
			}
			byLoc[a.ShaderLocation] = attr{buffer: bi, a: a}
		}
	}

	for _, in := range inputs {
		got, ok := byLoc[in.Location]
		if !ok {
			return fmt.Errorf("%w: shader input %q at location %d has no attribute",
				gpuerr.ErrLayoutMismatch, in.Name, in.Location)
		}
		info, known := vertexFormats[got.a.Format]
		if !known {
			return fmt.Errorf("%w: location %d uses unsupported format %v",
				gpuerr.ErrLayoutMismatch, in.Location, got.a.Format)
		}
		if info.kind != in.Kind || info.components != in.Components {
			return fmt.Errorf("%w: location %d is %d-component %v in the layout but %d-component in the shader",
				gpuerr.ErrLayoutMismatch, in.Location, info.components, got.a.Format, in.Components)
		}
		// Non-normalized integer and 32-bit float formats must match the
		// shader's component width exactly.
		if info.width == 4 && in.Width != 4 {
			return fmt.Errorf("%w: location %d component width %d, shader expects %d",
				gpuerr.ErrLayoutMismatch, in.Location, info.width, in.Width)
		}
	}
	return nil
}
