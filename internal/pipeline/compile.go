package pipeline

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/quad/internal/gpuerr"
)

// Compiled is a WGSL program that passed parsing, lowering and validation.
type Compiled struct {
	Source string
	SPIRV  []uint32
	Module *ir.Module
}

// Compile turns WGSL into SPIR-V words and keeps the lowered IR for
// reflection. Any failure wraps gpuerr.ErrShaderCompilation.
func Compile(label, source string) (*Compiled, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", gpuerr.ErrShaderCompilation, label, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: %s: SPIR-V length %d is not word aligned",
			gpuerr.ErrShaderCompilation, label, len(spirvBytes))
	}
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", gpuerr.ErrShaderCompilation, label, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", gpuerr.ErrShaderCompilation, label, err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return &Compiled{Source: source, SPIRV: words, Module: module}, nil
}

// entryPoint finds the named entry point of the given stage.
func (c *Compiled) entryPoint(name string, stage ir.ShaderStage) (*ir.EntryPoint, error) {
	for i := range c.Module.EntryPoints {
		ep := &c.Module.EntryPoints[i]
		if ep.Name == name && ep.Stage == stage {
			return ep, nil
		}
	}
	return nil, fmt.Errorf("%w: entry point %q not found", gpuerr.ErrShaderCompilation, name)
}
