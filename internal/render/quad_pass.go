package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/batch"
	"github.com/gogpu/quad/internal/uniform"
)

// RecordQuads binds the quad pipeline and issues one indexed draw per
// texture segment of d. It returns the number of draws.
func RecordQuads(pass hal.RenderPassEncoder, p *Pipelines, u *uniform.Manager, slot int, d batch.Draw) (int, error) {
	if d.Empty() {
		return 0, nil
	}
	if p.Quad == nil {
		return 0, fmt.Errorf("render: quad pipeline not built")
	}
	camera, err := u.CameraGroup(slot)
	if err != nil {
		return 0, err
	}
	pass.SetPipeline(p.Quad.Handle)
	pass.SetBindGroup(0, camera, nil)
	pass.SetVertexBuffer(0, d.Buffer, 0)
	pass.SetVertexBuffer(1, d.Buffer, d.UVOffset)
	pass.SetIndexBuffer(d.Buffer, gputypes.IndexFormatUint32, d.IndexOffset)

	draws := 0
	for _, seg := range d.Segments {
		group, err := u.TextureGroup(uniform.TextureID(seg.Texture))
		if err != nil {
			return draws, err
		}
		pass.SetBindGroup(1, group, nil)
		pass.DrawIndexed(seg.IndexCount, 1, seg.FirstIndex, 0, 0)
		draws++
	}
	return draws, nil
}
