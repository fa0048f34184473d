package uniform

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpuerr"
)

// TextureID names a texture owned by the Manager. Zero is reserved for
// "untextured" and resolves to a 1×1 white texture.
type TextureID uint32

type texture struct {
	width, height uint32
	tex           hal.Texture
	view          hal.TextureView
}

func (t *texture) destroy(device hal.Device) {
	device.DestroyTextureView(t.view)
	device.DestroyTexture(t.tex)
}

// White returns the id of the built-in white texture.
func (m *Manager) White() TextureID { return m.white }

// CreateTexture uploads img as an RGBA8 texture.
func (m *Manager) CreateTexture(label string, img *image.RGBA) (TextureID, error) {
	if img == nil {
		return 0, fmt.Errorf("uniform: nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return 0, fmt.Errorf("uniform: empty image %v", b)
	}
	return m.createTexture(label, uint32(b.Dx()), uint32(b.Dy()), PackRGBA(img))
}

func (m *Manager) createTexture(label string, width, height uint32, pix []byte) (TextureID, error) {
	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("uniform: create texture %s: %w", label, gpuerr.Classify(err))
	}
	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           label + "_view",
		Format:          gputypes.TextureFormatRGBA8Unorm,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		return 0, fmt.Errorf("uniform: create view %s: %w", label, gpuerr.Classify(err))
	}
	err = m.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		pix,
		&hal.ImageDataLayout{BytesPerRow: 4 * width, RowsPerImage: height},
		&size,
	)
	if err != nil {
		m.device.DestroyTextureView(view)
		m.device.DestroyTexture(tex)
		return 0, fmt.Errorf("uniform: upload texture %s: %w", label, gpuerr.Classify(err))
	}

	m.next++
	id := m.next
	m.textures[id] = &texture{width: width, height: height, tex: tex, view: view}
	gpucore.Logger().Debug("uniform: texture created",
		"id", uint32(id), "label", label, "width", width, "height", height)
	return id, nil
}

// TextureSize returns the extent of id.
func (m *Manager) TextureSize(id TextureID) (uint32, uint32, error) {
	if id == 0 {
		id = m.white
	}
	t, err := m.lookup(id)
	if err != nil {
		return 0, 0, err
	}
	return t.width, t.height, nil
}

// DestroyTexture forgets id and returns the function that destroys its GPU
// objects. The caller runs it once no submitted work references them.
func (m *Manager) DestroyTexture(id TextureID) (func(), error) {
	if id == 0 || id == m.white {
		return nil, fmt.Errorf("uniform: texture %d is built in", id)
	}
	t, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(m.textures, id)
	releaseGroups := m.releaseGroups(id)
	device := m.device
	return func() {
		releaseGroups()
		t.destroy(device)
	}, nil
}

// releaseGroups unlinks every bind group referencing id and returns the
// function destroying them.
func (m *Manager) releaseGroups(id TextureID) func() {
	var groups []hal.BindGroup
	if g, ok := m.quadGroups[id]; ok {
		groups = append(groups, g)
		delete(m.quadGroups, id)
	}
	for i := range m.slots {
		if g, ok := m.slots[i].overlayGroups[id]; ok {
			groups = append(groups, g)
			delete(m.slots[i].overlayGroups, id)
		}
	}
	device := m.device
	return func() {
		for _, g := range groups {
			device.DestroyBindGroup(g)
		}
	}
}

func (m *Manager) lookup(id TextureID) (*texture, error) {
	t, ok := m.textures[id]
	if !ok {
		return nil, fmt.Errorf("uniform: unknown texture %d", id)
	}
	return t, nil
}

// PackRGBA returns img's pixels as tightly packed rows.
func PackRGBA(img *image.RGBA) []byte {
	b := img.Bounds()
	row := 4 * b.Dx()
	if img.Stride == row && b.Min == (image.Point{}) {
		return img.Pix[:row*b.Dy()]
	}
	out := make([]byte, row*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		copy(out[(y-b.Min.Y)*row:], img.Pix[off:off+row])
	}
	return out
}
