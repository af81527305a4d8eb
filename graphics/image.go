package graphics

import (
	"fmt"
	"image"
	"io"
	"os"

	// decoders registered with image.Decode
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/tessera/assets"
	"github.com/devblok/tessera/core"
	"github.com/devblok/tessera/gpu"
)

// LoadImage decodes an image into an RGBA texture description.
func LoadImage(label string, r io.Reader) (gpu.TextureDescriptor, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return gpu.TextureDescriptor{}, fmt.Errorf("%s: %w", label, err)
	}
	pixels, err := core.GetPixels(img, 0)
	if err != nil {
		return gpu.TextureDescriptor{}, err
	}
	if label == "" {
		label = format
	}
	bounds := img.Bounds()
	return gpu.TextureDescriptor{
		Label:  label,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: gpu.RGBA8,
		Pixels: pixels,
	}, nil
}

// LoadImageFile decodes the image at path.
func LoadImageFile(path string) (gpu.TextureDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return gpu.TextureDescriptor{}, err
	}
	defer f.Close()
	return LoadImage(path, f)
}

// LoadImagePacked decodes the image stored as name in pack.
func LoadImagePacked(pack *assets.Archive, name string) (gpu.TextureDescriptor, error) {
	r, err := pack.Open(name)
	if err != nil {
		return gpu.TextureDescriptor{}, err
	}
	return LoadImage(name, r)
}
