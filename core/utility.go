package core

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"unsafe"
)

const compiledShaderSuffix = ".spv"

// ShaderFile is one shader found on disk
type ShaderFile struct {
	Path     string
	Name     string
	Type     ShaderType
	Compiled bool
}

// ShaderFiles get the list of files that are shaders in dir.
// It is important that the file name does not contain more than three dots,
// the first is always the name of the shader, second is type, and the optional
// third one marks the shader as compiled (only compiled shaders have an .spv extension).
func ShaderFiles(dir string) ([]ShaderFile, error) {
	var shaders []ShaderFile
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}

		name := f.Name()
		compiled := strings.HasSuffix(name, compiledShaderSuffix)
		name = strings.TrimSuffix(name, compiledShaderSuffix)

		nodes := strings.Split(name, ".")
		if len(nodes) != 2 {
			return nil
		}

		shaderType := ParseShaderType(nodes[1])
		if shaderType == UnknownShaderType {
			return nil
		}
		shaders = append(shaders, ShaderFile{
			Path:     path,
			Name:     nodes[0],
			Type:     shaderType,
			Compiled: compiled,
		})
		return nil
	}); err != nil {
		return nil, err
	}
	return shaders, nil
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer((*sliceHeader)(unsafe.Pointer(&data)).Data))[:len(data)/4]
}

// SafeString null terminates s for the C side
func SafeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return fmt.Sprintf("%s\x00", s)
}

// SafeStrings null terminates every string in sgs
func SafeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, SafeString(s))
	}
	return safe
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas
func GetPixels(img image.Image, rowPitch int) ([]uint8, error) {
	newImg := image.NewRGBA(img.Bounds())
	if rowPitch >= 4*img.Bounds().Dx() {
		// apply the proposed row pitch only if it fits a whole row
		newImg.Stride = rowPitch
		newImg.Pix = make([]uint8, rowPitch*img.Bounds().Dy())
	}
	draw.Draw(newImg, newImg.Bounds(), img, img.Bounds().Min, draw.Src)
	return newImg.Pix, nil
}
