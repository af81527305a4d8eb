package graphics

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/gobuffalo/packr"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tessera/assets"
	"github.com/devblok/tessera/core"
)

// ErrUnknownShader is returned for shaders no source knows about.
var ErrUnknownShader = errors.New("graphics: unknown shader")

// builtinShaders holds the GLSL sources of the default shaders.
var builtinShaders = packr.NewBox("./shaders")

// ShaderSource is the source of one shader program.
type ShaderSource struct {
	Name     string
	Vertex   []byte
	Fragment []byte
	// Compiled is set for SPIR-V modules, GLSL otherwise.
	Compiled bool
	Origin   string
}

// NewShaderLibrary creates a library. dir and pack are optional.
func NewShaderLibrary(dir string, pack *assets.Archive, log logrus.FieldLogger) *ShaderLibrary {
	if log == nil {
		log = core.NopLogger()
	}
	return &ShaderLibrary{
		dir:  dir,
		pack: pack,
		log:  log.WithField("component", "graphics.shaders"),
	}
}

// ShaderLibrary finds shader sources. A shader directory wins over an
// asset pack, which wins over the built-in sources. Compiled modules win
// over GLSL within a source.
type ShaderLibrary struct {
	dir  string
	pack *assets.Archive

	log logrus.FieldLogger
}

// Load returns the vertex and fragment source of name.
func (l *ShaderLibrary) Load(name string) (ShaderSource, error) {
	if src, ok, err := l.fromDir(name); err != nil || ok {
		return src, err
	}
	if src, ok, err := l.fromPack(name); err != nil || ok {
		return src, err
	}
	vert, verr := builtinShaders.Find(name + ".vert")
	frag, ferr := builtinShaders.Find(name + ".frag")
	if verr != nil || ferr != nil {
		return ShaderSource{}, fmt.Errorf("%s: %w", name, ErrUnknownShader)
	}
	return ShaderSource{Name: name, Vertex: vert, Fragment: frag, Origin: "builtin"}, nil
}

// Builtin lists the shaders shipped with the library.
func (l *ShaderLibrary) Builtin() []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range builtinShaders.List() {
		name := f[:len(f)-len(path.Ext(f))]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func (l *ShaderLibrary) fromDir(name string) (ShaderSource, bool, error) {
	if l.dir == "" {
		return ShaderSource{}, false, nil
	}
	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		return ShaderSource{}, false, nil
	}
	files, err := core.ShaderFiles(l.dir)
	if err != nil {
		return ShaderSource{}, false, err
	}

	var vert, frag *core.ShaderFile
	for i := range files {
		f := &files[i]
		if f.Name != name {
			continue
		}
		switch f.Type {
		case core.VertexShaderType:
			if vert == nil || f.Compiled {
				vert = f
			}
		case core.FragmentShaderType:
			if frag == nil || f.Compiled {
				frag = f
			}
		}
	}
	if vert == nil || frag == nil {
		return ShaderSource{}, false, nil
	}
	if vert.Compiled != frag.Compiled {
		l.log.WithField("shader", name).Warn("mixing compiled and source stages")
	}

	src := ShaderSource{Name: name, Compiled: vert.Compiled && frag.Compiled, Origin: l.dir}
	if src.Vertex, err = os.ReadFile(vert.Path); err != nil {
		return ShaderSource{}, false, err
	}
	if src.Fragment, err = os.ReadFile(frag.Path); err != nil {
		return ShaderSource{}, false, err
	}
	return src, true, nil
}

func (l *ShaderLibrary) fromPack(name string) (ShaderSource, bool, error) {
	if l.pack == nil {
		return ShaderSource{}, false, nil
	}
	for _, suffix := range []string{".spv", ""} {
		vert, frag := "shaders/"+name+".vert"+suffix, "shaders/"+name+".frag"+suffix
		if !l.pack.Has(vert) || !l.pack.Has(frag) {
			continue
		}
		src := ShaderSource{Name: name, Compiled: suffix != "", Origin: "pack"}
		var err error
		if src.Vertex, err = l.pack.ReadAll(vert); err != nil {
			return ShaderSource{}, false, err
		}
		if src.Fragment, err = l.pack.ReadAll(frag); err != nil {
			return ShaderSource{}, false, err
		}
		return src, true, nil
	}
	return ShaderSource{}, false, nil
}
