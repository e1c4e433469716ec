package assets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"prefabforge/internal/gltf"
)

var (
	TypeGLB  = filetype.NewType("glb", "model/gltf-binary")
	TypeGLTF = filetype.NewType("gltf", "model/gltf+json")
)

func init() {
	filetype.AddMatcher(TypeGLB, gltf.IsGLB)
	filetype.AddMatcher(TypeGLTF, func(buf []byte) bool {
		head := bytes.TrimLeft(buf, " \t\r\n")
		return len(head) > 0 && head[0] == '{' && bytes.Contains(buf, []byte(`"asset"`))
	})
}

// FileLoader reads models from a directory. Format is detected from the file
// contents; Wavefront OBJ has no signature and is accepted by extension.
type FileLoader struct {
	Root string
}

func (l FileLoader) Load(ctx context.Context, path string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(l.Root, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return Result{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	dir := filepath.Dir(full)
	model, err := decode(path, data, func(uri string) ([]byte, error) {
		if filepath.IsAbs(uri) || strings.Contains(uri, "..") {
			return nil, fmt.Errorf("buffer uri %q outside the model directory", uri)
		}
		return os.ReadFile(filepath.Join(dir, uri))
	})
	if err != nil {
		return Result{Err: err}
	}
	return Result{Success: true, Model: model}
}

// Sniff returns the detected format of data.
func Sniff(path string, data []byte) types.Type {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		return kind
	}
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		return filetype.NewType("obj", "model/obj")
	}
	return filetype.Unknown
}

// Decode builds a Model from file contents. glTF buffers must be embedded;
// FileLoader also resolves external ones next to the file.
func Decode(path string, data []byte) (*Model, error) {
	return decode(path, data, nil)
}

func decode(path string, data []byte, read gltf.ReadURI) (*Model, error) {
	kind := Sniff(path, data)
	m := &Model{Path: path, Format: kind.Extension, Size: len(data)}
	switch kind.Extension {
	case TypeGLB.Extension, TypeGLTF.Extension:
		doc, bin, err := gltf.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		buffers, err := doc.LoadBuffers(bin, read)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		doc.Walk(func(_ int, n *gltf.Node, world mgl32.Mat4) {
			if n.Mesh == nil || err != nil {
				return
			}
			var g gltf.Geometry
			g, err = doc.MeshGeometry(*n.Mesh, buffers)
			m.Parts = append(m.Parts, Part{Name: n.Name, Mesh: *n.Mesh, Local: world, Geometry: g})
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case "obj":
		g, err := decodeOBJ(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		m.Parts = []Part{{Name: name, Local: mgl32.Ident4(), Geometry: g}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	return m, nil
}

// decodeOBJ reads vertex positions and faces of a Wavefront OBJ file.
// Polygons are fanned into triangles; texture and normal references are
// ignored.
func decodeOBJ(data []byte) (gltf.Geometry, error) {
	var g gltf.Geometry
	for lineNo, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return g, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo+1)
			}
			for _, f := range fields[1:4] {
				v, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return g, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
				g.Positions = append(g.Positions, float32(v))
			}
		case "f":
			count := len(g.Positions) / 3
			var face []uint32
			for _, ref := range fields[1:] {
				idx, err := strconv.Atoi(strings.SplitN(ref, "/", 2)[0])
				if err != nil {
					return g, fmt.Errorf("line %d: %w", lineNo+1, err)
				}
				if idx < 0 {
					idx += count + 1
				}
				if idx < 1 || idx > count {
					return g, fmt.Errorf("line %d: vertex %d out of range", lineNo+1, idx)
				}
				face = append(face, uint32(idx-1))
			}
			for i := 2; i < len(face); i++ {
				g.Indices = append(g.Indices, face[0], face[i-1], face[i])
			}
		}
	}
	g.Min, g.Max = gltf.Bounds(g.Positions)
	return g, nil
}
