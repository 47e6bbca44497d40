package tetraxr

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/solarlune/tetraxr/gl"
	"go.uber.org/zap"
)

// GLTFLoadOptions alters how glTF files are turned into node trees.
type GLTFLoadOptions struct {
	// Name is the name of the root node returned by the loader. Defaults to the file's
	// base name, or "glTF" for in-memory data.
	Name string
	// BaseDir is the directory relative image URIs are resolved against. LoadGLTFFile sets
	// it to the file's directory when it's empty.
	BaseDir string
	// Selectable makes every node carrying primitives take part in hit testing.
	Selectable bool
	// Logger receives warnings about unsupported content. Defaults to the renderer's logger.
	Logger *zap.Logger
}

// DefaultGLTFLoadOptions creates an instance of GLTFLoadOptions with some sensible defaults.
func DefaultGLTFLoadOptions() *GLTFLoadOptions {
	return &GLTFLoadOptions{}
}

// LoadGLTFFile loads a .gltf or .glb file and builds a node tree drawing it through
// renderer. External buffers and images are resolved relative to the file. Passing nil
// for options uses the defaults.
func LoadGLTFFile(renderer *Renderer, path string, options *GLTFLoadOptions) (*Node, error) {

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}

	return LoadGLTFDocument(renderer, doc, fileLoadOptions(path, options))

}

// LoadGLTFFileAsync parses the file at path on a background goroutine and builds its node
// tree on the render thread the next time the renderer polls or draws.
func LoadGLTFFileAsync(renderer *Renderer, path string, options *GLTFLoadOptions) *Future[*Node] {

	options = fileLoadOptions(path, options)
	result := NewFuture[*Node]()

	Go(func() (*gltf.Document, error) {
		return gltf.Open(path)
	}).Then(renderer.Dispatcher(), func(doc *gltf.Document, err error) {
		if err != nil {
			result.Reject(err)
			return
		}
		node, err := LoadGLTFDocument(renderer, doc, options)
		if err != nil {
			result.Reject(err)
			return
		}
		result.Resolve(node)
	})

	return result

}

func fileLoadOptions(path string, options *GLTFLoadOptions) *GLTFLoadOptions {
	opts := DefaultGLTFLoadOptions()
	if options != nil {
		*opts = *options
	}
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return opts
}

// LoadGLTFData loads a .gltf (with embedded resources) or .glb file held in memory.
func LoadGLTFData(renderer *Renderer, data []byte, options *GLTFLoadOptions) (*Node, error) {

	doc := gltf.NewDocument()
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, err
	}

	return LoadGLTFDocument(renderer, doc, options)

}

// LoadGLTFDocument builds a node tree from a decoded glTF document. Each buffer view is
// uploaded once as a RenderBuffer, each mesh becomes a set of RenderPrimitives shared by
// every node that uses it, and materials become PBRMaterials. Images decode in the
// background; primitives draw untextured until they're done.
func LoadGLTFDocument(renderer *Renderer, doc *gltf.Document, options *GLTFLoadOptions) (*Node, error) {

	if options == nil {
		options = DefaultGLTFLoadOptions()
	}

	loader := &gltfLoader{
		renderer:   renderer,
		doc:        doc,
		options:    options,
		logger:     options.Logger,
		buffers:    map[gltfBufferKey]*RenderBuffer{},
		textures:   map[int]Texture{},
		materials:  map[int]*PBRMaterial{},
		meshes:     map[int][]*RenderPrimitive{},
		visiting:   make([]bool, len(doc.Nodes)),
	}

	if loader.logger == nil {
		loader.logger = renderer.Logger()
	}

	name := options.Name
	if name == "" {
		name = "glTF"
	}

	root := NewNode(name)
	root.setRenderer(renderer)

	for _, index := range loader.sceneNodes() {
		node, err := loader.node(index)
		if err != nil {
			return nil, err
		}
		root.AddNode(node)
	}

	return root, nil

}

type gltfBufferKey struct {
	view   int
	target gl.Enum
}

type gltfLoader struct {
	renderer *Renderer
	doc      *gltf.Document
	options  *GLTFLoadOptions
	logger   *zap.Logger

	buffers   map[gltfBufferKey]*RenderBuffer
	textures  map[int]Texture
	materials map[int]*PBRMaterial
	meshes    map[int][]*RenderPrimitive

	visiting []bool
}

// sceneNodes returns the root nodes of the document's default scene, or of its first
// scene, or every node that isn't another node's child if it has no scenes.
func (l *gltfLoader) sceneNodes() []int {

	doc := l.doc

	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(isChild) {
				isChild[c] = true
			}
		}
	}

	roots := []int{}
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots

}

func (l *gltfLoader) node(index int) (*Node, error) {

	if index < 0 || index >= len(l.doc.Nodes) {
		return nil, fmt.Errorf("glTF node %d: %w", index, ErrGLTFInvalidIndex)
	}

	if l.visiting[index] {
		return nil, fmt.Errorf("glTF node %d: %w", index, ErrGLTFNodeCycle)
	}

	// A node listed under several parents is built once per parent; its meshes are shared.
	l.visiting[index] = true
	defer func() { l.visiting[index] = false }()

	gltfNode := l.doc.Nodes[index]

	name := gltfNode.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", index)
	}

	node := NewNode(name)
	node.setRenderer(l.renderer)

	matrix := gltfNode.MatrixOrDefault()
	if !isIdentityOrZero(matrix) {
		m := mgl32.Mat4{}
		for i, v := range matrix {
			m[i] = float32(v)
		}
		node.SetMatrix(m)
	} else {
		t := gltfNode.Translation
		r := gltfNode.RotationOrDefault()
		s := gltfNode.ScaleOrDefault()
		node.SetTranslation(mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])})
		node.SetRotation(mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}})
		node.SetScale(mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])})
	}

	if gltfNode.Mesh != nil {
		primitives, err := l.mesh(*gltfNode.Mesh)
		if err != nil {
			return nil, err
		}
		for _, rp := range primitives {
			node.AddRenderPrimitive(rp)
		}
		node.SetSelectable(l.options.Selectable && len(primitives) > 0)
	}

	for _, childIndex := range gltfNode.Children {
		child, err := l.node(childIndex)
		if err != nil {
			return nil, err
		}
		node.AddNode(child)
	}

	return node, nil

}

func isIdentityOrZero[T float32 | float64](m [16]T) bool {
	zero, identity := true, true
	for i, v := range m {
		if v != 0 {
			zero = false
		}
		want := T(0)
		if i%5 == 0 {
			want = 1
		}
		if v != want {
			identity = false
		}
	}
	return zero || identity
}

func (l *gltfLoader) mesh(index int) ([]*RenderPrimitive, error) {

	if primitives, ok := l.meshes[index]; ok {
		return primitives, nil
	}

	if index < 0 || index >= len(l.doc.Meshes) {
		return nil, fmt.Errorf("glTF mesh %d: %w", index, ErrGLTFInvalidIndex)
	}

	mesh := l.doc.Meshes[index]
	primitives := []*RenderPrimitive{}

	for i, p := range mesh.Primitives {

		primitive, err := l.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("glTF mesh %q primitive %d: %w", mesh.Name, i, err)
		}

		var material MaterialDescriptor = NewPBRMaterial()
		if p.Material != nil {
			if material, err = l.material(*p.Material); err != nil {
				return nil, err
			}
		}

		rp, err := l.renderer.CreateRenderPrimitive(primitive, material)
		if err != nil {
			return nil, err
		}

		primitives = append(primitives, rp)

	}

	l.meshes[index] = primitives
	return primitives, nil

}

func (l *gltfLoader) primitive(p *gltf.Primitive) (*Primitive, error) {

	positionIndex, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, ErrGLTFNoPositions
	}

	positions, err := l.accessor(positionIndex)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(p.Attributes))
	for name := range p.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	attributes := []*PrimitiveAttribute{}

	for _, name := range names {

		if _, known := attribByName(name); !known {
			l.logger.Debug("Skipping unsupported glTF attribute", zap.String("attribute", name))
			continue
		}

		accessor, err := l.accessor(p.Attributes[name])
		if err != nil {
			return nil, err
		}

		buffer, stride, err := l.bufferView(accessor, gl.ARRAY_BUFFER)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}

		attributes = append(attributes, &PrimitiveAttribute{
			Name:           name,
			Buffer:         buffer,
			ComponentCount: accessorComponents(accessor.Type),
			ComponentType:  accessorComponentType(accessor.ComponentType),
			Stride:         stride,
			ByteOffset:     int(accessor.ByteOffset),
			Normalized:     accessor.Normalized,
		})

	}

	primitive := NewPrimitive(attributes, int(positions.Count), primitiveMode(p.Mode))

	if p.Indices != nil {
		indices, err := l.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		buffer, _, err := l.bufferView(indices, gl.ELEMENT_ARRAY_BUFFER)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		primitive.ElementCount = int(indices.Count)
		primitive.SetIndexBuffer(buffer, int(indices.ByteOffset), accessorComponentType(indices.ComponentType))
	}

	points, err := modeler.ReadPosition(l.doc, positions, [][3]float32{})
	if err == nil && len(points) > 0 {
		min, max := mgl32.Vec3(points[0]), mgl32.Vec3(points[0])
		for _, pt := range points[1:] {
			for i := 0; i < 3; i++ {
				if pt[i] < min[i] {
					min[i] = pt[i]
				}
				if pt[i] > max[i] {
					max[i] = pt[i]
				}
			}
		}
		primitive.SetBounds(min, max)
	}

	return primitive, nil

}

func (l *gltfLoader) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(l.doc.Accessors) {
		return nil, fmt.Errorf("glTF accessor %d: %w", index, ErrGLTFInvalidIndex)
	}
	return l.doc.Accessors[index], nil
}

// bufferView returns the RenderBuffer holding the accessor's buffer view, uploading it
// the first time the view is used for target, along with the view's byte stride.
func (l *gltfLoader) bufferView(accessor *gltf.Accessor, target gl.Enum) (*RenderBuffer, int, error) {

	if accessor.BufferView == nil {
		return nil, 0, ErrGLTFSparseAccessor
	}

	index := *accessor.BufferView
	if index < 0 || index >= len(l.doc.BufferViews) {
		return nil, 0, fmt.Errorf("glTF buffer view %d: %w", index, ErrGLTFInvalidIndex)
	}

	view := l.doc.BufferViews[index]
	key := gltfBufferKey{view: index, target: target}

	if buffer, ok := l.buffers[key]; ok {
		return buffer, int(view.ByteStride), nil
	}

	data, err := modeler.ReadBufferView(l.doc, view)
	if err != nil {
		return nil, 0, err
	}

	buffer := l.renderer.CreateRenderBuffer(target, data, gl.STATIC_DRAW)
	l.buffers[key] = buffer

	return buffer, int(view.ByteStride), nil

}

func accessorComponents(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

func accessorComponentType(t gltf.ComponentType) gl.Enum {
	switch t {
	case gltf.ComponentByte:
		return gl.BYTE
	case gltf.ComponentUbyte:
		return gl.UNSIGNED_BYTE
	case gltf.ComponentShort:
		return gl.SHORT
	case gltf.ComponentUshort:
		return gl.UNSIGNED_SHORT
	case gltf.ComponentUint:
		return gl.UNSIGNED_INT
	}
	return gl.FLOAT
}

func primitiveMode(mode gltf.PrimitiveMode) gl.Enum {
	switch mode {
	case gltf.PrimitivePoints:
		return gl.POINTS
	case gltf.PrimitiveLines:
		return gl.LINES
	case gltf.PrimitiveLineLoop:
		return gl.LINE_LOOP
	case gltf.PrimitiveLineStrip:
		return gl.LINE_STRIP
	case gltf.PrimitiveTriangleStrip:
		return gl.TRIANGLE_STRIP
	case gltf.PrimitiveTriangleFan:
		return gl.TRIANGLE_FAN
	}
	return gl.TRIANGLES
}

func (l *gltfLoader) material(index int) (*PBRMaterial, error) {

	if m, ok := l.materials[index]; ok {
		return m, nil
	}

	if index < 0 || index >= len(l.doc.Materials) {
		return nil, fmt.Errorf("glTF material %d: %w", index, ErrGLTFInvalidIndex)
	}

	gltfMat := l.doc.Materials[index]
	m := NewPBRMaterial()

	if pbr := gltfMat.PBRMetallicRoughness; pbr != nil {

		c := pbr.BaseColorFactorOrDefault()
		m.BaseColorFactor.Set(float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3]))
		m.MetallicRoughnessFactor.Set(float32(pbr.MetallicFactorOrDefault()), float32(pbr.RoughnessFactorOrDefault()))

		if t := pbr.BaseColorTexture; t != nil {
			m.BaseColor.Texture = l.texture(t.Index)
		}

		if t := pbr.MetallicRoughnessTexture; t != nil {
			m.MetallicRoughness.Texture = l.texture(t.Index)
		}

	}

	if t := gltfMat.NormalTexture; t != nil && t.Index != nil {
		m.Normal.Texture = l.texture(*t.Index)
	}

	if t := gltfMat.OcclusionTexture; t != nil && t.Index != nil {
		m.Occlusion.Texture = l.texture(*t.Index)
	}

	if t := gltfMat.EmissiveTexture; t != nil {
		m.Emissive.Texture = l.texture(t.Index)
	}

	e := gltfMat.EmissiveFactor
	m.EmissiveFactor.Set(float32(e[0]), float32(e[1]), float32(e[2]))

	switch gltfMat.AlphaMode {
	case gltf.AlphaBlend:
		m.State.SetBlend(true)
	case gltf.AlphaMask:
		l.logger.Warn("glTF alpha mask mode isn't supported; drawing the material as opaque", zap.String("material", gltfMat.Name))
	}

	m.State.SetCullFace(!gltfMat.DoubleSided)

	l.materials[index] = m
	return m, nil

}

// texture returns the Texture for a glTF texture index, or nil (after logging) if its
// image can't be found.
func (l *gltfLoader) texture(index int) Texture {

	if t, ok := l.textures[index]; ok {
		return t
	}

	var texture Texture
	defer func() { l.textures[index] = texture }()

	if index < 0 || index >= len(l.doc.Textures) || l.doc.Textures[index].Source == nil {
		l.logger.Warn("glTF texture has no image", zap.Int("texture", index))
		return nil
	}

	source := *l.doc.Textures[index].Source
	if source < 0 || source >= len(l.doc.Images) {
		l.logger.Warn("glTF texture refers to a missing image", zap.Int("texture", index), zap.Int("image", source))
		return nil
	}

	img := l.doc.Images[source]

	switch {

	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(l.doc.BufferViews) {
			l.logger.Warn("glTF image refers to a missing buffer view", zap.Int("image", source))
			return nil
		}
		data, err := modeler.ReadBufferView(l.doc, l.doc.BufferViews[*img.BufferView])
		if err != nil {
			l.logger.Warn("Failed to read glTF image", zap.Int("image", source), zap.Error(err))
			return nil
		}
		texture = NewImageTextureFromBytes(data)

	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			l.logger.Warn("Failed to decode embedded glTF image", zap.Int("image", source), zap.Error(err))
			return nil
		}
		texture = NewImageTextureFromBytes(data)

	case img.URI != "":
		texture = LoadImageTexture(filepath.Join(l.options.BaseDir, filepath.FromSlash(img.URI)))

	default:
		l.logger.Warn("glTF image has no data", zap.Int("image", source))

	}

	return texture

}
