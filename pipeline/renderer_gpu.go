package pipeline

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Pass-through shader. Vertex colors arrive straight alpha and the
// fragment premultiplies them for the blend stage.
const gpuShaderSrc = `//kage:unit pixels

package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	return vec4(color.rgb*color.a, color.a)
}
`

const circleSegments = 16

// Indices are uint16, so one draw call addresses at most this many
// vertices before the batch must flush.
const maxBatchVerts = 1 << 16

// gpuBackend accumulates all primitives of a frame into one vertex and
// index buffer and issues a single DrawTrianglesShader call, chunked only
// when a frame outgrows the index space.
type gpuBackend struct {
	shader *ebiten.Shader
	dst    *ebiten.Image
	verts  []ebiten.Vertex
	idx    []uint16
}

func newGPUBackend() (*gpuBackend, error) {
	s, err := ebiten.NewShader([]byte(gpuShaderSrc))
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	return &gpuBackend{
		shader: s,
		verts:  make([]ebiten.Vertex, 0, 4096),
		idx:    make([]uint16, 0, 6144),
	}, nil
}

func (g *gpuBackend) name() string { return BackendGPU }

func (g *gpuBackend) begin(dst *ebiten.Image) {
	g.dst = dst
	g.verts = g.verts[:0]
	g.idx = g.idx[:0]
}

func (g *gpuBackend) clear(c RGBA) {
	if g.dst == nil {
		return
	}
	g.dst.Fill(color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
}

func (g *gpuBackend) draw(prims []Primitive) {
	if g.dst == nil {
		return
	}
	for i := range prims {
		need := 4
		if prims[i].Shape == ShapeCircle {
			need = circleSegments + 1
		}
		if len(g.verts)+need > maxBatchVerts {
			g.flush()
		}
		g.verts, g.idx = appendPrimitive(g.verts, g.idx, &prims[i])
	}
}

func (g *gpuBackend) end() {
	if g.dst == nil {
		return
	}
	g.flush()
}

func (g *gpuBackend) flush() {
	if len(g.idx) == 0 {
		return
	}
	g.dst.DrawTrianglesShader(g.verts, g.idx, g.shader, &ebiten.DrawTrianglesShaderOptions{})
	g.verts = g.verts[:0]
	g.idx = g.idx[:0]
}

func (g *gpuBackend) resize(w, h int) {}

func (g *gpuBackend) setLevel(level PerfLevel) {}

func (g *gpuBackend) dispose() {
	if g.shader != nil {
		g.shader.Deallocate()
		g.shader = nil
	}
	g.dst = nil
}

// AppendPrimitives appends the triangle geometry for prims to verts and
// idx and returns the grown slices, in the append style of ebiten/vector.
// A rect contributes 4 vertices and 6 indices, a circle a fan of 17
// vertices and 48 indices. Vertex colors are straight alpha.
func AppendPrimitives(verts []ebiten.Vertex, idx []uint16, prims []Primitive) ([]ebiten.Vertex, []uint16) {
	for i := range prims {
		verts, idx = appendPrimitive(verts, idx, &prims[i])
	}
	return verts, idx
}

func appendPrimitive(verts []ebiten.Vertex, idx []uint16, p *Primitive) ([]ebiten.Vertex, []uint16) {
	if p.Shape == ShapeCircle {
		return appendCircle(verts, idx, p)
	}
	return appendRect(verts, idx, p)
}

func appendRect(verts []ebiten.Vertex, idx []uint16, p *Primitive) ([]ebiten.Vertex, []uint16) {
	cr, cg, cb, ca := colorScale(p.Color)
	x0 := float32(p.X - p.W/2)
	y0 := float32(p.Y - p.H/2)
	x1 := float32(p.X + p.W/2)
	y1 := float32(p.Y + p.H/2)

	base := uint16(len(verts))
	verts = append(verts,
		ebiten.Vertex{DstX: x0, DstY: y0, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y0, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x1, DstY: y1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
		ebiten.Vertex{DstX: x0, DstY: y1, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca},
	)
	idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	return verts, idx
}

func appendCircle(verts []ebiten.Vertex, idx []uint16, p *Primitive) ([]ebiten.Vertex, []uint16) {
	cr, cg, cb, ca := colorScale(p.Color)
	cx := float32(p.X)
	cy := float32(p.Y)
	r := float32(p.W / 2)

	base := uint16(len(verts))
	verts = append(verts, ebiten.Vertex{DstX: cx, DstY: cy, ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca})
	for s := 0; s < circleSegments; s++ {
		a := 2 * math.Pi * float64(s) / circleSegments
		verts = append(verts, ebiten.Vertex{
			DstX:   cx + r*float32(math.Cos(a)),
			DstY:   cy + r*float32(math.Sin(a)),
			ColorR: cr, ColorG: cg, ColorB: cb, ColorA: ca,
		})
	}
	for s := 0; s < circleSegments; s++ {
		next := uint16((s + 1) % circleSegments)
		idx = append(idx, base, base+1+uint16(s), base+1+next)
	}
	return verts, idx
}

func colorScale(c RGBA) (r, g, b, a float32) {
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255
}
