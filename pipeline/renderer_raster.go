package pipeline

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// rasterBackend fills primitives on the CPU into a premultiplied RGBA
// buffer and uploads it once per frame. It needs no display, so headless
// runs and tests exercise the same code path as windowed raster rendering.
type rasterBackend struct {
	buf   *image.RGBA
	tex   *ebiten.Image
	dst   *ebiten.Image
	w, h  int
	scale float64
}

func newRasterBackend(w, h int) *rasterBackend {
	rb := &rasterBackend{w: w, h: h, scale: 1}
	rb.alloc()
	return rb
}

func (rb *rasterBackend) alloc() {
	bw := max(1, int(float64(rb.w)*rb.scale))
	bh := max(1, int(float64(rb.h)*rb.scale))
	rb.buf = image.NewRGBA(image.Rect(0, 0, bw, bh))
	if rb.tex != nil {
		rb.tex.Deallocate()
		rb.tex = nil
	}
}

func (rb *rasterBackend) name() string { return BackendRaster }

func (rb *rasterBackend) begin(dst *ebiten.Image) {
	rb.dst = dst
}

func (rb *rasterBackend) clear(c RGBA) {
	pr, pg, pb, pa := premul(c)
	pix := rb.buf.Pix
	pix[0], pix[1], pix[2], pix[3] = pr, pg, pb, pa
	for n := 4; n < len(pix); n *= 2 {
		copy(pix[n:], pix[:n])
	}
}

func (rb *rasterBackend) draw(prims []Primitive) {
	for i := range prims {
		p := &prims[i]
		x := p.X * rb.scale
		y := p.Y * rb.scale
		if p.Shape == ShapeCircle {
			rb.fillCircle(x, y, p.W*rb.scale/2, p.Color)
		} else {
			rb.fillRect(x, y, p.W*rb.scale, p.H*rb.scale, p.Color)
		}
	}
}

func (rb *rasterBackend) fillRect(cx, cy, w, h float64, c RGBA) {
	b := rb.buf.Bounds()
	x0 := max(int(math.Floor(cx-w/2)), 0)
	y0 := max(int(math.Floor(cy-h/2)), 0)
	x1 := min(int(math.Ceil(cx+w/2)), b.Dx())
	y1 := min(int(math.Ceil(cy+h/2)), b.Dy())
	if x0 >= x1 || y0 >= y1 {
		return
	}
	pr, pg, pb, pa := premul(c)
	for y := y0; y < y1; y++ {
		rb.span(y, x0, x1, pr, pg, pb, pa)
	}
}

// fillCircle covers every pixel whose center lies inside the circle, row
// by row from the circle equation.
func (rb *rasterBackend) fillCircle(cx, cy, r float64, c RGBA) {
	if r <= 0 {
		return
	}
	b := rb.buf.Bounds()
	y0 := max(int(math.Floor(cy-r)), 0)
	y1 := min(int(math.Ceil(cy+r)), b.Dy())
	pr, pg, pb, pa := premul(c)
	for y := y0; y < y1; y++ {
		dy := float64(y) + 0.5 - cy
		if math.Abs(dy) > r {
			continue
		}
		half := math.Sqrt(r*r - dy*dy)
		x0 := max(int(math.Ceil(cx-half-0.5)), 0)
		x1 := min(int(math.Floor(cx+half-0.5))+1, b.Dx())
		if x0 < x1 {
			rb.span(y, x0, x1, pr, pg, pb, pa)
		}
	}
}

// span fills [x0, x1) on one row, src-over for translucent colors and a
// straight copy for opaque ones.
func (rb *rasterBackend) span(y, x0, x1 int, pr, pg, pb, pa uint8) {
	row := rb.buf.Pix[y*rb.buf.Stride:]
	if pa == 255 {
		for x := x0; x < x1; x++ {
			n := x * 4
			row[n+0] = pr
			row[n+1] = pg
			row[n+2] = pb
			row[n+3] = 255
		}
		return
	}
	inv := uint32(255 - pa)
	for x := x0; x < x1; x++ {
		n := x * 4
		row[n+0] = uint8(uint32(pr) + uint32(row[n+0])*inv/255)
		row[n+1] = uint8(uint32(pg) + uint32(row[n+1])*inv/255)
		row[n+2] = uint8(uint32(pb) + uint32(row[n+2])*inv/255)
		row[n+3] = uint8(uint32(pa) + uint32(row[n+3])*inv/255)
	}
}

func (rb *rasterBackend) end() {
	if rb.dst == nil {
		return
	}
	bw := rb.buf.Bounds().Dx()
	bh := rb.buf.Bounds().Dy()
	if rb.tex == nil || rb.tex.Bounds().Dx() != bw || rb.tex.Bounds().Dy() != bh {
		if rb.tex != nil {
			rb.tex.Deallocate()
		}
		rb.tex = ebiten.NewImage(bw, bh)
	}
	rb.tex.WritePixels(rb.buf.Pix)

	op := &ebiten.DrawImageOptions{}
	if rb.scale != 1 {
		op.GeoM.Scale(1/rb.scale, 1/rb.scale)
	}
	rb.dst.DrawImage(rb.tex, op)
}

func (rb *rasterBackend) resize(w, h int) {
	rb.w, rb.h = w, h
	rb.alloc()
}

// setLevel drops the internal resolution at the low level, which cuts the
// CPU fill cost about 4x, and restores it otherwise.
func (rb *rasterBackend) setLevel(level PerfLevel) {
	scale := 1.0
	if level == LevelLow {
		scale = 0.5
	}
	if scale == rb.scale {
		return
	}
	rb.scale = scale
	rb.alloc()
}

func (rb *rasterBackend) dispose() {
	if rb.tex != nil {
		rb.tex.Deallocate()
		rb.tex = nil
	}
	rb.dst = nil
	rb.buf = nil
}

func premul(c RGBA) (r, g, b, a uint8) {
	if c.A == 255 {
		return c.R, c.G, c.B, 255
	}
	ca := uint32(c.A)
	return uint8(uint32(c.R) * ca / 255),
		uint8(uint32(c.G) * ca / 255),
		uint8(uint32(c.B) * ca / 255),
		c.A
}
