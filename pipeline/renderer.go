package pipeline

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// Backend names accepted by RendererConfig.Backend.
const (
	BackendGPU    = "gpu"
	BackendRaster = "raster"
)

// ErrInvalidSurface reports an unusable drawing surface size. It is the
// only fatal renderer construction error; every other failure degrades to
// the raster backend.
var ErrInvalidSurface = errors.New("pipeline: invalid surface size")

// backend is the strategy both renderer implementations satisfy. The set
// is closed: gpu triangle batching and the cpu raster fallback.
type backend interface {
	begin(dst *ebiten.Image)
	clear(c RGBA)
	draw(prims []Primitive)
	end()
	resize(w, h int)
	setLevel(level PerfLevel)
	name() string
	dispose()
}

// newGPU is swapped in tests, which never compile a real shader.
var newGPU = newGPUBackend

// Renderer draws primitive batches through the backend selected at
// construction. Per frame call order: BeginFrame, Clear, DrawBatch (any
// number of times), EndFrame.
type Renderer struct {
	b    backend
	w, h int
	log  *zap.Logger
}

// NewRenderer picks a backend from the config override and the probed
// capabilities. A GPU that cannot be set up (shader compile failure,
// forced but absent) degrades to raster with a warning.
func NewRenderer(cfg RendererConfig, caps Capabilities, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSurface, cfg.Width, cfg.Height)
	}

	var b backend
	if chooseBackend(cfg, caps, log) == BackendGPU {
		gb, err := newGPU()
		if err != nil {
			log.Warn("gpu backend unavailable, using raster", zap.Error(err))
			b = newRasterBackend(cfg.Width, cfg.Height)
		} else {
			b = gb
		}
	} else {
		b = newRasterBackend(cfg.Width, cfg.Height)
	}

	log.Info("renderer ready",
		zap.String("backend", b.name()),
		zap.String("device", caps.Renderer),
		zap.Stringer("tier", caps.Tier),
	)
	return &Renderer{b: b, w: cfg.Width, h: cfg.Height, log: log}, nil
}

func chooseBackend(cfg RendererConfig, caps Capabilities, log *zap.Logger) string {
	switch strings.ToLower(cfg.Backend) {
	case BackendRaster:
		return BackendRaster
	case BackendGPU:
		if !caps.GPU {
			log.Warn("gpu backend forced but no gpu present, using raster")
			return BackendRaster
		}
		return BackendGPU
	case "":
	default:
		log.Warn("unknown backend override ignored", zap.String("backend", cfg.Backend))
	}
	if caps.GPU && caps.Tier > TierLow {
		return BackendGPU
	}
	return BackendRaster
}

// BeginFrame starts a frame targeting dst. A nil dst runs the frame
// headless: the raster backend still fills its buffer, the gpu backend
// skips the frame.
func (r *Renderer) BeginFrame(dst *ebiten.Image) {
	r.b.begin(dst)
}

// Clear fills the frame with a solid color.
func (r *Renderer) Clear(c RGBA) {
	r.b.clear(c)
}

// DrawBatch queues one batch of primitives for this frame.
func (r *Renderer) DrawBatch(prims []Primitive) {
	r.b.draw(prims)
}

// EndFrame flushes the frame to the target.
func (r *Renderer) EndFrame() {
	r.b.end()
}

// Resize adapts backend surfaces to a new logical size. Nonpositive and
// unchanged sizes are ignored.
func (r *Renderer) Resize(w, h int) {
	if w <= 0 || h <= 0 || (w == r.w && h == r.h) {
		return
	}
	r.w, r.h = w, h
	r.b.resize(w, h)
}

// Size returns the logical surface size.
func (r *Renderer) Size() (int, int) {
	return r.w, r.h
}

// Backend returns the active backend name, "gpu" or "raster".
func (r *Renderer) Backend() string {
	return r.b.name()
}

// SetLevel applies quality level dependent rendering knobs.
func (r *Renderer) SetLevel(level PerfLevel) {
	r.b.setLevel(level)
}

// Buffer exposes the raster backend's premultiplied pixel buffer, for
// headless capture and tests. The gpu backend returns nil.
func (r *Renderer) Buffer() *image.RGBA {
	if rb, ok := r.b.(*rasterBackend); ok {
		return rb.buf
	}
	return nil
}

// Dispose releases backend resources. The renderer is unusable after.
func (r *Renderer) Dispose() {
	r.b.dispose()
}
