package pipeline

// Shape selects how a primitive is filled.
type Shape uint8

const (
	ShapeRect Shape = iota
	ShapeCircle
)

// RGBA is a straight-alpha color. Both render backends premultiply at
// their boundary, which is the form the display layer consumes.
type RGBA struct {
	R uint8 `yaml:"r" json:"r"`
	G uint8 `yaml:"g" json:"g"`
	B uint8 `yaml:"b" json:"b"`
	A uint8 `yaml:"a" json:"a"`
}

// WithAlpha returns the color with its alpha scaled by f in [0, 1].
func (c RGBA) WithAlpha(f float64) RGBA {
	c.A = uint8(float64(c.A) * clamp01(f))
	return c
}

// Primitive is one filled shape in a frame batch. X, Y is the center. W
// and H are the full extent; circles use W as their diameter.
type Primitive struct {
	X, Y  float64
	W, H  float64
	Color RGBA
	Shape Shape
}
