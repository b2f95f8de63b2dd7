// Package style compiles the cosmetic style descriptor attached to a layer.
//
// A Style is applied to a whole feature collection at render time; it is never
// evaluated per feature. Colors follow the Earth Engine convention: hex digits
// with an optional leading '#', as RGB, RRGGBB or RRGGBBAA.
package style

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb/geojson"
)

const (
	defaultStroke      = "000000"
	defaultWidth       = 2.0
	defaultFillOpacity = 0x66 / 255.0
)

var ErrInvalidStyle = errors.New("invalid style")

type Style struct {
	FillColor string  `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
	Width     float64 `json:"width,omitempty" yaml:"width,omitempty"`
}

// Paint is the compiled form of a Style.
type Paint struct {
	Stroke        colorful.Color
	StrokeOpacity float64
	Fill          colorful.Color
	FillOpacity   float64
	Width         float64
}

// PathOptions mirrors Leaflet's Path options.
type PathOptions struct {
	Color       string  `json:"color"`
	Opacity     float64 `json:"opacity"`
	Weight      float64 `json:"weight"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

func (s Style) Compile() (Paint, error) {
	// zero width is unset and takes the default
	if math.IsNaN(s.Width) || math.IsInf(s.Width, 0) || s.Width < 0 {
		return Paint{}, fmt.Errorf("%w: width %v must be finite and > 0, or 0 for the default", ErrInvalidStyle, s.Width)
	}
	p := Paint{Width: s.Width}
	if p.Width == 0 {
		p.Width = defaultWidth
	}

	stroke := s.Color
	if strings.TrimSpace(stroke) == "" {
		stroke = defaultStroke
	}
	var err error
	p.Stroke, p.StrokeOpacity, err = ParseColor(stroke)
	if err != nil {
		return Paint{}, fmt.Errorf("%w: color: %w", ErrInvalidStyle, err)
	}

	if strings.TrimSpace(s.FillColor) == "" {
		// unset fill follows the stroke at reduced opacity
		p.Fill, p.FillOpacity = p.Stroke, defaultFillOpacity
		return p, nil
	}
	p.Fill, p.FillOpacity, err = ParseColor(s.FillColor)
	if err != nil {
		return Paint{}, fmt.Errorf("%w: fillColor: %w", ErrInvalidStyle, err)
	}
	return p, nil
}

func (p Paint) PathOptions() PathOptions {
	return PathOptions{
		Color:       p.Stroke.Hex(),
		Opacity:     round3(p.StrokeOpacity),
		Weight:      p.Width,
		FillColor:   p.Fill.Hex(),
		FillOpacity: round3(p.FillOpacity),
	}
}

// ParseColor accepts RGB, RRGGBB or RRGGBBAA hex, with or without '#'.
func ParseColor(s string) (colorful.Color, float64, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	alpha := 1.0
	switch len(h) {
	case 3, 6:
	case 8:
		a, err := strconv.ParseUint(h[6:], 16, 8)
		if err != nil {
			return colorful.Color{}, 0, fmt.Errorf("alpha in %q: %w", s, err)
		}
		alpha = float64(a) / 255.0
		h = h[:6]
	default:
		return colorful.Color{}, 0, fmt.Errorf("color %q must have 3, 6 or 8 hex digits", s)
	}
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return colorful.Color{}, 0, fmt.Errorf("color %q has non-hex digit %q", s, r)
		}
	}
	c, err := colorful.Hex("#" + h)
	if err != nil {
		return colorful.Color{}, 0, fmt.Errorf("color %q: %w", s, err)
	}
	return c, alpha, nil
}

// Styled is one feature collection paired with the uniform paint it renders with.
type Styled struct {
	Collection *geojson.FeatureCollection
	Style      Style
	Paint      Paint
}

// Apply attaches s to fc. The collection is shared, not copied or mutated.
func Apply(fc *geojson.FeatureCollection, s Style) (Styled, error) {
	if fc == nil {
		return Styled{}, errors.New("style: nil feature collection")
	}
	p, err := s.Compile()
	if err != nil {
		return Styled{}, err
	}
	return Styled{Collection: fc, Style: s, Paint: p}, nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
