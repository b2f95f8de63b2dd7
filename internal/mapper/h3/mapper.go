package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
)

const (
	MinRes = 0
	MaxRes = 15
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPoint(p model.LatLng, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// ResForZoom picks the H3 resolution whose cells are roughly tile sized at
// the given web map zoom.
func (m *Mapper) ResForZoom(zoom int) int {
	res := (zoom * 2) / 3
	if res < MinRes {
		return MinRes
	}
	if res > MaxRes {
		return MaxRes
	}
	return res
}

func validateRes(res int) error {
	if res < MinRes || res > MaxRes {
		return fmt.Errorf("invalid H3 resolution %d (must be %d..%d)", res, MinRes, MaxRes)
	}
	return nil
}
