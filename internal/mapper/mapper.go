// Package mapper converts between geographic coordinates and H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/wbd-map/internal/core/model"
)

type Interface interface {
	CellForPoint(p model.LatLng, res int) (string, error)
	ResForZoom(zoom int) int
}
