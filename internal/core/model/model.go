// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strings"
)

const (
	MinZoom = 0
	MaxZoom = 24
)

type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

func (p LatLng) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v must be in [-90,90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v must be in [-180,180]", p.Lon)
	}
	return nil
}

type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

func (v Viewport) Validate() error {
	if err := v.Center.Validate(); err != nil {
		return err
	}
	if v.Zoom < MinZoom || v.Zoom > MaxZoom {
		return fmt.Errorf("zoom %d must be in [%d,%d]", v.Zoom, MinZoom, MaxZoom)
	}
	return nil
}

// DatasetID names a published feature collection, e.g. "USGS/WBD/2017/HUC02".
type DatasetID string

func (d DatasetID) Validate() error {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return fmt.Errorf("dataset id is empty")
	}
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return fmt.Errorf("dataset id %q must be <provider>/<path>", s)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("dataset id %q has an empty segment", s)
		}
	}
	return nil
}

func (d DatasetID) String() string { return string(d) }
