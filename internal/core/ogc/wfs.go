package ogc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
)

const (
	wfsVersion     = "2.0.0"
	FormatGeoJSON  = "application/json"
	defaultSRSName = "EPSG:4326"
)

func OWSEndpoint(geoServerBase string) string {
	return strings.TrimRight(geoServerBase, "/") + "/ows"
}

// TypeName maps a dataset id onto a WFS feature type:
// "USGS/WBD/2017/HUC02" -> "USGS:WBD_2017_HUC02".
func TypeName(id model.DatasetID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	parts := strings.Split(strings.TrimSpace(id.String()), "/")
	return parts[0] + ":" + strings.Join(parts[1:], "_"), nil
}

type GetFeature struct {
	TypeName     string
	OutputFormat string
}

func BuildGetFeatureParams(q GetFeature) url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", wfsVersion)
	params.Set("request", "GetFeature")
	params.Set("typeNames", q.TypeName)
	params.Set("srsName", defaultSRSName)
	outputFormat := strings.TrimSpace(q.OutputFormat)
	if outputFormat == "" {
		outputFormat = FormatGeoJSON
	}
	params.Set("outputFormat", outputFormat)
	return params
}

func BuildGetCapabilitiesParams() url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", wfsVersion)
	params.Set("request", "GetCapabilities")
	return params
}

// ExceptionReport is the OWS error document a WFS returns with HTTP 200 or 400.
type ExceptionReport struct {
	XMLName    xml.Name    `xml:"ExceptionReport"`
	Exceptions []Exception `xml:"Exception"`
}

type Exception struct {
	Code    string   `xml:"exceptionCode,attr"`
	Locator string   `xml:"locator,attr"`
	Texts   []string `xml:"ExceptionText"`
}

func (r ExceptionReport) Error() string {
	if len(r.Exceptions) == 0 {
		return "wfs exception report"
	}
	e := r.Exceptions[0]
	return fmt.Sprintf("wfs %s (%s): %s", e.Code, e.Locator, strings.TrimSpace(strings.Join(e.Texts, "; ")))
}

// UnknownType reports whether the exception names a missing feature type.
func (r ExceptionReport) UnknownType() bool {
	for _, e := range r.Exceptions {
		loc := strings.ToLower(e.Locator)
		if strings.HasPrefix(loc, "typename") {
			return true
		}
		for _, t := range e.Texts {
			lt := strings.ToLower(t)
			if strings.Contains(lt, "unknown") || strings.Contains(lt, "not find") || strings.Contains(lt, "not exist") {
				return true
			}
		}
	}
	return false
}

// ParseExceptionReport decodes body when it looks like an OWS exception document.
func ParseExceptionReport(body []byte) (ExceptionReport, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' || !bytes.Contains(trimmed[:min(len(trimmed), 512)], []byte("ExceptionReport")) {
		return ExceptionReport{}, false
	}
	var rep ExceptionReport
	if err := xml.Unmarshal(trimmed, &rep); err != nil {
		return ExceptionReport{}, false
	}
	return rep, true
}
