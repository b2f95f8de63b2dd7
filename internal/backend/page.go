package backend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/mohammed-shakir/wbd-map/internal/mapview"
)

//go:embed page.html.tmpl
var pageSource string

var pageTmpl = template.Must(template.New("page").Parse(pageSource))

// Page is the input of the map page template.
//
// With Inline set, Leaflet and every layer body are embedded and the page
// has no server to talk to. Otherwise Leaflet is linked from AssetBase and
// layers are fetched from the API.
type Page struct {
	Title      string
	Doc        mapview.Document
	Inline     bool
	LeafletJS  string
	LeafletCSS string
	AssetBase  string
	Layers     []json.RawMessage
}

func WritePage(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "Watershed Boundary Dataset"
	}
	if p.Layers == nil {
		p.Layers = []json.RawMessage{}
	}
	data := struct {
		Page
		JS          template.JS
		CSS         template.CSS
		Interactive bool
	}{
		Page:        p,
		JS:          template.JS(p.LeafletJS),   // #nosec G203 -- installed library
		CSS:         template.CSS(p.LeafletCSS), // #nosec G203 -- installed library
		Interactive: !p.Inline,
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func RenderPage(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePage(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LayerBody is the GeoJSON the page draws for one layer.
func LayerBody(l mapview.Layer) (json.RawMessage, error) {
	b, err := l.Styled.Collection.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode layer %q: %w", l.Label, err)
	}
	return b, nil
}
