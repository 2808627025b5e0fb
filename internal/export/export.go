// Package export converts POI snapshots to downloadable text: JSON, CSV,
// GeoJSON, and user-supplied Liquid templates. It performs no I/O and never
// mutates its input.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/osteele/liquid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Netonia/POIMapper/internal/models"
)

// CSVHeader is the first line of every CSV export.
const CSVHeader = "Name,Description,Category,Latitude,Longitude,CreatedAt"

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatGeoJSON  Format = "geojson"
	FormatTemplate Format = "template"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension used for downloads.
func (f Format) Extension() string {
	switch f {
	case FormatTemplate:
		return "txt"
	default:
		return string(f)
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV, FormatGeoJSON, FormatTemplate:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCSVQuoteEscaping doubles embedded double quotes in CSV text fields.
// Without it fields are written verbatim between quotes.
func WithCSVQuoteEscaping(enabled bool) Option {
	return func(e *Exporter) {
		e.escapeQuotes = enabled
	}
}

// Exporter renders POI lists. The zero value is ready to use.
type Exporter struct {
	escapeQuotes bool
	engine       *liquid.Engine
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{engine: newEngine()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAsJSON returns pois as an indented JSON array.
func (e *Exporter) ExportAsJSON(pois []models.POI) (string, error) {
	if pois == nil {
		pois = []models.POI{}
	}
	data, err := json.MarshalIndent(pois, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal POIs to JSON: %w", err)
	}
	return string(data), nil
}

// ExportAsCSV returns the CSV header followed by one line per POI.
// Text fields are always quoted; coordinates are not.
func (e *Exporter) ExportAsCSV(pois []models.POI) string {
	var sb strings.Builder
	sb.WriteString(CSVHeader)
	sb.WriteByte('\n')

	for _, p := range pois {
		sb.WriteString(e.quote(p.Name))
		sb.WriteByte(',')
		sb.WriteString(e.quote(p.Description))
		sb.WriteByte(',')
		sb.WriteString(e.quote(p.Category))
		sb.WriteByte(',')
		sb.WriteString(formatNumber(p.Latitude))
		sb.WriteByte(',')
		sb.WriteString(formatNumber(p.Longitude))
		sb.WriteByte(',')
		sb.WriteString(e.quote(p.CreatedText()))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (e *Exporter) quote(s string) string {
	if e.escapeQuotes {
		s = strings.ReplaceAll(s, `"`, `""`)
	}
	return `"` + s + `"`
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExportAsGeoJSON returns pois as a FeatureCollection of points.
func (e *Exporter) ExportAsGeoJSON(pois []models.POI) (string, error) {
	fc := geojson.NewFeatureCollection()
	for _, p := range pois {
		f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		f.ID = p.ID
		f.Properties["id"] = p.ID
		f.Properties["name"] = p.Name
		f.Properties["description"] = p.Description
		f.Properties["category"] = p.Category
		f.Properties["createdAt"] = p.CreatedText()
		fc.Append(f)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal POIs to GeoJSON: %w", err)
	}
	return string(data), nil
}

// Bounds returns the bounding box of pois, or false when pois is empty.
func Bounds(pois []models.POI) (orb.Bound, bool) {
	if len(pois) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, len(pois))
	for i, p := range pois {
		mp[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return mp.Bound(), true
}

// ExportWithTemplate renders tmpl once per POI, one line each. A blank
// template yields "". Failures never escape: a parse failure returns
// "Template error: ..." and any render failure returns "Export error: ...".
func (e *Exporter) ExportWithTemplate(pois []models.POI, tmpl string) (out string) {
	if strings.TrimSpace(tmpl) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Export error: %v", r)
		}
	}()

	engine := e.engine
	if engine == nil {
		engine = newEngine()
	}

	var sb strings.Builder
	var parsed *liquid.Template
	for _, p := range pois {
		// Parsing is deterministic, so a failure surfaces on the first record.
		if parsed == nil {
			t, err := engine.ParseString(tmpl)
			if err != nil {
				return "Template error: " + err.Error()
			}
			parsed = t
		}

		line, err := parsed.RenderString(Bindings(p))
		if err != nil {
			return "Export error: " + err.Error()
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ResultError returns a non-nil error when out is one of the error strings
// produced by ExportWithTemplate.
func ResultError(out string) error {
	switch {
	case strings.HasPrefix(out, "Template error: "):
		return errors.New(out)
	case strings.HasPrefix(out, "Export error: "):
		return errors.New(out)
	}
	return nil
}

// newEngine returns a Liquid engine that fails on undefined variables.
func newEngine() *liquid.Engine {
	engine := liquid.NewEngine()
	engine.StrictVariables()
	return engine
}

// Bindings returns the template variables for one POI: the short names
// (id, name, description, category, lat, lon, latitude, longitude, created),
// the record's fields at top level, and the record itself as "poi". Record
// fields are bound under both their PascalCase and lowerCamel names.
func Bindings(p models.POI) liquid.Bindings {
	created := p.CreatedText()
	record := map[string]any{
		"Id":          p.ID,
		"Name":        p.Name,
		"Description": p.Description,
		"Category":    p.Category,
		"Latitude":    p.Latitude,
		"Longitude":   p.Longitude,
		"CreatedAt":   created,
	}
	for k, v := range map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"latitude":    p.Latitude,
		"longitude":   p.Longitude,
		"createdAt":   created,
	} {
		record[k] = v
	}

	b := liquid.Bindings{
		"lat":     p.Latitude,
		"lon":     p.Longitude,
		"created": created,
		"poi":     record,
	}
	for k, v := range record {
		b[k] = v
	}
	return b
}
