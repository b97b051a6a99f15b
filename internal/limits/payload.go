package limits

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Shape identifies which known body layout carried the rate-limit fields.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeMeasurements is rateLimit.measurements.create.
	ShapeMeasurements
	// ShapeFlat is a top-level measurements object.
	ShapeFlat
	// ShapeLegacy is limits.measurements.create.
	ShapeLegacy
)

func (s Shape) String() string {
	switch s {
	case ShapeMeasurements:
		return "shape-1"
	case ShapeFlat:
		return "shape-2"
	case ShapeLegacy:
		return "shape-3"
	default:
		return "none"
	}
}

// ShapeFields holds the raw field values of one body shape. A nil value means
// the field was absent or null.
type ShapeFields struct {
	Limit     any
	Remaining any
	Reset     any
}

func (f *ShapeFields) get(field Field) any {
	if f == nil {
		return nil
	}
	switch field {
	case FieldLimit:
		return f.Limit
	case FieldRemaining:
		return f.Remaining
	case FieldReset:
		return f.Reset
	default:
		return nil
	}
}

// Payload is the closed set of body layouts the upstream has used. A nil
// shape pointer means the shape is absent.
type Payload struct {
	Measurements *ShapeFields
	Flat         *ShapeFields
	Legacy       *ShapeFields
}

// Select returns the highest-priority present shape.
func (p *Payload) Select() (Shape, *ShapeFields) {
	switch {
	case p == nil:
		return ShapeNone, nil
	case p.Measurements != nil:
		return ShapeMeasurements, p.Measurements
	case p.Flat != nil:
		return ShapeFlat, p.Flat
	case p.Legacy != nil:
		return ShapeLegacy, p.Legacy
	default:
		return ShapeNone, nil
	}
}

// ParsePayload decodes an upstream body into a Payload. It also returns the
// generic decoded document for diagnostic samples. Numbers are kept as
// json.Number so numeric strings and numbers share one coercion path.
func ParsePayload(body []byte) (*Payload, any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode upstream body: %w", err)
	}
	if dec.More() {
		return nil, nil, fmt.Errorf("decode upstream body: trailing data")
	}

	return PayloadFromDocument(doc), doc, nil
}

// PayloadFromDocument builds the union from an already decoded JSON document.
func PayloadFromDocument(doc any) *Payload {
	if doc == nil {
		return nil
	}
	return &Payload{
		Measurements: shapeAt(doc, "rateLimit", "measurements", "create"),
		Flat:         shapeAt(doc, "measurements"),
		Legacy:       shapeAt(doc, "limits", "measurements", "create"),
	}
}

func shapeAt(doc any, path ...string) *ShapeFields {
	current := doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[key]
	}
	if current == nil {
		return nil
	}

	// Present but not an object: the shape wins selection but has no fields.
	obj, ok := current.(map[string]any)
	if !ok {
		return &ShapeFields{}
	}
	return &ShapeFields{
		Limit:     obj[string(FieldLimit)],
		Remaining: obj[string(FieldRemaining)],
		Reset:     obj[string(FieldReset)],
	}
}
