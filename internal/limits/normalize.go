package limits

import (
	"errors"
	"net/http"
)

// ErrNotFound reports that no complete, numeric triple could be assembled
// from the body and headers.
var ErrNotFound = errors.New("rate-limit fields not found")

// Source records where a field value was read from.
type Source string

const (
	SourceHeader     Source = "header"
	SourceUnresolved Source = "unresolved"
)

// Resolution is the outcome of Resolve, including per-field provenance.
type Resolution struct {
	Snapshot Snapshot
	Shape    Shape
	Sources  map[Field]Source
	// Invalid lists fields that were unresolved or not numeric.
	Invalid []Field
}

// Normalize returns the snapshot carried by the payload and headers, or
// ErrNotFound when any field is missing or not a finite number.
func Normalize(p *Payload, h http.Header) (Snapshot, error) {
	res := Resolve(p, h)
	if len(res.Invalid) > 0 {
		return Snapshot{}, ErrNotFound
	}
	return res.Snapshot, nil
}

// Resolve performs normalization and reports where each field came from.
// Each field falls back to its header only, never to another body shape.
func Resolve(p *Payload, h http.Header) Resolution {
	shape, fields := p.Select()
	res := Resolution{
		Shape:   shape,
		Sources: make(map[Field]Source, len(Fields)),
	}

	values := make(map[Field]float64, len(Fields))
	for _, field := range Fields {
		raw, source := lookup(field, shape, fields, h)
		res.Sources[field] = source
		value, ok := Coerce(raw)
		if !ok {
			res.Invalid = append(res.Invalid, field)
			continue
		}
		values[field] = value
	}

	if len(res.Invalid) == 0 {
		res.Snapshot = Snapshot{
			Limit:     values[FieldLimit],
			Remaining: values[FieldRemaining],
			Reset:     values[FieldReset],
		}
	}
	return res
}

func lookup(field Field, shape Shape, fields *ShapeFields, h http.Header) (any, Source) {
	if raw := fields.get(field); raw != nil {
		return raw, Source(shape.String())
	}
	if h != nil {
		if values := h.Values(field.header()); len(values) > 0 {
			return values[0], SourceHeader
		}
	}
	return nil, SourceUnresolved
}
