// Package annotation converts untyped annotation records into typed boxes.
//
// Records come from JSON or hand-built maps whose keys depend on the format
// selector: xmin/ymin/xmax/ymax for XY and left/top/width/height for HW. An
// optional "name" key carries the box label.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/menta2k/devtools/pkg/types"
)

var (
	// ErrAnnotationFormat is returned for an unknown selector or a record missing a required key
	ErrAnnotationFormat = errors.New("annotation: invalid format")
	// ErrInvalidGeometry is returned for boxes with negative extents
	ErrInvalidGeometry = errors.New("annotation: invalid geometry")
)

// Record is a single untyped annotation mapping
type Record map[string]any

// FormatError describes which record and key failed to decode
type FormatError struct {
	Format types.Format
	Index  int
	Key    string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("annotation: %s", e.Reason)
	}
	if e.Key == "" {
		return fmt.Sprintf("annotation %d (%s): %s", e.Index, e.Format, e.Reason)
	}
	return fmt.Sprintf("annotation %d (%s): key %q: %s", e.Index, e.Format, e.Key, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrAnnotationFormat }

var requiredKeys = map[types.Format][]string{
	types.FormatXY: {"xmin", "ymin", "xmax", "ymax"},
	types.FormatHW: {"left", "top", "width", "height"},
}

// Decode converts records into annotations of the selected format.
// Nothing is returned when any record fails.
func Decode(format types.Format, records []Record) ([]types.Annotation, error) {
	if !format.Valid() {
		return nil, &FormatError{Format: format, Index: -1, Reason: fmt.Sprintf("unknown format selector %q (want XY or HW)", format)}
	}

	keys := requiredKeys[format]
	out := make([]types.Annotation, 0, len(records))
	for i, rec := range records {
		for _, key := range keys {
			if v, present := rec[key]; !present || v == nil {
				return nil, &FormatError{Format: format, Index: i, Key: key, Reason: "missing"}
			}
		}

		a, err := decodeRecord(format, rec)
		if err != nil {
			return nil, &FormatError{Format: format, Index: i, Reason: err.Error()}
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseJSON reads a JSON array of annotation objects without interpreting them
func ParseJSON(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &FormatError{Index: -1, Reason: fmt.Sprintf("malformed annotation JSON: %v", err)}
	}
	return records, nil
}

// DecodeJSON decodes a JSON array of annotation objects
func DecodeJSON(format types.Format, data []byte) ([]types.Annotation, error) {
	records, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return Decode(format, records)
}

// Validate rejects boxes with a non-finite coordinate or a negative extent
func Validate(a types.Annotation) error {
	r := a.Rect()
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s box has non-finite coordinate %s", ErrInvalidGeometry, a.Format(), r)
		}
	}
	if r.W < 0 || r.H < 0 {
		return fmt.Errorf("%w: %s box has negative extent %s", ErrInvalidGeometry, a.Format(), r)
	}
	return nil
}

// ValidateAll validates every annotation and reports the first failure with its index
func ValidateAll(anns []types.Annotation) error {
	for i, a := range anns {
		if err := Validate(a); err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return nil
}

// Rects returns the derived rectangles in input order
func Rects(anns []types.Annotation) []types.Rect {
	rects := make([]types.Rect, len(anns))
	for i, a := range anns {
		rects[i] = a.Rect()
	}
	return rects
}

// decodeRecord maps a record onto the box type for format using the json tags.
// Keys of the other format are ignored.
func decodeRecord(format types.Format, rec Record) (types.Annotation, error) {
	var (
		xy     types.XYBox
		hw     types.HWBox
		target any = &hw
	)
	if format == types.FormatXY {
		target = &xy
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		DecodeHook: mapstructure.DecodeHookFuncType(numericString),
		Result:     target,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(rec); err != nil {
		var me *mapstructure.Error
		if errors.As(err, &me) {
			return nil, errors.New(strings.Join(me.Errors, "; "))
		}
		return nil, err
	}

	if format == types.FormatXY {
		return xy, nil
	}
	return hw, nil
}

// numericString lets coordinates arrive as strings such as "171" or "12.5"
func numericString(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
