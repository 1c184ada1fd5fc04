// Package attrs holds the attribute set of a plugin instance and converts its
// geometry between the pixel space used while an instance is live and the
// percent space used by persisted documents.
//
// Percent values are relative to a fixed reference frame of 720x405 units.
// Horizontal keys (x, w) scale against the width, vertical keys (y, h) against
// the height. Rotation (r) also scales against the height: persisted documents
// store rotation as a fraction of the vertical reference, so that asymmetry is
// part of the document format.
package attrs

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
)

// Reference frame dimensions for percent geometry.
const (
	ReferenceWidth  = 720.0
	ReferenceHeight = 405.0
)

// Geometry keys.
const (
	KeyX        = "x"
	KeyY        = "y"
	KeyW        = "w"
	KeyH        = "h"
	KeyR        = "r"
	KeyVisible  = "visible"
	KeyEditable = "editable"
)

// ErrNegativeSize reports a w or h below zero. The value is clamped to 0.
var ErrNegativeSize = errors.New("negative size clamped to 0")

// sizeKeys may never hold a negative number.
var sizeKeys = []string{KeyW, KeyH}

// surfaceKeys are the duplicates render libraries keep next to x/y/w/h.
var surfaceKeys = []string{"top", "left", "width", "height"}

// axis maps each convertible key to its reference dimension.
var axis = map[string]float64{
	KeyX: ReferenceWidth,
	KeyW: ReferenceWidth,
	KeyY: ReferenceHeight,
	KeyH: ReferenceHeight,
	KeyR: ReferenceHeight,
}

// Attributes is a flat attribute set. Nested objects are plain
// map[string]interface{} values.
type Attributes map[string]interface{}

// New returns the attribute set of a freshly constructed instance.
func New() Attributes {
	return Attributes{KeyX: 0.0, KeyY: 0.0, KeyW: 0.0, KeyH: 0.0}
}

// Merge deep-merges src into a. Later values win on conflicting keys; nested
// objects are merged key-wise instead of replaced. Nil values in src are
// skipped.
func (a Attributes) Merge(src map[string]interface{}) {
	mergeInto(a, src)
	ClampSize(a)
}

// Set stores a copy of v under key. A negative w or h is stored as 0.
func (a Attributes) Set(key string, v interface{}) {
	a[key] = cloneValue(v)
	ClampSize(a)
}

// ClampSize sets negative w and h to 0 and returns the keys it changed.
func ClampSize(a Attributes) []string {
	var clamped []string
	for _, k := range sizeKeys {
		if v, ok := a.Number(k); ok && v < 0 {
			a[k] = 0.0
			clamped = append(clamped, k)
		}
	}
	return clamped
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if v == nil {
			continue
		}
		srcMap, srcIsMap := asMap(v)
		dstMap, dstIsMap := asMap(dst[k])
		if srcIsMap && dstIsMap {
			merged := cloneMap(dstMap)
			mergeInto(merged, srcMap)
			dst[k] = merged
			continue
		}
		dst[k] = cloneValue(v)
	}
}

// Get returns a copy of the attributes without the render-surface duplicate
// keys (top, left, width, height).
func (a Attributes) Get() Attributes {
	out := a.Clone()
	for _, k := range surfaceKeys {
		delete(out, k)
	}
	return out
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return Attributes(cloneMap(a))
}

// Number returns the numeric value stored under key.
func (a Attributes) Number(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	return Float(v)
}

// Properties returns only the scalar entries: nested objects, lists and NaN
// numbers are left out.
func (a Attributes) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(a))
	for k, v := range a {
		if v == nil || isObject(v) {
			continue
		}
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			continue
		}
		if f, ok := v.(float32); ok && math.IsNaN(float64(f)) {
			continue
		}
		props[k] = v
	}
	return props
}

// PixelToPercent converts the geometry of a in place from pixels to percent
// of the reference frame, rounded to two decimals. Absent or non-numeric keys
// are left alone.
func PixelToPercent(a Attributes) {
	for k, ref := range axis {
		if v, ok := a.Number(k); ok {
			a[k] = Round2(v / ref * 100)
		}
	}
}

// PercentToPixel converts the geometry of a in place from percent of the
// reference frame to pixels.
func PercentToPixel(a Attributes) {
	for k, ref := range axis {
		if v, ok := a.Number(k); ok {
			a[k] = v * (ref / 100)
		}
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToSurface returns a copy of a with the render-surface aliases added:
// x→left, y→top, w→width, h→height, radius→rx and color→fill. An alias is
// only set when the source value is non-zero.
func ToSurface(a Attributes) Attributes {
	out := a.Clone()
	aliases := [][2]string{
		{KeyX, "left"},
		{KeyY, "top"},
		{KeyW, "width"},
		{KeyH, "height"},
		{"radius", "rx"},
		{"color", "fill"},
	}
	for _, pair := range aliases {
		if v, ok := a[pair[0]]; ok && truthy(v) {
			out[pair[1]] = cloneValue(v)
		}
	}
	return out
}

// Float converts any numeric representation (including numeric strings and
// json.Number) to float64.
func Float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := Float(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func isObject(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr, reflect.Func:
		return true
	}
	return false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Attributes:
		return m, true
	}
	return nil, false
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case Attributes:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// CloneValue deep-copies maps and lists; other values are returned as is.
func CloneValue(v interface{}) interface{} {
	return cloneValue(v)
}
