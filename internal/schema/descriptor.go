package schema

import (
	"github.com/roach88/runview/internal/model"
)

// Descriptor is the merged record of one field path across all observed runs.
type Descriptor struct {
	Path        string `json:"path"`
	ParentPath  string `json:"parentPath"`
	Name        string `json:"name"`
	Group       string `json:"group"`
	HasChildren bool   `json:"hasChildren"`

	// Types holds the primitive type tags observed, in first-seen order.
	// null is a tag of its own.
	Types []string `json:"types,omitempty"`

	// MinNumber and MaxNumber are nil until a number has been observed.
	MinNumber *float64 `json:"minNumber,omitempty"`
	MaxNumber *float64 `json:"maxNumber,omitempty"`

	// MaxStringLength is nil until a primitive has been observed.
	MaxStringLength *int `json:"maxStringLength,omitempty"`
}

// IsLeaf reports whether the field has no children.
func (d Descriptor) IsLeaf() bool {
	return !d.HasChildren
}

// HasType reports whether tag has been observed for this field.
func (d Descriptor) HasType(tag string) bool {
	for _, t := range d.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot alias the map's storage.
func (d Descriptor) clone() Descriptor {
	out := d
	if d.Types != nil {
		out.Types = append([]string(nil), d.Types...)
	}
	if d.MinNumber != nil {
		v := *d.MinNumber
		out.MinNumber = &v
	}
	if d.MaxNumber != nil {
		v := *d.MaxNumber
		out.MaxNumber = &v
	}
	if d.MaxStringLength != nil {
		v := *d.MaxStringLength
		out.MaxStringLength = &v
	}
	return out
}

func (d *Descriptor) addType(tag string) {
	if !d.HasType(tag) {
		d.Types = append(d.Types, tag)
	}
}

func (d *Descriptor) mergePrimitive(v any) {
	tag := model.TypeOf(v)
	d.addType(tag)

	length := model.RenderedLength(v)
	if d.MaxStringLength == nil || *d.MaxStringLength < length {
		d.MaxStringLength = &length
	}

	if tag == model.TypeNumber {
		d.mergeNumber(toFloat(v))
	}
}

func (d *Descriptor) mergeNumber(n float64) {
	if d.MaxNumber == nil || *d.MaxNumber < n {
		v := n
		d.MaxNumber = &v
	}
	if d.MinNumber == nil || *d.MinNumber > n {
		v := n
		d.MinNumber = &v
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
