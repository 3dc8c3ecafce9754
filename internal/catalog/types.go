package catalog

import (
	"fmt"
	"math"
)

// Producer yields a parameter value at invocation time.
type Producer func() (any, error)

// Value is the value slot of a ParamSpec. It is either Static or Dynamic.
type Value interface {
	isValue()
}

// Static is a plain scalar fixed when the catalog is defined.
type Static struct {
	Value any
}

// Dynamic is evaluated by the resolver every time its entry is resolved.
type Dynamic struct {
	// Producer names the producer for display (for example "timestamp").
	Producer string
	Fn       Producer
}

func (Static) isValue()  {}
func (Dynamic) isValue() {}

// ParamSpec is one named parameter of an APIEntry.
type ParamSpec struct {
	Name  string
	Value Value
}

// StaticParam declares a parameter with a literal value.
func StaticParam(name string, value any) ParamSpec {
	return ParamSpec{Name: name, Value: Static{Value: value}}
}

// DynamicParam declares a parameter evaluated through fn on every resolution.
func DynamicParam(name, producer string, fn Producer) ParamSpec {
	return ParamSpec{Name: name, Value: Dynamic{Producer: producer, Fn: fn}}
}

// IsDynamic reports whether the parameter is backed by a producer.
func (p ParamSpec) IsDynamic() bool {
	_, ok := p.Value.(Dynamic)
	return ok
}

// Describe renders the parameter value for listings. Dynamic values are shown
// by producer name because they have no value until resolution.
func (p ParamSpec) Describe() string {
	switch v := p.Value.(type) {
	case Static:
		return fmt.Sprintf("%v", v.Value)
	case Dynamic:
		return "<" + v.Producer + ">"
	default:
		return "<unset>"
	}
}

// APIEntry is one invocable test operation.
type APIEntry struct {
	Name        string
	Description string
	Params      []ParamSpec
}

func (e APIEntry) clone() APIEntry {
	clone := APIEntry{Name: e.Name, Description: e.Description}
	if len(e.Params) > 0 {
		clone.Params = make([]ParamSpec, len(e.Params))
		copy(clone.Params, e.Params)
	}
	return clone
}

// Category groups related APIs under a stable key.
type Category struct {
	Label string
	Key   string
	APIs  []APIEntry
}

func (c Category) clone() Category {
	clone := Category{Label: c.Label, Key: c.Key}
	if len(c.APIs) > 0 {
		clone.APIs = make([]APIEntry, len(c.APIs))
		for i, api := range c.APIs {
			clone.APIs[i] = api.clone()
		}
	}
	return clone
}

// IsScalar reports whether v is a plain scalar that may appear in a payload.
// NaN and infinities are excluded because JSON cannot carry them.
func IsScalar(v any) bool {
	switch n := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isFinite(float64(n))
	case float64:
		return isFinite(n)
	default:
		return false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
