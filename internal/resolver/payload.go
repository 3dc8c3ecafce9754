package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one resolved parameter.
type Field struct {
	Name  string
	Value any
}

// Payload is a resolved, ordered name to value mapping. Fields keep the
// declaration order of the entry they were resolved from.
type Payload struct {
	fields []Field
	index  map[string]int
}

func newPayload(size int) *Payload {
	return &Payload{
		fields: make([]Field, 0, size),
		index:  make(map[string]int, size),
	}
}

// NewPayload builds a payload from fields in the given order. Duplicate names
// are rejected.
func NewPayload(fields ...Field) (*Payload, error) {
	p := newPayload(len(fields))
	for _, field := range fields {
		if _, exists := p.index[field.Name]; exists {
			return nil, fmt.Errorf("resolver: duplicate param %q", field.Name)
		}
		p.add(field.Name, field.Value)
	}
	return p, nil
}

func (p *Payload) add(name string, value any) {
	p.index[name] = len(p.fields)
	p.fields = append(p.fields, Field{Name: name, Value: value})
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Get returns the value resolved for name.
func (p *Payload) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	idx, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.fields[idx].Value, true
}

// Names returns the parameter names in order.
func (p *Payload) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.fields))
	for i, field := range p.fields {
		names[i] = field.Name
	}
	return names
}

// Fields returns a copy of the ordered fields.
func (p *Payload) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Map returns the payload as an unordered map.
func (p *Payload) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for _, field := range p.fields {
		out[field.Name] = field.Value
	}
	return out
}

// MarshalJSON encodes the payload as a JSON object whose keys appear in
// declaration order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, fmt.Errorf("resolver: encode name %q: %w", field.Name, err)
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("resolver: encode %s: %w", field.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object, keeping the key order of the
// document. Nested objects, arrays and nulls are rejected. Integral numbers
// decode as int64, or uint64 above math.MaxInt64, and other numbers as float64.
func (p *Payload) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("resolver: payload is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("resolver: payload must be a JSON object")
	}
	decoded := newPayload(0)
	var decodeErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, exists := decoded.index[name]; exists {
			decodeErr = fmt.Errorf("resolver: duplicate param %q", name)
			return false
		}
		var v any
		switch value.Type {
		case gjson.String:
			v = value.String()
		case gjson.True, gjson.False:
			v = value.Bool()
		case gjson.Number:
			n, err := decodeNumber(value)
			if err != nil {
				decodeErr = fmt.Errorf("resolver: param %q: %w", name, err)
				return false
			}
			v = n
		default:
			decodeErr = fmt.Errorf("resolver: param %q is not a plain scalar", name)
			return false
		}
		decoded.add(name, v)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}
	*p = *decoded
	return nil
}

// decodeNumber keeps integers exact: int64 when they fit, uint64 above
// MaxInt64, and an error when neither holds them. Fractions that overflow
// float64 are rejected too.
func decodeNumber(value gjson.Result) (any, error) {
	raw := value.Raw
	if strings.ContainsAny(raw, ".eE") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("number %s is out of range", raw)
		}
		return f, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("integer %s is out of range", raw)
}
