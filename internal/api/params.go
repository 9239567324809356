package api

import (
	"bytes"
	"fmt"
	"strconv"
)

// FileValue is a binary attachment sent as a multipart file part.
// The payload is copied on construction and never modified afterwards.
type FileValue struct {
	FileName string
	data     []byte
}

// NewFileValue creates a FileValue holding a private copy of data.
func NewFileValue(fileName string, data []byte) FileValue {
	return FileValue{FileName: fileName, data: bytes.Clone(data)}
}

// Bytes returns the payload. Callers must not modify the returned slice.
func (f FileValue) Bytes() []byte {
	return f.data
}

// Len returns the payload size in bytes.
func (f FileValue) Len() int {
	return len(f.data)
}

// Field is one named request parameter.
type Field struct {
	Name  string
	Value any
}

// Params is an ordered set of uniquely named request parameters.
// Insertion order is kept so encoded bodies and query strings are deterministic.
type Params struct {
	fields []Field
	index  map[string]int
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{index: make(map[string]int)}
}

// Set adds a parameter, or replaces the value of an existing one in place.
func (p *Params) Set(name string, value any) *Params {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[name]; ok {
		p.fields[i].Value = value
		return p
	}
	p.index[name] = len(p.fields)
	p.fields = append(p.fields, Field{Name: name, Value: value})
	return p
}

// Get returns the value stored under name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.fields[i].Value, true
}

// Del removes name, keeping the order of the remaining fields.
func (p *Params) Del(name string) {
	if p == nil {
		return
	}
	i, ok := p.index[name]
	if !ok {
		return
	}
	p.fields = append(p.fields[:i], p.fields[i+1:]...)
	delete(p.index, name)
	for j := i; j < len(p.fields); j++ {
		p.index[p.fields[j].Name] = j
	}
}

// Len returns the number of parameters. A nil set is empty.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

// Fields returns a copy of the parameters in insertion order.
func (p *Params) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// HasFiles reports whether any value is a FileValue.
func (p *Params) HasFiles() bool {
	for _, f := range p.Fields() {
		if _, ok := f.Value.(FileValue); ok {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. FileValue payloads are immutable and shared.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	c := &Params{
		fields: p.Fields(),
		index:  make(map[string]int, len(p.index)),
	}
	for k, v := range p.index {
		c.index[k] = v
	}
	return c
}

// formatValue stringifies a primitive parameter value at encode time.
func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case FileValue:
		return "", fmt.Errorf("file value %q cannot be used as a text parameter", v.FileName)
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}
