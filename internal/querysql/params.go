package querysql

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/cohort/internal/queryir"
)

// Param is one named, typed bound value.
type Param struct {
	Name  string
	Type  queryir.ValueType
	Value any
}

// ParameterStore hands out placeholder names for typed values during one
// render pass. Equal (type, value) pairs share a name, so a concept id used
// in several branches of a query is bound once.
//
// A store belongs to exactly one compilation; it is not safe for concurrent
// use and is never shared.
type ParameterStore struct {
	prefix string
	byKey  map[string]string
	params []Param
}

// NewParameterStore returns an empty store whose names are prefix0,
// prefix1, ... in order of first use.
func NewParameterStore(prefix string) *ParameterStore {
	if prefix == "" {
		prefix = "p"
	}
	return &ParameterStore{
		prefix: prefix,
		byKey:  make(map[string]string),
	}
}

// Add returns the placeholder name bound to v, registering v on first use.
func (s *ParameterStore) Add(v *queryir.Value) (string, error) {
	key, err := valueKey(v)
	if err != nil {
		return "", err
	}
	if name, ok := s.byKey[key]; ok {
		return name, nil
	}
	name := s.prefix + strconv.Itoa(len(s.params))
	s.byKey[key] = name
	s.params = append(s.params, Param{Name: name, Type: v.Type, Value: v.V})
	return name, nil
}

// Params returns the registered parameters in order of first use.
func (s *ParameterStore) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// Len returns the number of distinct parameters.
func (s *ParameterStore) Len() int {
	return len(s.params)
}

// valueKey identifies a value for deduplication. The type is part of the
// key: INT64 1 and STRING "1" are different parameters.
func valueKey(v *queryir.Value) (string, error) {
	if v == nil {
		return "", fmt.Errorf("nil value")
	}
	switch v.Type {
	case queryir.TypeInt64:
		n, ok := v.V.(int64)
		if !ok {
			return "", fmt.Errorf("INT64 value has Go type %T", v.V)
		}
		return "i:" + strconv.FormatInt(n, 10), nil
	case queryir.TypeFloat64:
		f, ok := v.V.(float64)
		if !ok {
			return "", fmt.Errorf("FLOAT64 value has Go type %T", v.V)
		}
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64), nil
	case queryir.TypeString:
		s, ok := v.V.(string)
		if !ok {
			return "", fmt.Errorf("STRING value has Go type %T", v.V)
		}
		return "s:" + s, nil
	case queryir.TypeDate:
		d, ok := v.V.(time.Time)
		if !ok {
			return "", fmt.Errorf("DATE value has Go type %T", v.V)
		}
		return "d:" + d.Format(time.DateOnly), nil
	case queryir.TypeBool:
		b, ok := v.V.(bool)
		if !ok {
			return "", fmt.Errorf("BOOL value has Go type %T", v.V)
		}
		return "b:" + strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("unsupported value type %q", v.Type)
	}
}
