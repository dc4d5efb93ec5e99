// Package merge applies one-level partial updates to state values.
//
// A partial is a map from field name to new value. Fields present in the
// partial replace the same-named field of the state; everything else is
// kept. Nested values are replaced wholesale, never merged.
//
// Supported state shapes are structs, pointers to structs and maps keyed by
// a string type. Struct fields are addressed by Go name or by json tag name;
// unexported fields cannot be patched.
package merge

import (
	"maps"
	"math"
	"math/big"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/vango-dev/vstore/internal/errors"
)

// fieldIndexes caches name -> field index tables per struct type.
var fieldIndexes sync.Map // map[reflect.Type]map[string]int

// Apply returns state with partial merged in. The input state is not
// modified: structs are copied, pointers get a fresh pointee, maps get a
// fresh map.
func Apply[S any](state S, partial map[string]any) (S, error) {
	v := reflect.ValueOf(&state).Elem()

	switch v.Kind() {
	case reflect.Struct:
		fresh := reflect.New(v.Type()).Elem()
		fresh.Set(v)
		if err := patchStruct(fresh, partial); err != nil {
			return state, err
		}
		return fresh.Interface().(S), nil

	case reflect.Pointer:
		if v.IsNil() || v.Type().Elem().Kind() != reflect.Struct {
			return state, notMergeable(v.Type())
		}
		fresh := reflect.New(v.Type().Elem())
		fresh.Elem().Set(v.Elem())
		if err := patchStruct(fresh.Elem(), partial); err != nil {
			return state, err
		}
		return fresh.Interface().(S), nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return state, notMergeable(v.Type())
		}
		out, err := patchMap(v, partial)
		if err != nil {
			return state, err
		}
		return out.Interface().(S), nil

	case reflect.Interface:
		// A map[string]any held behind an interface-typed state.
		if m, ok := any(state).(map[string]any); ok {
			merged, err := Apply(m, partial)
			if err != nil {
				return state, err
			}
			return any(merged).(S), nil
		}
		return state, notMergeable(v.Type())

	default:
		return state, notMergeable(v.Type())
	}
}

// patchStruct writes partial into v, which callers pass as a scratch copy.
// Keys are visited in sorted order so a failing partial always reports the
// same key.
func patchStruct(v reflect.Value, partial map[string]any) error {
	index := fieldIndex(v.Type())
	names := slices.Sorted(maps.Keys(partial))

	fields := make([]int, len(names))
	claimed := make(map[int]string, len(names))
	for n, name := range names {
		i, ok := index[name]
		if !ok {
			return errors.New("E011").WithDetailf("field %q does not exist on %s", name, v.Type())
		}
		if other, dup := claimed[i]; dup {
			return errors.New("E011").
				WithDetailf("keys %q and %q both name field %s of %s", other, name, v.Type().Field(i).Name, v.Type()).
				WithSuggestion("Address each field once, by Go name or by json tag")
		}
		claimed[i] = name
		fields[n] = i
	}

	for n, name := range names {
		raw := partial[name]
		field := v.Field(fields[n])
		val, err := coerce(field.Type(), raw)
		if err != nil {
			return errors.New("E012").
				WithDetailf("field %q of %s is %s, got %T", name, v.Type(), field.Type(), raw)
		}
		field.Set(val)
	}
	return nil
}

func patchMap(v reflect.Value, partial map[string]any) (reflect.Value, error) {
	t := v.Type()
	out := reflect.MakeMapWithSize(t, v.Len()+len(partial))
	iter := v.MapRange()
	for iter.Next() {
		out.SetMapIndex(iter.Key(), iter.Value())
	}
	for name, raw := range partial {
		val, err := coerce(t.Elem(), raw)
		if err != nil {
			return v, errors.New("E012").
				WithDetailf("key %q of %s holds %s, got %T", name, t, t.Elem(), raw)
		}
		out.SetMapIndex(reflect.ValueOf(name).Convert(t.Key()), val)
	}
	return out, nil
}

// FieldType reports the type a partial value for name must have on a state
// of type t. Callers decoding partials from the wire use it to pick the
// target type before calling Apply.
func FieldType(t reflect.Type, name string) (reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, false
		}
		return FieldType(t.Elem(), name)
	case reflect.Struct:
		i, ok := fieldIndex(t)[name]
		if !ok {
			return nil, false
		}
		return t.Field(i).Type, true
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, false
		}
		return t.Elem(), true
	default:
		return nil, false
	}
}

func fieldIndex(t reflect.Type) map[string]int {
	if cached, ok := fieldIndexes.Load(t); ok {
		return cached.(map[string]int)
	}

	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		index[f.Name] = i
		if tag, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				index[name] = i
			}
		}
	}

	actual, _ := fieldIndexes.LoadOrStore(t, index)
	return actual.(map[string]int)
}

// coerce converts raw to t. Assignable values pass through, numbers convert
// between numeric kinds when no precision is lost, and named types convert
// to their underlying kind. nil yields the zero value.
func coerce(t reflect.Type, raw any) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch {
	case isInteger(t.Kind()) && isFloat(rv.Kind()):
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return reflect.Value{}, errors.New("E012")
		}
		out := rv.Convert(t)
		if out.Convert(rv.Type()).Float() != f {
			return reflect.Value{}, errors.New("E012")
		}
		return out, nil

	case isNumber(t.Kind()) && isNumber(rv.Kind()):
		out := rv.Convert(t)
		if !lossless(rv, out) {
			return reflect.Value{}, errors.New("E012")
		}
		return out, nil

	case t.Kind() == rv.Kind() && rv.Type().ConvertibleTo(t):
		return rv.Convert(t), nil
	}

	return reflect.Value{}, errors.New("E012")
}

// lossless reports whether out, a numeric conversion of in, holds exactly
// the value of in. in is not a float when out is an integer; coerce handles
// that case separately.
func lossless(in, out reflect.Value) bool {
	switch {
	case isInteger(out.Kind()):
		return out.Convert(in.Type()).Equal(in)

	case isInteger(in.Kind()):
		exact := new(big.Float)
		if isUnsigned(in.Kind()) {
			exact.SetUint64(in.Uint())
		} else {
			exact.SetInt64(in.Int())
		}
		var acc big.Accuracy
		if out.Kind() == reflect.Float32 {
			_, acc = exact.Float32()
		} else {
			_, acc = exact.Float64()
		}
		return acc == big.Exact

	case out.Kind() == reflect.Float32 && in.Kind() == reflect.Float64:
		f := in.Float()
		return math.IsNaN(f) || float64(float32(f)) == f
	}
	return true
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || isFloat(k)
}

func notMergeable(t reflect.Type) *errors.Error {
	return errors.New("E010").WithDetailf("cannot merge a partial into %s", t)
}
