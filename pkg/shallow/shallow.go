package shallow

import (
	"math"
	"reflect"
	"regexp"
	"time"
)

// Equaler is implemented by types that know how to compare themselves one
// level deep. Equal delegates to it once both values share a dynamic type.
type Equaler interface {
	ShallowEqual(other any) bool
}

// shape classifies a value for Equal's dispatch.
type shape uint8

const (
	shapeScalar shape = iota
	shapeSequence
	shapeKeyed
	shapeTemporal
	shapePattern
	shapeRecord
)

var (
	timeType   = reflect.TypeOf(time.Time{})
	regexpType = reflect.TypeOf((*regexp.Regexp)(nil))
)

// Identical reports whether a and b are the same value: equal scalars
// (including NaN against NaN) or the same reference.
func Identical(a, b any) bool {
	// Fast path for the scalar projections selectors usually return.
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && (av == bv || (math.IsNaN(av) && math.IsNaN(bv)))
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return identical(reflect.ValueOf(a), reflect.ValueOf(b))
}

func identical(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return sameFloat(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		ac, bc := a.Complex(), b.Complex()
		return sameFloat(real(ac), real(bc)) && sameFloat(imag(ac), imag(bc))
	case reflect.String:
		return a.String() == b.String()
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return a.Len() == b.Len() && a.UnsafePointer() == b.UnsafePointer()
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.UnsafePointer() == b.UnsafePointer()
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return identical(a.Elem(), b.Elem())
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

// Equal reports whether a and b are equal one level deep.
//
// Nil pointers and nil interfaces are only equal to themselves. Nil slices
// and nil maps are treated as empty collections. Values of different
// dynamic types are never equal.
func Equal(a, b any) bool {
	if Identical(a, b) {
		return true
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return false
	}
	if isNull(va) || isNull(vb) {
		return false
	}
	if va.Type() != vb.Type() {
		return false
	}

	if eq, ok := a.(Equaler); ok {
		return eq.ShallowEqual(b)
	}

	// Pointers to composites compare their pointees, the way two
	// references to aggregates are compared by content one level down.
	if va.Kind() == reflect.Pointer && va.Type() != regexpType && isComposite(va.Elem()) {
		va, vb = va.Elem(), vb.Elem()
	}

	switch classify(va) {
	case shapeSequence:
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !identical(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true

	case shapeTemporal:
		return va.Interface().(time.Time).Equal(vb.Interface().(time.Time))

	case shapePattern:
		return va.Interface().(*regexp.Regexp).String() == vb.Interface().(*regexp.Regexp).String()

	case shapeKeyed:
		if va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !identical(iter.Value(), other) {
				return false
			}
		}
		return true

	case shapeRecord:
		for i := 0; i < va.NumField(); i++ {
			if !identical(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true

	default:
		// Distinct scalars already failed the identity check.
		return false
	}
}

func classify(v reflect.Value) shape {
	switch v.Type() {
	case timeType:
		return shapeTemporal
	case regexpType:
		return shapePattern
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return shapeSequence
	case reflect.Map:
		return shapeKeyed
	case reflect.Struct:
		return shapeRecord
	default:
		return shapeScalar
	}
}

func isComposite(v reflect.Value) bool {
	return classify(v) != shapeScalar
}

// isNull reports whether v is the Go counterpart of an absent value.
func isNull(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Func returns Equal typed for use as a store equality function.
func Func[T any]() func(T, T) bool {
	return func(a, b T) bool {
		return Equal(a, b)
	}
}

// IdenticalFunc returns Identical typed for use as a store equality function.
func IdenticalFunc[T any]() func(T, T) bool {
	return func(a, b T) bool {
		return Identical(a, b)
	}
}
