package merge

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/vstore/internal/errors"
)

type counter struct {
	Count int    `json:"count"`
	Name  string `json:"name,omitempty"`
	Tags  []string
	Skip  string `json:"-"`
	local int
}

type level string

func TestApplyStruct(t *testing.T) {
	base := counter{Count: 0, Name: "x", local: 7}

	got, err := Apply(base, map[string]any{"Count": 1})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Count != 1 || got.Name != "x" {
		t.Errorf("Apply() = %+v, want Count=1 Name=x", got)
	}
	if got.local != 7 {
		t.Errorf("unexported field lost: local = %d", got.local)
	}
	if base.Count != 0 {
		t.Error("Apply() must not modify the input state")
	}
}

func TestApplyStructJSONNames(t *testing.T) {
	got, err := Apply(counter{}, map[string]any{"count": 3, "name": "y"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Count != 3 || got.Name != "y" {
		t.Errorf("Apply() = %+v", got)
	}

	if _, err := Apply(counter{}, map[string]any{"-": "x"}); errors.Code(err) != "E011" {
		t.Errorf("json:\"-\" should not be addressable, err = %v", err)
	}
	if _, err := Apply(counter{}, map[string]any{"local": 1}); errors.Code(err) != "E011" {
		t.Errorf("unexported fields should not be addressable, err = %v", err)
	}
}

func TestApplyPointerState(t *testing.T) {
	base := &counter{Count: 1, Name: "x"}

	got, err := Apply(base, map[string]any{"Name": "z"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got == base {
		t.Error("Apply() should return a fresh pointer")
	}
	if got.Name != "z" || got.Count != 1 {
		t.Errorf("Apply() = %+v", got)
	}
	if base.Name != "x" {
		t.Error("Apply() must not modify the previous pointee")
	}

	if _, err := Apply((*counter)(nil), map[string]any{"Name": "z"}); errors.Code(err) != "E010" {
		t.Errorf("nil pointer state: err = %v, want E010", err)
	}
}

func TestApplyMap(t *testing.T) {
	base := map[string]any{"count": 0, "name": "x"}

	got, err := Apply(base, map[string]any{"count": 1})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := map[string]any{"count": 1, "name": "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
	if base["count"] != 0 {
		t.Error("Apply() must not modify the input map")
	}
	if reflect.ValueOf(got).UnsafePointer() == reflect.ValueOf(base).UnsafePointer() {
		t.Error("Apply() should return a fresh map")
	}
}

func TestApplyTypedMap(t *testing.T) {
	got, err := Apply(map[level]int{"a": 1}, map[string]any{"b": 2.0})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got["a"] != 1 || got["b"] != 2 {
		t.Errorf("Apply() = %v", got)
	}

	if _, err := Apply(map[string]int{}, map[string]any{"a": "nope"}); errors.Code(err) != "E012" {
		t.Errorf("err = %v, want E012", err)
	}
}

func TestApplyInterfaceState(t *testing.T) {
	var state any = map[string]any{"a": 1}

	got, err := Apply(state, map[string]any{"b": 2})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	m := got.(map[string]any)
	if m["a"] != 1 || m["b"] != 2 {
		t.Errorf("Apply() = %v", m)
	}

	if _, err := Apply[any](42, map[string]any{"b": 2}); errors.Code(err) != "E010" {
		t.Errorf("err = %v, want E010", err)
	}
}

func TestApplyNotMergeable(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"int", func() error { _, err := Apply(1, map[string]any{"a": 1}); return err }},
		{"slice", func() error { _, err := Apply([]int{1}, map[string]any{"a": 1}); return err }},
		{"int-keyed map", func() error { _, err := Apply(map[int]int{}, map[string]any{"a": 1}); return err }},
		{"pointer to int", func() error { n := 1; _, err := Apply(&n, map[string]any{"a": 1}); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); errors.Code(err) != "E010" {
				t.Errorf("err = %v, want E010", err)
			}
		})
	}
}

func TestApplyErrorsLeaveStateUntouched(t *testing.T) {
	base := counter{Count: 5, Name: "x"}

	tests := []struct {
		name    string
		partial map[string]any
		code    string
	}{
		{"unknown field", map[string]any{"Nope": 1}, "E011"},
		// Count sorts before Name and is valid; Name fails afterwards.
		{"later key fails", map[string]any{"Count": 9, "Name": 5}, "E012"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(base, tt.partial)
			if errors.Code(err) != tt.code {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if got.Count != 5 || got.Name != "x" {
				t.Errorf("Apply() returned a half-merged state: %+v", got)
			}
		})
	}

	ptr := &counter{Count: 5}
	got, err := Apply(ptr, map[string]any{"Count": 9, "Name": 5})
	if err == nil || got != ptr || ptr.Count != 5 {
		t.Errorf("Apply(pointer) = %+v, %v; want the original pointer untouched", got, err)
	}
}

func TestApplyFieldNamedTwice(t *testing.T) {
	for i := 0; i < 50; i++ {
		got, err := Apply(counter{}, map[string]any{"count": 1, "Count": 2})
		if errors.Code(err) != "E011" {
			t.Fatalf("err = %v, want E011", err)
		}
		detail := err.(*errors.Error).Detail
		if !strings.Contains(detail, `"Count"`) || !strings.Contains(detail, `"count"`) {
			t.Errorf("detail %q should name both keys", detail)
		}
		if got.Count != 0 {
			t.Fatalf("Apply() = %+v, want the input state", got)
		}
	}

	// The same field once, under either name, is fine.
	if _, err := Apply(counter{}, map[string]any{"count": 1, "Name": "n"}); err != nil {
		t.Errorf("Apply() error = %v", err)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		target  reflect.Type
		raw     any
		want    any
		wantErr bool
	}{
		{"assignable", reflect.TypeOf(""), "x", "x", false},
		{"nil to zero", reflect.TypeOf(0), nil, 0, false},
		{"nil slice", reflect.TypeOf([]string{}), nil, []string(nil), false},
		{"whole float to int", reflect.TypeOf(0), 3.0, 3, false},
		{"fractional float to int", reflect.TypeOf(0), 3.5, nil, true},
		{"int to float", reflect.TypeOf(0.0), 2, 2.0, false},
		{"int beyond float64 precision", reflect.TypeOf(0.0), int64(1<<53 + 1), nil, true},
		{"int at float64 precision", reflect.TypeOf(0.0), int64(1 << 53), float64(1 << 53), false},
		{"uint beyond float32 precision", reflect.TypeOf(float32(0)), uint32(1<<24 + 1), nil, true},
		{"float64 to float32 lossy", reflect.TypeOf(float32(0)), 0.1, nil, true},
		{"float64 to float32 exact", reflect.TypeOf(float32(0)), 0.5, float32(0.5), false},
		{"float64 overflows float32", reflect.TypeOf(float32(0)), 1e300, nil, true},
		{"float32 to float64", reflect.TypeOf(0.0), float32(0.1), float64(float32(0.1)), false},
		{"int overflow", reflect.TypeOf(int8(0)), 300, nil, true},
		{"float overflow", reflect.TypeOf(int8(0)), 300.0, nil, true},
		{"named string", reflect.TypeOf(level("")), "debug", level("debug"), false},
		{"int to string rejected", reflect.TypeOf(""), 65, nil, true},
		{"interface target", reflect.TypeOf((*any)(nil)).Elem(), 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.target, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got.Interface(), tt.want) {
				t.Errorf("coerce() = %#v, want %#v", got.Interface(), tt.want)
			}
		})
	}
}

func TestFieldType(t *testing.T) {
	tests := []struct {
		name   string
		state  reflect.Type
		field  string
		want   reflect.Type
		wantOK bool
	}{
		{"struct by name", reflect.TypeOf(counter{}), "Tags", reflect.TypeOf([]string{}), true},
		{"struct by tag", reflect.TypeOf(counter{}), "count", reflect.TypeOf(0), true},
		{"pointer state", reflect.TypeOf(&counter{}), "Name", reflect.TypeOf(""), true},
		{"unknown", reflect.TypeOf(counter{}), "nope", nil, false},
		{"map state", reflect.TypeOf(map[string]float64{}), "anything", reflect.TypeOf(0.0), true},
		{"scalar state", reflect.TypeOf(0), "x", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FieldType(tt.state, tt.field)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FieldType() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
