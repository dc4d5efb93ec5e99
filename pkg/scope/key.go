package scope

// Key is a typed context key.
type Key[T any] struct {
	name string
}

// NewKey creates a new key. Keys compare by identity, so two keys with
// the same name are distinct.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// Name returns the key's name.
func (k *Key[T]) Name() string {
	return k.name
}

// Set stores v on the current Owner. It reports false when no Owner is
// active.
func (k *Key[T]) Set(v T) bool {
	o := Current()
	if o == nil {
		return false
	}
	o.SetValue(k, v)
	return true
}

// Lookup finds the value for k on the current Owner or its ancestors.
func (k *Key[T]) Lookup() (T, bool) {
	return k.LookupFrom(Current())
}

// LookupFrom finds the value for k starting at o.
func (k *Key[T]) LookupFrom(o *Owner) (T, bool) {
	var zero T
	if o == nil {
		return zero, false
	}
	val, ok := o.Value(k)
	if !ok {
		return zero, false
	}
	typed, ok := val.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
