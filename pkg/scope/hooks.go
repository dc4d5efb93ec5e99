package scope

// hookSlots gives values created during render a stable position, so the
// Nth call in one render finds what the Nth call stored in the first.
type hookSlots struct {
	values []any
	next   int
}

// StartRender rewinds the slot cursor. The host calls it before every
// render of the owning component.
func (o *Owner) StartRender() {
	o.hooks.next = 0
}

// UseHookSlot advances the cursor and returns the value stored at that
// position, or nil when nothing has been stored there yet:
//
//	if v := owner.UseHookSlot(); v != nil {
//	    return v.(*thing)
//	}
//	t := &thing{}
//	owner.SetHookSlot(t)
func (o *Owner) UseHookSlot() any {
	h := &o.hooks
	idx := h.next
	h.next++
	if idx < len(h.values) {
		return h.values[idx]
	}
	return nil
}

// SetHookSlot stores value in the position last returned by UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	h := &o.hooks
	idx := h.next - 1
	if idx < 0 {
		idx = 0
	}
	for len(h.values) <= idx {
		h.values = append(h.values, nil)
	}
	h.values[idx] = value
}
