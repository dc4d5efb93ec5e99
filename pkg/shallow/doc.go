// Package shallow implements one-level-deep structural equality.
//
// Two comparison policies are provided:
//
//   - Identical reports reference/primitive identity. Scalars compare by
//     value (NaN is identical to NaN), slices, maps, pointers, funcs and
//     channels compare by reference, arrays and structs compare their
//     elements/fields by identity.
//   - Equal additionally looks one level inside composite values: two
//     slices with identical elements, two maps with identical entries or two
//     structs with identical fields are equal even when they are distinct
//     values. Anything nested deeper is only compared by reference.
//
// Equal is the usual equality function for selectors that project a small
// record or slice out of a larger state:
//
//	store.Subscribe(s, rerender, func(st State) []string {
//	    return st.Todos.Titles()
//	}, shallow.Func[[]string]())
//
// Types can take over comparison by implementing Equaler.
package shallow
