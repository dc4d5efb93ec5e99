// Package errors provides coded, actionable errors for vstore.
//
// Every error raised by the store, the render host, the configuration
// loader and the devtools server carries a stable code (e.g. "E001") that
// maps to a registered message and explanation. Usage errors such as
// reading a store outside of its provider are raised as panics carrying an
// *Error; everything else is returned.
//
// # Error Categories
//
//   - usage: programmer errors, surfaced loudly during development
//   - state: a partial update could not be merged into the state
//   - render: host render-loop consistency violations
//   - config: configuration loading and validation
//   - protocol: devtools HTTP/WebSocket requests
//
// # Usage
//
//	err := errors.New("E011").
//	    WithDetail(`field "Count" does not exist on main.State`).
//	    WithSuggestion("Check the partial's keys against the state struct")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E011: Unknown field in partial update
//	//
//	//   field "Count" does not exist on main.State
//	//
//	//   Hint: Check the partial's keys against the state struct
package errors
