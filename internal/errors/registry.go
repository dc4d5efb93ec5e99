package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Usage Errors (E001-E009)
	// ============================================

	"E001": {
		Category:   CategoryUsage,
		Message:    "Store read outside provider scope",
		Suggestion: "Render the component below a Provider for this store context",
	},

	// ============================================
	// State Errors (E010-E019)
	// ============================================

	"E010": {
		Category:   CategoryState,
		Message:    "State type does not support partial updates",
		Suggestion: "Use a struct or map[string]V state, or supply store.WithMerge",
	},
	"E011": {
		Category:   CategoryState,
		Message:    "Unknown field in partial update",
		Suggestion: "Check the partial's keys against the state's field names or json tags",
	},
	"E012": {
		Category: CategoryState,
		Message:  "Partial value has the wrong type for its field",
	},

	// ============================================
	// Render Errors (E020-E029)
	// ============================================

	"E020": {
		Category:   CategoryRender,
		Message:    "Snapshot changed between reads in one render pass",
		Suggestion: "Snapshot functions must return a cached value until the store changes",
	},
	"E021": {
		Category:   CategoryRender,
		Message:    "External store read outside component render",
		Suggestion: "Call ExternalStore only from a component's render function",
	},

	// ============================================
	// Config Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryConfig,
		Message:  "Failed to load configuration",
	},
	"E031": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// ============================================
	// Protocol Errors (E040-E049)
	// ============================================

	"E040": {
		Category: CategoryProtocol,
		Message:  "Malformed devtools request",
	},
	"E041": {
		Category:   CategoryProtocol,
		Message:    "Devtools server is read-only",
		Suggestion: "Set devtools.readOnly to false to accept state patches",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
