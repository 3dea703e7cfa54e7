package domain

// Document is a Markdown source together with its frontmatter, as handed
// over by a document loader.
type Document struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// ExecuteOptions controls how a pass seeds the session store.
type ExecuteOptions struct {
	// Prior replaces the store content before the pass.
	Prior map[string]Value `json:"prior,omitempty"`
	// Carry keeps the current store content instead of starting fresh.
	Carry bool `json:"carry,omitempty"`
	// Settings overrides runtime ceilings for this pass only
	// (max_state_size_bytes, execution_timeout_ms).
	Settings map[string]any `json:"settings,omitempty"`
}
