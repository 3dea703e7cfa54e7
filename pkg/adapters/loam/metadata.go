package loam

// DocumentMetadata is the frontmatter of a livemd document.
// Known keys are typed; everything else is kept in Extra.
type DocumentMetadata struct {
	ID    string   `json:"id,omitempty" mapstructure:"id,omitempty"`
	Title string   `json:"title,omitempty" mapstructure:"title,omitempty"`
	Tags  []string `json:"tags,omitempty" mapstructure:"tags,omitempty"`

	// Runtime ceilings for this document, see config.FromMap.
	MaxStateSizeBytes  int `json:"max_state_size_bytes,omitempty" mapstructure:"max_state_size_bytes,omitempty"`
	ExecutionTimeoutMS int `json:"execution_timeout_ms,omitempty" mapstructure:"execution_timeout_ms,omitempty"`

	Extra map[string]any `json:"-" mapstructure:",remain"`
}
