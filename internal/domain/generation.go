package domain

// SubtaskDescriptor is the normalized shape of one subtask proposal
// coming back from the external generation collaborator (or from the
// deterministic fallback catalogue).
//
// Descriptors carry content only; ids, sequence numbers and dependency
// wiring are assigned by the expansion advisor at commit time.
type SubtaskDescriptor struct {
	// Title is the proposed subtask title.
	Title string `json:"title" mapstructure:"title"`

	// Description elaborates on the proposed subtask.
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Priority is the proposed priority; defaults to the parent's
	// priority when empty or unrecognized.
	Priority string `json:"priority,omitempty" mapstructure:"priority"`

	// Effort is the proposed effort score; clamped into [1, 5].
	Effort int `json:"effort,omitempty" mapstructure:"effort"`

	// EstimatedHours is the proposed time estimate.
	EstimatedHours float64 `json:"estimated_hours,omitempty" mapstructure:"estimated_hours"`

	// Tags is an optional label set.
	Tags []string `json:"tags,omitempty" mapstructure:"tags"`
}
