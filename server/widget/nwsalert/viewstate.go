package nwsalert

// ViewState tracks which alerts the user expanded or collapsed, relative to
// the configured default. An ID is never in both sets.
type ViewState struct {
	defaultExpanded bool
	expanded        map[string]struct{}
	collapsed       map[string]struct{}
}

// NewViewState creates an empty view state
func NewViewState(defaultExpanded bool) *ViewState {
	return &ViewState{
		defaultExpanded: defaultExpanded,
		expanded:        make(map[string]struct{}),
		collapsed:       make(map[string]struct{}),
	}
}

// IsExpanded reports whether an alert renders expanded
func (v *ViewState) IsExpanded(alertID string) bool {
	if v.defaultExpanded {
		_, collapsed := v.collapsed[alertID]
		return !collapsed
	}
	_, expanded := v.expanded[alertID]
	return expanded
}

// Toggle flips an alert between expanded and collapsed. Unknown IDs are accepted.
func (v *ViewState) Toggle(alertID string) {
	set := v.expanded
	if v.defaultExpanded {
		set = v.collapsed
	}

	if _, ok := set[alertID]; ok {
		delete(set, alertID)
		return
	}
	set[alertID] = struct{}{}
}

// Reset forgets every toggle
func (v *ViewState) Reset() {
	v.expanded = make(map[string]struct{})
	v.collapsed = make(map[string]struct{})
}
