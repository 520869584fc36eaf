package nwsalert

import "github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"

// idSet is the set of alert IDs in one fetch result
type idSet map[string]struct{}

func newIDSet(alerts []widget.Alert) idSet {
	ids := make(idSet, len(alerts))
	for _, alert := range alerts {
		ids[alert.ID] = struct{}{}
	}
	return ids
}

// equal reports size-and-membership equality, ignoring order
func (s idSet) equal(other idSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// hasChanged decides whether a fetch result warrants a re-render and a
// trigger evaluation. Until the session has shown an alert list, every
// successful fetch counts as a change.
func hasChanged(shown bool, previous, current idSet) bool {
	return !shown || !current.equal(previous)
}
