package filter

import (
	"strings"

	"lula/bundle"
)

// Contraindicated reports whether any action in the entry's history
// disqualifies the object from becoming an indicator. An action name
// carrying a contraindicator term always disqualifies; a name carrying a
// modifier term disqualifies only when the object went into the action as
// input. Pairs with an empty name or association are skipped.
func Contraindicated(entry *bundle.ObjectHistoryEntry, contraindicators []string, modifiers []string) bool {
	for _, action := range entry.ActionContext() {
		if action.ActionName == "" || action.AssociationType == "" {
			continue
		}
		for _, term := range contraindicators {
			if strings.Contains(action.ActionName, term) {
				return true
			}
		}
		for _, term := range modifiers {
			if strings.Contains(action.ActionName, term) && action.AssociationType == bundle.AssociationInput {
				return true
			}
		}
	}
	return false
}
