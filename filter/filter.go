package filter

import (
	"fmt"

	"lula/bundle"
	lerror "lula/error"
	"lula/profile"
	"lula/property"
)

// TypeTagKey is the marker key injected into every pruned tree so a
// replacement object still names the type it was observed as.
const TypeTagKey = "xsi:type"

// # IndicatorFilter
//
// runs the acceptance checks over observed-object entries and prunes the
// survivors down to the properties their schema allows.
//
// An entry survives when its object type is a supported object, its action
// history holds no contraindication, and its properties satisfy the schema's
// required set and mutually exclusive group. A surviving entry gets a fresh
// object carrying only the allowed properties plus the type tag marker.
//
// The filter holds one immutable profile snapshot and keeps no other state,
// so one instance is safe to share across workers evaluating distinct
// entries.
type IndicatorFilter interface {
	EvaluateEntry(entry *bundle.ObjectHistoryEntry) bool
	PruneObjects(entries []*bundle.ObjectHistoryEntry) []*bundle.ObjectHistoryEntry
}

type indicatorFilter struct {
	prof *profile.Profile
}

func NewIndicatorFilter(prof *profile.Profile) (IndicatorFilter, error) {
	if prof == nil {
		return nil, lerror.LulaFilterError{
			Code:   lerror.ErrNilProfile,
			Origin: fmt.Errorf("profile is nil"),
			Msg:    "error while Construct new indicatorFilter",
		}
	}

	nf := new(indicatorFilter)
	nf.prof = prof
	return nf, nil
}

// EvaluateEntry runs the acceptance checks on one entry. When the entry
// qualifies, its object is replaced with the pruned result and true is
// returned; a disqualified entry is left untouched. Disqualification is a
// normal outcome, not an error.
func (f *indicatorFilter) EvaluateEntry(entry *bundle.ObjectHistoryEntry) bool {
	if entry == nil || entry.Object == nil {
		return false
	}
	obj := entry.Object

	schema := f.prof.Schema(obj.TypeTag)
	if schema == nil {
		return false
	}
	if Contraindicated(entry, f.prof.Contraindicators, f.prof.Modifiers) {
		return false
	}
	if !RequiredPropertyCheck(obj, schema) {
		return false
	}

	pruned := PruneProperties(obj.Properties, schema.Full())
	pruned[TypeTagKey] = property.Scalar(obj.TypeTag)
	entry.Object = bundle.NewObject(obj.TypeTag, pruned)
	return true
}

// PruneObjects filters a batch of entries, preserving input order. Only
// entries passing every check appear in the result, each with its object
// replaced.
func (f *indicatorFilter) PruneObjects(entries []*bundle.ObjectHistoryEntry) []*bundle.ObjectHistoryEntry {
	final := make([]*bundle.ObjectHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if f.EvaluateEntry(entry) {
			final = append(final, entry)
		}
	}
	return final
}
