package filter

import (
	"lula/bundle"
	"lula/profile"
	"lula/property"
)

// RequiredPropertyCheck reports whether an object carries every property its
// schema requires and, when the schema defines a mutually exclusive group,
// exactly one of the group's alternatives.
func RequiredPropertyCheck(obj *bundle.Object, schema *profile.ObjectSchema) bool {
	found := true

	prunedRequired := PruneProperties(obj.Properties, schema.Required)
	// exactly one surviving leaf per required path: fewer means a missing
	// requirement, more means the schema and the data disagree
	if len(property.Flatten(prunedRequired)) != len(schema.Required) {
		found = false
	}

	if found && len(schema.MutuallyExclusive) > 0 {
		prunedMutex := PruneProperties(obj.Properties, schema.MutuallyExclusive)
		// exactly one alternative of the group may be supplied
		if len(property.Flatten(prunedMutex)) != 1 {
			found = false
		}
	}
	return found
}
