package filter

import (
	"strings"

	"lula/profile"
	"lula/property"
)

// PruneProperties filters a property tree down to the locations a spec
// allows. The result is always a fresh tree; the input is never mutated.
func PruneProperties(tree property.Tree, spec profile.PropertySpec) property.Tree {
	return pruneProperties(tree, spec, "")
}

func pruneProperties(tree property.Tree, spec profile.PropertySpec, parentPath string) property.Tree {
	pruned := make(property.Tree)

	for name, node := range tree {
		currentPath := name
		if parentPath != "" {
			currentPath = parentPath + "/" + name
		}

		switch node.Kind {
		case property.KindScalar:
			if parentPath == "" {
				// top-level scalars match only an exactly declared path
				pathSpec, ok := spec[name]
				if ok && WhitelistTest(node.Value, pathSpec.Exclude) {
					pruned[name] = node
				}
				continue
			}
			segments := profile.TrimValueSegment(strings.Split(currentPath, "/"))
			for _, pathSpec := range spec {
				if pathSpec.Root() != segments[0] {
					continue
				}
				// non-root segments compare as a set, not a sequence
				if !pathSpec.Encloses(segments[1:]) {
					continue
				}
				if WhitelistTest(node.Value, pathSpec.Exclude) {
					pruned[name] = node
				}
			}
		case property.KindMapping:
			subtree := pruneProperties(node.Children, spec, currentPath)
			if len(subtree) > 0 {
				pruned[name] = property.Mapping(subtree)
			}
		case property.KindSequence:
			items := make([]property.Tree, 0, len(node.Items))
			emptyItem := false
			for _, element := range node.Items {
				// every element of a sequence shares the sequence's path
				item := pruneProperties(element, spec, currentPath)
				if len(item) == 0 {
					emptyItem = true
					break
				}
				items = append(items, item)
			}
			// one empty element invalidates the whole sequence
			if len(items) > 0 && !emptyItem {
				pruned[name] = property.Sequence(items...)
			}
		}
	}
	return pruned
}
