package property

import "sort"

// Leaf is one scalar reached by Flatten, keyed by its "/"-joined path.
type Leaf struct {
	Path  string
	Value any
}

// Flatten reduces a tree to its scalar leaves. Leaves are path-distinct:
// a later scalar on an already-seen path (sequence elements share their
// parent path) replaces the earlier value instead of adding a slot, so
// len(Flatten(t)) counts distinct leaf paths.
func Flatten(tree Tree) []Leaf {
	fl := flattener{index: make(map[string]int)}
	fl.walk(tree, "")
	return fl.leaves
}

type flattener struct {
	leaves []Leaf
	index  map[string]int
}

func (f *flattener) walk(tree Tree, parent string) {
	keys := make([]string, 0, len(tree))
	for key := range tree {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := tree[key]
		path := key
		if parent != "" {
			path = parent + "/" + key
		}
		switch node.Kind {
		case KindScalar:
			f.add(path, node.Value)
		case KindMapping:
			f.walk(node.Children, path)
		case KindSequence:
			for _, element := range node.Items {
				f.walk(element, path)
			}
		}
	}
}

func (f *flattener) add(path string, value any) {
	if at, ok := f.index[path]; ok {
		f.leaves[at].Value = value
		return
	}
	f.index[path] = len(f.leaves)
	f.leaves = append(f.leaves, Leaf{Path: path, Value: value})
}
