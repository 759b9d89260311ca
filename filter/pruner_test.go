package filter_test

import (
	"regexp"
	"testing"

	"lula/filter"
	"lula/profile"
	"lula/property"

	"github.com/google/go-cmp/cmp"
)

func mustSpec(t *testing.T, raw map[string][]string) profile.PropertySpec {
	t.Helper()
	p, err := profile.NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v, want nil", err)
	}
	spec, err := profile.CompileSpec(p, raw)
	if err != nil {
		t.Fatalf("CompileSpec() error = %v, want nil", err)
	}
	return spec
}

func mustTree(t *testing.T, value map[string]any) property.Tree {
	t.Helper()
	tree, err := property.FromMap(value)
	if err != nil {
		t.Fatalf("FromMap() error = %v, want nil", err)
	}
	return tree
}

func TestWhitelistTestEmptyPatternsAllowAll(t *testing.T) {
	if !filter.WhitelistTest("anything", nil) {
		t.Errorf("WhitelistTest(anything, nil) = false, want true")
	}
	if !filter.WhitelistTest(8080, []*regexp.Regexp{}) {
		t.Errorf("WhitelistTest(8080, empty) = false, want true")
	}
}

func TestWhitelistTestMatchExcludes(t *testing.T) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`^(?:C:\\Windows)`),
		regexp.MustCompile(`^(?:C:\\Temp)`),
	}
	if filter.WhitelistTest(`C:\Windows\system32\cmd.exe`, patterns) {
		t.Errorf("WhitelistTest(C:\\Windows\\...) = true, want false")
	}
	if filter.WhitelistTest(`C:\Temp\drop.bin`, patterns) {
		t.Errorf("WhitelistTest(C:\\Temp\\...) = true, want false")
	}
	if !filter.WhitelistTest(`D:\Data\C:\Windows`, patterns) {
		t.Errorf("WhitelistTest must only match at the start of the value")
	}
}

func TestWhitelistTestStringifiesValue(t *testing.T) {
	patterns := []*regexp.Regexp{regexp.MustCompile("^(?:80)")}
	if filter.WhitelistTest(8080, patterns) {
		t.Errorf("WhitelistTest(8080) = true, want false")
	}
	if !filter.WhitelistTest(443, patterns) {
		t.Errorf("WhitelistTest(443) = false, want true")
	}
}

func TestPrunePropertiesTopLevelExactPath(t *testing.T) {
	spec := mustSpec(t, map[string][]string{"File_Name": {}})
	tree := mustTree(t, map[string]any{
		"File_Name": "evil.exe",
		"Comment":   "dropped by stage1",
	})

	pruned := filter.PruneProperties(tree, spec)
	want := mustTree(t, map[string]any{"File_Name": "evil.exe"})
	if diff := cmp.Diff(want, pruned); diff != "" {
		t.Errorf("PruneProperties() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrunePropertiesNestedSegmentsCompareAsSet(t *testing.T) {
	// declared segment order differs from the concrete location order
	spec := mustSpec(t, map[string][]string{"Hashes/Simple_Hash_Value/Hash": {}})
	tree := mustTree(t, map[string]any{
		"Hashes": map[string]any{
			"Hash": map[string]any{
				"Simple_Hash_Value": "d41d8cd98f00b204e9800998ecf8427e",
				"Type":              "MD5",
			},
		},
	})

	pruned := filter.PruneProperties(tree, spec)
	want := mustTree(t, map[string]any{
		"Hashes": map[string]any{
			"Hash": map[string]any{
				"Simple_Hash_Value": "d41d8cd98f00b204e9800998ecf8427e",
			},
		},
	})
	if diff := cmp.Diff(want, pruned); diff != "" {
		t.Errorf("PruneProperties() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrunePropertiesTrailingValueWrapper(t *testing.T) {
	spec := mustSpec(t, map[string][]string{"File_Path": {}})
	tree := mustTree(t, map[string]any{
		"File_Path": map[string]any{
			"value":           `C:\Users\victim\run.exe`,
			"fully_qualified": true,
		},
	})

	pruned := filter.PruneProperties(tree, spec)
	// the wrapper key survives, its sibling attribute does not
	want := mustTree(t, map[string]any{
		"File_Path": map[string]any{"value": `C:\Users\victim\run.exe`},
	})
	if diff := cmp.Diff(want, pruned); diff != "" {
		t.Errorf("PruneProperties() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrunePropertiesSequenceAllOrNothing(t *testing.T) {
	spec := mustSpec(t, map[string][]string{"Hashes/Simple_Hash_Value": {}})

	mixed := mustTree(t, map[string]any{
		"Hashes": []any{
			map[string]any{"Simple_Hash_Value": "aaa"},
			map[string]any{"Type": "MD5"},
		},
	})
	if pruned := filter.PruneProperties(mixed, spec); len(pruned) != 0 {
		t.Errorf("PruneProperties(mixed sequence) = %v, want empty: one empty element drops the sequence", pruned.Interface())
	}

	clean := mustTree(t, map[string]any{
		"Hashes": []any{
			map[string]any{"Simple_Hash_Value": "aaa"},
			map[string]any{"Simple_Hash_Value": "bbb", "Type": "MD5"},
		},
	})
	pruned := filter.PruneProperties(clean, spec)
	node, ok := pruned["Hashes"]
	if !ok {
		t.Fatalf("PruneProperties(clean sequence) dropped Hashes, want kept")
	}
	if len(node.Items) != 2 {
		t.Fatalf("len(Hashes items) = %d, want 2", len(node.Items))
	}
	if _, ok := node.Items[1]["Type"]; ok {
		t.Errorf("sequence element kept a disallowed key")
	}
}

func TestPrunePropertiesIdempotent(t *testing.T) {
	spec := mustSpec(t, map[string][]string{
		"File_Name":                     {},
		"Hashes/Hash/Simple_Hash_Value": {},
	})
	tree := mustTree(t, map[string]any{
		"File_Name": "evil.exe",
		"Size":      1024,
		"Hashes": []any{
			map[string]any{"Hash": map[string]any{"Simple_Hash_Value": "aaa", "Type": "MD5"}},
		},
	})

	once := filter.PruneProperties(tree, spec)
	twice := filter.PruneProperties(once, spec)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("pruning its own output changed the tree (-once +twice):\n%s", diff)
	}
}

func TestPrunePropertiesNeverInventsKeys(t *testing.T) {
	spec := mustSpec(t, map[string][]string{
		"File_Name":            {},
		"Ghost":                {},
		"Device/Serial_Number": {},
	})
	tree := mustTree(t, map[string]any{"File_Name": "evil.exe"})

	pruned := filter.PruneProperties(tree, spec)

	inputPaths := make(map[string]bool)
	for _, leaf := range property.Flatten(tree) {
		inputPaths[leaf.Path] = true
	}
	leaves := property.Flatten(pruned)
	for _, leaf := range leaves {
		if !inputPaths[leaf.Path] {
			t.Errorf("pruned tree invented leaf [%s]", leaf.Path)
		}
	}
	if len(leaves) != 1 {
		t.Errorf("len(pruned leaves) = %d, want 1", len(leaves))
	}
}

func TestPrunePropertiesDoesNotMutateInput(t *testing.T) {
	build := func() property.Tree {
		return mustTree(t, map[string]any{
			"File_Name": "evil.exe",
			"Hashes":    []any{map[string]any{"Simple_Hash_Value": "aaa", "Type": "MD5"}},
		})
	}
	tree := build()
	filter.PruneProperties(tree, mustSpec(t, map[string][]string{"File_Name": {}}))
	if diff := cmp.Diff(build(), tree); diff != "" {
		t.Errorf("PruneProperties mutated its input (-fresh +after):\n%s", diff)
	}
}

func TestPrunePropertiesExcludedLeafDropsBranch(t *testing.T) {
	spec := mustSpec(t, map[string][]string{
		"File_Path/value": {`C:\\Windows`},
	})
	benign := mustTree(t, map[string]any{
		"File_Path": map[string]any{"value": `C:\Windows\system32\drivers\etc\hosts`},
	})
	if pruned := filter.PruneProperties(benign, spec); len(pruned) != 0 {
		t.Errorf("PruneProperties(whitelisted value) = %v, want empty", pruned.Interface())
	}

	suspect := mustTree(t, map[string]any{
		"File_Path": map[string]any{"value": `C:\Users\victim\mal.dll`},
	})
	if pruned := filter.PruneProperties(suspect, spec); len(pruned) != 1 {
		t.Errorf("PruneProperties(value outside whitelist) = %v, want kept", pruned.Interface())
	}
}
