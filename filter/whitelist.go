package filter

import (
	"fmt"
	"regexp"
)

// WhitelistTest reports whether a scalar value is allowed by the exclusion
// patterns guarding its path. An empty pattern list permits everything; any
// pattern matching the stringified value excludes it. The inverted
// "whitelist" naming follows the profile vocabulary: the patterns name what
// must not become an indicator.
func WhitelistTest(value any, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	str := fmt.Sprintf("%v", value)
	for _, pattern := range patterns {
		if pattern.MatchString(str) {
			return false
		}
	}
	return true
}
