package types

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// TestScope filters the tests a runner invocation executes. The zero value
// is the unscoped filter ("run everything"). A scoped value holds an ordered
// list of selectors of the form `target`, `target:class` or
// `target:class/method`, where the class and method segments may end in a
// trailing wildcard. The same scope is applied to every device in a run.
type TestScope struct {
	selectors []string
}

var selectorRe = regexp.MustCompile(
	`^[A-Za-z0-9_.\-]+(:([A-Za-z0-9_.$]+\*?|\*)(/([A-Za-z0-9_]+\*?|\*))?)?$`)

// Unscoped returns the scope selecting all tests.
func Unscoped() TestScope {
	return TestScope{}
}

// ParseScope builds a scope from CLI arguments. Each argument may itself be
// a comma-joined list of selectors; all of them accumulate in order. No
// arguments yields the unscoped filter.
func ParseScope(args ...string) (TestScope, error) {
	scope := TestScope{}
	for _, arg := range args {
		for _, sel := range strings.Split(arg, ",") {
			sel = strings.TrimSpace(sel)
			if sel == "" {
				continue
			}
			if !selectorRe.MatchString(sel) {
				return TestScope{}, errors.Errorf("invalid test selector %q", sel)
			}
			scope.selectors = append(scope.selectors, sel)
		}
	}
	return scope, nil
}

// IsUnscoped reports whether the scope selects all tests.
func (s TestScope) IsUnscoped() bool {
	return len(s.selectors) == 0
}

// Selectors returns a copy of the selector list in accumulation order.
func (s TestScope) Selectors() []string {
	out := make([]string, len(s.selectors))
	copy(out, s.selectors)
	return out
}

// Expression renders the scope as the single comma-joined argument handed to
// the runner process. Empty for the unscoped filter.
func (s TestScope) Expression() string {
	return strings.Join(s.selectors, ",")
}

func (s TestScope) String() string {
	if s.IsUnscoped() {
		return "all tests"
	}
	return s.Expression()
}
