package collect

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// ResolveName finds the variable a possibly inexact name refers to. An
// exact match wins; otherwise a unique case-insensitive match, and failing
// that a unique case-insensitive prefix match.
func ResolveName(name string, names []string) (string, error) {
	if slices.Contains(names, name) {
		return name, nil
	}
	fold := cases.Fold()
	want := fold.String(name)

	var exact []string
	for _, n := range names {
		if fold.String(n) == want {
			exact = append(exact, n)
		}
	}
	switch len(exact) {
	case 1:
		return exact[0], nil
	case 0:
	default:
		return "", fmt.Errorf("%w: %q could be one of %s", ErrAmbiguous, name, strings.Join(exact, ", "))
	}

	width := len([]rune(name))
	var prefixed []string
	for _, n := range names {
		r := []rune(n)
		if len(r) > width {
			r = r[:width]
		}
		if fold.String(string(r)) == want {
			prefixed = append(prefixed, n)
		}
	}
	switch len(prefixed) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		return prefixed[0], nil
	}
	return "", fmt.Errorf("%w: %q could be one of %s", ErrAmbiguous, name, strings.Join(prefixed, ", "))
}
