// Package slug derives URL-safe identifiers from post titles and resolves
// collisions against already-stored slugs.
package slug

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxAttempts bounds the uniqueness loop. The database unique index is the
// real invariant; hitting this cap means something is pathologically wrong
// with the slug namespace and the caller gets a conflict.
const maxAttempts = 1000

// ErrAttemptsExhausted is returned when no unique suffix was found within
// maxAttempts probes.
var ErrAttemptsExhausted = errors.New("slug: uniqueness attempts exhausted")

// asciiFold strips combining marks after NFD decomposition, so "Crème
// Brûlée" folds to "Creme Brulee" before slugging.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate converts a title into a lower-kebab ASCII slug. Runs of
// non-alphanumeric characters collapse to a single hyphen and leading or
// trailing hyphens are trimmed. Empty and all-punctuation titles yield "";
// callers must treat that as a validation failure.
func Generate(title string) string {
	folded, _, err := transform.String(asciiFold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	b.Grow(len(folded))

	lastWasDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash && b.Len() > 0 {
				b.WriteByte('-')
				lastWasDash = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// ExistsFunc reports whether a slug is already taken. excludeID, when
// non-zero, ignores that post's own row so updates don't collide with
// themselves.
type ExistsFunc func(ctx context.Context, slug string, excludeID uint) (bool, error)

// ResolveUnique returns candidate if free, otherwise candidate-1,
// candidate-2, ... up to maxAttempts probes. It only reads; the write-time
// unique constraint still backstops concurrent racers.
func ResolveUnique(ctx context.Context, candidate string, exists ExistsFunc, excludeID uint) (string, error) {
	for i := 0; i <= maxAttempts; i++ {
		s := candidate
		if i > 0 {
			s = fmt.Sprintf("%s-%d", candidate, i)
		}
		taken, err := exists(ctx, s, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return s, nil
		}
	}
	return "", ErrAttemptsExhausted
}
