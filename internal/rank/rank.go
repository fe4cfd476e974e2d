// Package rank generates fractional-indexing position keys.
//
// A position key is a string over a fixed base-62 alphabet whose plain
// lexicographic order is the list order. Between any two generated keys a new
// key can always be produced without touching neighboring rows, so reordering
// a list is always a single-row write.
package rank

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the digit set for position keys, ordered by ASCII code point.
// Lexicographic comparison of keys built from this alphabet matches the
// comparison Postgres performs on the position column under the C collation.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = len(Alphabet)

// ErrInvalidRange is returned when prev sorts at or after next, which means
// the caller resolved its anchors incorrectly.
var ErrInvalidRange = errors.New("rank: prev must sort strictly before next")

// Between returns a key that sorts strictly between prev and next.
//
// The empty string is a sentinel on either side: an empty prev means "before
// everything" and an empty next means "after everything". Between("", "")
// yields the mid-range key used for the first item of a list.
//
// Generated keys never end in the alphabet's lowest digit, which guarantees
// that a strictly-between key exists for any pair of generated keys.
func Between(prev, next string) (string, error) {
	if prev != "" && next != "" && prev >= next {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidRange, prev, next)
	}
	if err := validate(prev); err != nil {
		return "", err
	}
	if err := validate(next); err != nil {
		return "", err
	}

	var out strings.Builder
	bounded := next != "" // once false, only prev constrains the result
	for i := 0; ; i++ {
		p := 0
		if i < len(prev) {
			p = strings.IndexByte(Alphabet, prev[i])
		}
		n := base
		if bounded {
			if i < len(next) {
				n = strings.IndexByte(Alphabet, next[i])
			} else {
				// next exhausted while the result still tracks it digit for
				// digit. No key fits below such a bound; it can only be a
				// hand-crafted key ending in the lowest digit, which this
				// package never emits.
				return "", fmt.Errorf("%w: no key sorts before %q here", ErrInvalidRange, next)
			}
		}

		if p+1 < n {
			// Room at this digit: emit the midpoint and stop. The midpoint
			// is at least 1, so keys never end in the lowest digit.
			out.WriteByte(Alphabet[(p+n)/2])
			return out.String(), nil
		}
		if n == p {
			// Shared digit, keep walking.
			out.WriteByte(Alphabet[p])
			continue
		}
		// Adjacent digits (n == p+1): take prev's digit and carve space out
		// of prev's remainder. Anything extending this prefix already sorts
		// below next, so the upper bound stops mattering.
		out.WriteByte(Alphabet[p])
		bounded = false
	}
}

// After returns a key sorting strictly after prev (append at tail).
func After(prev string) (string, error) {
	return Between(prev, "")
}

// Before returns a key sorting strictly before next (prepend at head).
func Before(next string) (string, error) {
	return Between("", next)
}

// Initial returns the mid-range key assigned to the first item of an empty
// list.
func Initial() string {
	k, _ := Between("", "")
	return k
}

// validate rejects keys containing bytes outside the alphabet. Keys only ever
// come from this package, so a violation indicates column corruption.
func validate(key string) error {
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(Alphabet, key[i]) < 0 {
			return fmt.Errorf("rank: key %q contains byte %q outside the alphabet", key, key[i])
		}
	}
	return nil
}
