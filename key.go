package querysync

import (
	"slices"

	"github.com/unkn0wn-root/querysync/internal/util"
)

// Key identifies a query. Two keys are the same query when their parts format
// to the same string, so K("user", 1) and K("user", "1") collide on purpose.
type Key []any

// K builds a Key from its parts.
func K(parts ...any) Key { return Key(parts) }

// String returns the key identity used for the cache, the registry and the
// in-flight tracker.
func (k Key) String() string { return util.JoinKey(k) }

// Equal compares identities, not parts.
func (k Key) Equal(o Key) bool { return k.String() == o.String() }

// With returns a new key with extra parts appended.
func (k Key) With(parts ...any) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func (k Key) identity() (string, error) {
	if len(k) == 0 {
		return "", invalid("key", "no parts", ErrInvalidKey)
	}
	id := k.String()
	if id == "" {
		return "", invalid("key", "empty identity", ErrInvalidKey)
	}
	return id, nil
}

func (k Key) clone() Key { return slices.Clone(k) }
