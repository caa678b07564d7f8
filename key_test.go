package querysync

import (
	"errors"
	"testing"
)

func TestKeyIdentity(t *testing.T) {
	if got := K("user", 1).String(); got != "user,1" {
		t.Fatalf("identity=%q", got)
	}
	if !K("user", 1).Equal(K("user", "1")) {
		t.Fatalf("keys with equal string forms must be the same query")
	}
	if K("user", 1).Equal(K("user", 2)) {
		t.Fatalf("different parts must differ")
	}
}

func TestKeyWithDoesNotAlias(t *testing.T) {
	base := make(Key, 1, 4)
	base[0] = "todos"
	a := base.With("infinite")
	b := base.With("other")
	if a.String() != "todos,infinite" || b.String() != "todos,other" {
		t.Fatalf("a=%q b=%q", a, b)
	}
}

func TestKeyInvalid(t *testing.T) {
	for _, k := range []Key{nil, {}, {""}} {
		_, err := k.identity()
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %v: err=%v want ErrInvalidKey", k, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "key" {
			t.Fatalf("key %v: want *ValidationError on field key, got %v", k, err)
		}
	}
}
