package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies an entity type sharing the single table.
type Kind string

// The four entity kinds of the rental catalogue. The kind value doubles as
// the itemType attribute stored on every item.
const (
	KindDelegation Kind = "delegation"
	KindCar        Kind = "car"
	KindBooking    Kind = "booking"
	KindUser       Kind = "user"
)

// kindPrefixes is the statically declared key schema: one partition-key
// prefix per kind. Kinds not present here are rejected by the codec.
var kindPrefixes = map[Kind]string{
	KindDelegation: "DELEGATION",
	KindCar:        "CAR",
	KindBooking:    "BOOKING",
	KindUser:       "USER",
}

// prefixKinds is the reverse dispatch table used when decoding keys.
var prefixKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindPrefixes))
	for k, p := range kindPrefixes {
		m[p] = k
	}
	return m
}()

// keyDelimiter joins the kind prefix and the identifier in both key halves.
const keyDelimiter = "#"

// metadataPrefix is the sort-key prefix of an entity's metadata item.
const metadataPrefix = "METADATA"

// Valid reports whether k is one of the declared entity kinds.
func (k Kind) Valid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// Prefix returns the partition-key prefix for the kind (e.g. "CAR").
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

// Key is a composite primary key in the single table.
type Key struct {
	PK string
	SK string
}

// validate rejects keys with an empty half before any I/O happens.
func (k Key) validate() error {
	if k.PK == "" || k.SK == "" {
		return fmt.Errorf("%w: pk=%q sk=%q", ErrInvalidKey, k.PK, k.SK)
	}
	return nil
}

// Key derives the composite primary key for an entity of this kind.
// Derivation is deterministic: the same (kind, id) always yields the same
// key pair.
func (k Kind) Key(id string) (Key, error) {
	if !k.Valid() {
		return Key{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidKey, string(k))
	}
	if id == "" {
		return Key{}, ErrInvalidIdentifier
	}
	return Key{
		PK: kindPrefixes[k] + keyDelimiter + id,
		SK: metadataPrefix + keyDelimiter + id,
	}, nil
}

// DecodeKey recovers the entity kind and identifier from a partition key.
func DecodeKey(pk string) (Kind, string, error) {
	prefix, id, ok := strings.Cut(pk, keyDelimiter)
	if !ok || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, pk)
	}
	kind, ok := prefixKinds[prefix]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidKey, prefix)
	}
	return kind, id, nil
}

// NewID generates a fresh entity identifier: a 128-bit random token rendered
// as text. Collisions across the whole store are negligible.
func NewID() string {
	return uuid.NewString()
}
