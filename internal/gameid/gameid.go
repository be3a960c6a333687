// Package gameid mints the identifiers attached to game sessions. IDs are
// UUIDv7 values rendered as 26 lowercase Crockford base32 characters, so they
// sort by creation time and are safe to paste into chat.
package gameid

import (
	"encoding/base32"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// Generator mints IDs. A nil reader uses the uuid package's default source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading randomness from r.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a fresh ID from the default source.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a fresh ID.
func (g *Generator) Generate() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.rand != nil {
		id, err = uuid.NewV7FromReader(g.rand)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("gameid: failed to generate uuid: " + err.Error())
	}
	return encoding.EncodeToString(id[:])
}

// Parse decodes an ID back into its UUID.
func Parse(id string) (uuid.UUID, error) {
	if len(id) != 26 {
		return uuid.Nil, fmt.Errorf("game ID must be exactly 26 characters, got %d", len(id))
	}
	raw, err := encoding.DecodeString(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid game ID %q: %w", id, err)
	}
	return uuid.FromBytes(raw)
}

// Validate checks that id is a well-formed game ID.
func Validate(id string) error {
	_, err := Parse(id)
	return err
}
