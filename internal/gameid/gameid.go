// Package gameid generates sortable hand identifiers: a UUIDv7 rendered as a
// 26 character lowercase Crockford base32 string.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Generate returns a new hand id. IDs generated later sort after earlier
// ones because the UUIDv7 timestamp occupies the high bits.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("gameid: " + err.Error())
	}
	return Encode(id)
}

// Encode renders the 128 bits of id, left padded with two zero bits, as 26
// base32 characters.
func Encode(id uuid.UUID) string {
	var out [26]byte
	for i := range out {
		var v byte
		for b := 0; b < 5; b++ {
			v = v<<1 | bitAt(id, i*5+b-2)
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Parse decodes an id produced by Encode.
func Parse(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := Validate(s); err != nil {
		return id, err
	}
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(alphabet, s[i])
		for b := 0; b < 5; b++ {
			pos := i*5 + b - 2
			if pos < 0 {
				continue
			}
			if v&(1<<(4-b)) != 0 {
				id[pos/8] |= 1 << (7 - pos%8)
			}
		}
	}
	return id, nil
}

// Validate checks length, alphabet and that the padding bits are zero.
func Validate(s string) error {
	if len(s) != 26 {
		return fmt.Errorf("hand id must be exactly 26 characters, got %d", len(s))
	}
	if s[0] > '7' {
		return fmt.Errorf("hand id first character must be 0-7, got %c", s[0])
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
	}
	return nil
}

func bitAt(id uuid.UUID, pos int) byte {
	if pos < 0 {
		return 0
	}
	return (id[pos/8] >> (7 - pos%8)) & 1
}
