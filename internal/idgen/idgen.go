// Package idgen mints short URL-safe identifiers with nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Scheme describes one family of IDs: a fixed prefix followed by Length
// characters drawn from Alphabet.
type Scheme struct {
	Prefix   string
	Alphabet string
	Length   int
}

// View is the scheme for explorer view IDs, e.g. "av-x3Kp9QmZ2a".
var View = Scheme{Prefix: "av-", Alphabet: alphanumeric, Length: 10}

// New returns a fresh ID.
func (s Scheme) New() (string, error) {
	body, err := nanoid.Generate(s.Alphabet, s.Length)
	if err != nil {
		return "", fmt.Errorf("idgen %q: %w", s.Prefix, err)
	}
	return s.Prefix + body, nil
}

// Valid reports whether id could have come from s.
func (s Scheme) Valid(id string) bool {
	body, ok := strings.CutPrefix(id, s.Prefix)
	if !ok || len(body) != s.Length {
		return false
	}
	return strings.Trim(body, s.Alphabet) == ""
}

// Generate returns a new view ID.
func Generate() (string, error) { return View.New() }
