// Package uuid provides ID generation helpers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID strings.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a random UUID string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return id.String(), nil
}

// NewSuffix returns a short unique fragment for slug disambiguation.
func (g Generator) NewSuffix() (string, error) {
	id, err := g.NewID()
	if err != nil {
		return "", err
	}
	return id[:8], nil
}
