// Package id generates short correlation IDs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the IDs the engine hands out.
const (
	PrefixRun     = "run"
	PrefixRequest = "req"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	size     = 12
)

// Generate creates a prefixed ID: prefix-xxxxxxxxxxxx.
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Run returns an aggregation run ID for log correlation.
// It never fails; a placeholder is returned if entropy is unavailable.
func Run() string {
	id, err := Generate(PrefixRun)
	if err != nil {
		return PrefixRun + "-unknown"
	}
	return id
}
