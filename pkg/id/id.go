// Package id provides unique identifier generation for requests and sessions.
package id

// Generator produces unique string identifiers.
type Generator interface {
	Generate() string
}

// NewGenerator creates a generator by type name.
//
// Supported types:
//   - "ulid": time-sortable 26-character IDs (default, recommended for
//     session and ingest identifiers)
//   - "uuid": random UUID v4
func NewGenerator(generatorType string) Generator {
	switch generatorType {
	case "uuid":
		return NewUUIDGenerator()
	default:
		return NewULIDGenerator()
	}
}
