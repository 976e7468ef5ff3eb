package id

import "github.com/google/uuid"

// UUIDGenerator generates random UUID v4 identifiers.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a UUID v4 generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate implements Generator.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// IsValidUUID checks if a string parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
