package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDv7 genera un UUID v7 (ordenable por tiempo).
//
// Los registros de señales usan este id como clave interna, de modo que el
// orden lexicográfico coincide con el orden de creación.
//
// Example:
//
//	id := utils.GenerateUUIDv7()
//	// => "01933f5e-7b2c-7d4e-8a1f-3c2b1a0f9e8d"
func GenerateUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback a v4 si el reloj/entropía fallan
		return uuid.NewString()
	}
	return id.String()
}

// IsUUID indica si s es un UUID válido en forma canónica.
func IsUUID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
