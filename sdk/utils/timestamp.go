package utils

import (
	"time"
)

// ElapsedMsSince calcula los milisegundos transcurridos desde un time.Time dado.
//
// Example:
//
//	start := time.Now()
//	// ... llamada al broker ...
//	elapsed := utils.ElapsedMsSince(start)
func ElapsedMsSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
