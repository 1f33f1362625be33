// Package utils provee utilidades comunes compartidas por core y sdk.
//
// # Utilidades Incluidas
//
//   - UUID: generación de UUIDv7 ordenables por tiempo (google/uuid)
//   - Timestamp: helpers para timestamps Unix en ms y latencias
//   - JSON: formateo para la salida del CLI
//
// # Uso
//
//	id := utils.GenerateUUIDv7()
//
//	start := time.Now()
//	// ... operación ...
//	elapsed := utils.ElapsedMsSince(start)
package utils
