// Package etcd proporciona un cliente para leer y sembrar variables de configuración en ETCD.
//
// Estructura de claves:
// El cliente sigue el patrón de ruta `/APP/ENV/VAR_KEY` donde:
//   - `APP`: Nombre de la aplicación
//   - `ENV`: Entorno (development, testing, production)
//   - `VAR_KEY`: Clave de la variable
//
// Ejemplo básico de uso:
//
//	client, err := etcd.New(
//		etcd.WithApp("signals"),
//		etcd.WithEnv("development"),
//		etcd.WithTimeout(5 * time.Second),
//	)
//	if err != nil {
//		log.Fatalf("Error creating etcd client: %v", err)
//	}
//	defer client.Close()
//
//	lot, _ := client.GetVarWithDefault(ctx, "trading/lot_size", "0.01")
//	enabled, _ := client.GetVarWithDefault(ctx, "trading/enabled", "false")
//
// Los endpoints se leen de ETCD_ENDPOINTS (lista separada por comas) y el
// entorno de ENV cuando no se pasan opciones explícitas.
package etcd
