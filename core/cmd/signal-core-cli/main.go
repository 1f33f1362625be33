package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/parser"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/symbols"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/etcd"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "parse":
		runParse(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "comando desconocido: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `signal-core-cli - herramientas operativas para signal-core

Uso:
  signal-core-cli parse --text "<mensaje>" [--close] [--symbols XAUUSD,EURUSD]
  signal-core-cli stats [--timeout 10s]
  signal-core-cli config [--endpoints URL,...] seed [--force]
  signal-core-cli config [--endpoints URL,...] set <key> <value>
  signal-core-cli config [--endpoints URL,...] unset <key>

Comandos:
  parse         Parsea un mensaje sin persistir ni ejecutar nada.
  stats         Muestra el conteo de registros por estado.
  config seed   Carga los valores por defecto en etcd.
  config set    Escribe una variable en etcd.
  config unset  Elimina una variable de etcd.
`
	fmt.Fprintln(os.Stderr, usage)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	data, err := utils.MarshalJSONIndent(v)
	if err != nil {
		fail("error serializando resultado: %v", err)
	}
	fmt.Println(string(data))
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Texto del mensaje a parsear")
	closeEnabled := fs.Bool("close", false, "Reconocer señales CLOSE")
	known := fs.String("symbols", "", "Símbolos conocidos separados por coma")
	if err := fs.Parse(args); err != nil {
		fail("error parseando flags: %v", err)
	}
	if *text == "" {
		fs.Usage()
		fail("--text es requerido")
	}

	cache := symbols.NewMemoryCache(splitCSV(*known)...)
	p := parser.New(symbols.NewResolver(cache), parser.WithCloseEnabled(*closeEnabled))

	sig, err := p.Parse(context.Background(), *text)
	if err != nil {
		printJSON(map[string]any{"error": err.Error(), "code": domain.CodeOf(err)})
		os.Exit(2)
	}
	if sig == nil {
		fmt.Println("No se detectó señal")
		return
	}
	printJSON(sig)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout de la consulta")
	if err := fs.Parse(args); err != nil {
		fail("error parseando flags: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := internal.LoadConfig(ctx)
	if err != nil {
		fail("error cargando configuración: %v", err)
	}
	store, err := internal.OpenStore(ctx, cfg, nil)
	if err != nil {
		fail("error abriendo store: %v", err)
	}
	defer store.Close()

	stats, err := store.SignalRepository().Stats(ctx)
	if err != nil {
		fail("error consultando stats: %v", err)
	}

	fmt.Printf("total: %d\n", stats.Total)
	for _, status := range domain.AllEntryStatuses {
		fmt.Printf("  %-14s %d\n", status, stats.ByStatus[status])
	}
}

func runConfig(args []string) {
	global := flag.NewFlagSet("config", flag.ExitOnError)
	endpoints := global.String("endpoints", "", "Endpoints de etcd separados por coma (default: ETCD_ENDPOINTS)")
	if err := global.Parse(args); err != nil {
		fail("error parseando flags: %v", err)
	}
	args = global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	client, err := internal.NewEtcdClient(internal.Environment(), etcdOptions(*endpoints)...)
	if err != nil {
		fail("error conectando a etcd: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "seed":
		fs := flag.NewFlagSet("config seed", flag.ExitOnError)
		force := fs.Bool("force", false, "Sobrescribir valores existentes")
		if err := fs.Parse(args[1:]); err != nil {
			fail("error parseando flags: %v", err)
		}
		seedConfig(ctx, client, *force)
	case "set":
		if len(args) != 3 {
			fail("uso: config set <key> <value>")
		}
		if err := client.SetVar(ctx, args[1], args[2]); err != nil {
			fail("error escribiendo %s: %v", args[1], err)
		}
		fmt.Printf("%s%s = %s\n", client.NamespacePrefix(), args[1], args[2])
	case "unset":
		if len(args) != 2 {
			fail("uso: config unset <key>")
		}
		if err := client.DeleteVar(ctx, args[1]); err != nil {
			fail("error eliminando %s: %v", args[1], err)
		}
		fmt.Printf("%s%s eliminado\n", client.NamespacePrefix(), args[1])
	default:
		fmt.Fprintf(os.Stderr, "subcomando config desconocido: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

type varStore interface {
	GetVar(ctx context.Context, key string) (string, error)
	SetVars(ctx context.Context, vars map[string]string) error
}

func seedConfig(ctx context.Context, client varStore, force bool) {
	defaults := internal.DefaultConfigVars()
	pending := make(map[string]string, len(defaults))
	for key, value := range defaults {
		if !force {
			if _, err := client.GetVar(ctx, key); err == nil {
				continue
			}
		}
		pending[key] = value
	}

	if len(pending) == 0 {
		fmt.Println("Nada que sembrar, todas las claves existen")
		return
	}
	if err := client.SetVars(ctx, pending); err != nil {
		fail("error sembrando configuración: %v", err)
	}

	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %s = %q\n", key, pending[key])
	}
	fmt.Printf("%d claves sembradas\n", len(keys))
}

func etcdOptions(endpoints string) []etcd.Option {
	eps := etcd.SplitList(endpoints)
	if len(eps) == 0 {
		return nil
	}
	return []etcd.Option{etcd.WithEndpoints(eps...)}
}

func splitCSV(raw string) []string {
	out := etcd.SplitList(raw)
	for i, part := range out {
		out[i] = strings.ToUpper(part)
	}
	return out
}
