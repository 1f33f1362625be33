// Package symbols resuelve instrumentos mencionados en texto libre a
// símbolos canónicos del broker.
package symbols

import (
	"context"
	"regexp"
	"strings"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/metricbundle"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
)

const defaultMinPatternLength = 6

// candidatePattern forma de un código de instrumento, con sufijo amplificado opcional.
var candidatePattern = regexp.MustCompile(`\b([A-Z0-9]{2,10}(?:_X\d+)?)\b`)

var allDigits = regexp.MustCompile(`^\d+$`)

type compiledAlias struct {
	alias
	re *regexp.Regexp
}

// Resolution resultado detallado de una resolución.
type Resolution struct {
	Symbol string
	Token  string // término encontrado en el texto
	Source string // alias, cache, pattern
}

// Resolver mapea texto normalizado a un símbolo canónico.
//
// Pasos:
//  1. Alias: tabla ordenada, palabra completa, el primero presente gana
//  2. Patrón (solo si no hubo alias): primer candidato no vetado que esté en
//     caché, sea un código corto conocido o tenga el largo mínimo
//
// Las resoluciones por patrón se agregan al caché inyectado.
type Resolver struct {
	cache     Cache
	aliases   []compiledAlias
	known     map[string]struct{}
	stoplist  map[string]struct{}
	minLength int

	telemetry *telemetry.Client
	metrics   *metricbundle.SignalMetrics
}

// Option configura el Resolver.
type Option func(*Resolver)

// WithTelemetry inyecta el cliente de telemetría.
func WithTelemetry(tel *telemetry.Client) Option {
	return func(r *Resolver) {
		if tel != nil {
			r.telemetry = tel
		}
	}
}

// WithMetrics inyecta el bundle de métricas.
func WithMetrics(m *metricbundle.SignalMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithKnownSymbols agrega códigos cortos aceptados sin largo mínimo.
func WithKnownSymbols(symbols ...string) Option {
	return func(r *Resolver) {
		for _, s := range symbols {
			r.known[strings.ToUpper(s)] = struct{}{}
		}
	}
}

// WithStopwords agrega tokens vetados.
func WithStopwords(words ...string) Option {
	return func(r *Resolver) {
		for _, w := range words {
			r.stoplist[strings.ToUpper(w)] = struct{}{}
		}
	}
}

// WithMinLength cambia el largo mínimo del paso por patrón.
func WithMinLength(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minLength = n
		}
	}
}

// NewResolver crea un resolver sobre el caché indicado (nil ⇒ MemoryCache).
func NewResolver(cache Cache, opts ...Option) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}

	r := &Resolver{
		cache:     cache,
		aliases:   make([]compiledAlias, 0, len(aliasTable)),
		known:     make(map[string]struct{}, len(knownShortSymbols)),
		stoplist:  make(map[string]struct{}, len(stoplist)),
		minLength: defaultMinPatternLength,
		telemetry: telemetry.NewNoop("symbols"),
	}
	for _, a := range aliasTable {
		r.aliases = append(r.aliases, compiledAlias{
			alias: a,
			re:    regexp.MustCompile(`\b` + regexp.QuoteMeta(a.term) + `\b`),
		})
	}
	for s := range knownShortSymbols {
		r.known[s] = struct{}{}
	}
	for s := range stoplist {
		r.stoplist[s] = struct{}{}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve retorna el símbolo canónico presente en el texto normalizado.
func (r *Resolver) Resolve(ctx context.Context, text string) (string, bool) {
	res, ok := r.ResolveDetailed(ctx, text)
	return res.Symbol, ok
}

// ResolveDetailed igual que Resolve pero indica el origen de la resolución.
func (r *Resolver) ResolveDetailed(ctx context.Context, text string) (Resolution, bool) {
	upper := strings.ToUpper(text)

	if res, ok := r.resolveAlias(upper); ok {
		r.record(ctx, res)
		return res, true
	}

	if res, ok := r.resolvePattern(upper); ok {
		r.record(ctx, res)
		return res, true
	}

	r.metrics.RecordSymbolLookup(ctx, semconv.Signal.Outcome.String("miss"))
	return Resolution{}, false
}

func (r *Resolver) resolveAlias(text string) (Resolution, bool) {
	for _, a := range r.aliases {
		if a.re.MatchString(text) {
			return Resolution{Symbol: a.symbol, Token: a.term, Source: semconv.SourceAlias}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) resolvePattern(text string) (Resolution, bool) {
	for _, m := range candidatePattern.FindAllStringSubmatch(text, -1) {
		token := m[1]
		if _, vetoed := r.stoplist[token]; vetoed {
			continue
		}
		if allDigits.MatchString(token) {
			continue
		}

		symbol := canonicalSymbol(token)
		if r.cache.Contains(symbol) {
			return Resolution{Symbol: symbol, Token: token, Source: semconv.SourceCache}, true
		}

		_, known := r.known[token]
		if known || len(token) >= r.minLength {
			r.cache.Add(symbol)
			return Resolution{Symbol: symbol, Token: token, Source: semconv.SourcePattern}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) record(ctx context.Context, res Resolution) {
	r.telemetry.Debug(ctx, "Symbol resolved",
		semconv.Signal.Symbol.String(res.Symbol),
		semconv.Signal.RawSymbol.String(res.Token),
		semconv.Signal.Source.String(res.Source),
	)
	r.metrics.RecordSymbolLookup(ctx,
		semconv.Signal.Outcome.String("hit"),
		semconv.Signal.Source.String(res.Source),
	)
}

// canonicalSymbol restaura la convención del broker para el sufijo
// amplificado (US30_X10 → US30_x10).
func canonicalSymbol(token string) string {
	if i := strings.LastIndex(token, "_X"); i > 0 {
		return token[:i] + "_x" + token[i+2:]
	}
	return token
}
