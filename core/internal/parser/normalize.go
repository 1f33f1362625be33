package parser

import (
	"regexp"
	"strings"
)

// replacement regla de reescritura aplicada en orden.
type replacement struct {
	name string
	re   *regexp.Regexp
	repl string
}

// pairRepairs pares escritos con espacio interno que se unen en un solo token.
// La lista es explícita: no se infieren pares nuevos.
var pairRepairs = []replacement{
	{"xau_usd", regexp.MustCompile(`\b(XAU)\s+(USD)\b`), "$1$2"},
	{"xag_usd", regexp.MustCompile(`\b(XAG)\s+(USD)\b`), "$1$2"},
	{"eur_usd", regexp.MustCompile(`\b(EUR)\s+(USD)\b`), "$1$2"},
	{"gbp_usd", regexp.MustCompile(`\b(GBP)\s+(USD)\b`), "$1$2"},
	{"usd_jpy", regexp.MustCompile(`\b(USD)\s+(JPY)\b`), "$1$2"},
	{"aud_usd", regexp.MustCompile(`\b(AUD)\s+(USD)\b`), "$1$2"},
	{"nzd_usd", regexp.MustCompile(`\b(NZD)\s+(USD)\b`), "$1$2"},
	{"usd_cad", regexp.MustCompile(`\b(USD)\s+(CAD)\b`), "$1$2"},
	{"usd_chf", regexp.MustCompile(`\b(USD)\s+(CHF)\b`), "$1$2"},
}

// keywordReplacements colapsa variantes de palabras clave a un token.
var keywordReplacements = []replacement{
	{"stop_loss", regexp.MustCompile(`STOP[\s-]*LOSS`), "SL"},
	{"take_profit", regexp.MustCompile(`TAKE[\s-]*PROFIT`), "TP"},
	{"target", regexp.MustCompile(`\bTARGET`), "TP"},
	{"gold_suffix", regexp.MustCompile(`\.\.\s*GOLD`), ""},
}

// Normalize canoniza el texto crudo: mayúsculas, pares con espacio reparados,
// variantes de SL/TP colapsadas. Nunca falla.
func Normalize(text string) string {
	out := strings.ToUpper(text)
	for _, r := range pairRepairs {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	for _, r := range keywordReplacements {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return out
}
