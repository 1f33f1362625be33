package parser

import (
	"regexp"
	"sort"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

// number precio con separador de miles opcional y parte decimal opcional.
const number = `(\d[\d,]*(?:\.\d+)?)`

// trailingNumber como number pero con al menos dos dígitos, para no tomar
// cantidades sueltas ("BUY GOLD 2 LOTS") como precio.
const trailingNumber = `(\d[\d,]*\d(?:\.\d+)?|\d\.\d+)`

// sep separadores aceptados entre palabra clave y precio.
const sep = `[:\s–—-]`

// actionRule detecta una acción. Menor priority se evalúa primero.
type actionRule struct {
	name     string
	priority int
	re       *regexp.Regexp
	action   domain.Action
	optional bool // solo si el despliegue habilita CLOSE
}

// priceRule extrae un precio del grupo 1.
type priceRule struct {
	name     string
	priority int
	re       *regexp.Regexp
}

// markerRule indica presencia de una palabra clave.
type markerRule struct {
	name     string
	priority int
	re       *regexp.Regexp
}

// actionRules: Close > Buy > Sell, palabra completa.
var actionRules = []actionRule{
	{name: "close", priority: 0, re: regexp.MustCompile(`\bCLOSE\b`), action: domain.ActionClose, optional: true},
	{name: "buy", priority: 10, re: regexp.MustCompile(`\bBUY\b`), action: domain.ActionBuy},
	{name: "long", priority: 11, re: regexp.MustCompile(`\bLONG\b`), action: domain.ActionBuy},
	{name: "sell", priority: 20, re: regexp.MustCompile(`\bSELL\b`), action: domain.ActionSell},
	{name: "short", priority: 21, re: regexp.MustCompile(`\bSHORT\b`), action: domain.ActionSell},
}

// marketRules fuerzan MARKET aunque exista un precio de entrada.
var marketRules = []markerRule{
	{name: "market", priority: 0, re: regexp.MustCompile(`\bMARKET\b`)},
	{name: "now", priority: 1, re: regexp.MustCompile(`\bNOW\b`)},
	{name: "immediate", priority: 2, re: regexp.MustCompile(`\bIMMEDIATE(?:LY)?\b`)},
	{name: "asap", priority: 3, re: regexp.MustCompile(`\bASAP\b`)},
}

// limitRules indican una orden LIMIT cuando no hay marcador MARKET.
var limitRules = []markerRule{
	{name: "limit_keyword", priority: 0, re: regexp.MustCompile(`\bLIMIT\b`)},
	{name: "at_sign", priority: 1, re: regexp.MustCompile(`@\s*\d`)},
	{name: "at_word", priority: 2, re: regexp.MustCompile(`\bAT\s+\d`)},
	{name: "trailing_price", priority: 3, re: regexp.MustCompile(`\b(?:BUY|SELL|LONG|SHORT)\s+[A-Z][A-Z0-9_]*\s+` + trailingNumber + `(?:\s|,|$)`)},
}

// entryRules precio de entrada por prioridad.
var entryRules = []priceRule{
	{name: "at_sign", priority: 0, re: regexp.MustCompile(`@\s*` + number)},
	{name: "at_word", priority: 1, re: regexp.MustCompile(`\bAT\s+` + number)},
	{name: "limit_price", priority: 2, re: regexp.MustCompile(`\bLIMIT\s+` + number)},
	{name: "trailing_price", priority: 3, re: regexp.MustCompile(`\b(?:BUY|SELL|LONG|SHORT)\s+[A-Z][A-Z0-9_]*\s+` + trailingNumber + `(?:\s|,|$)`)},
	{name: "labelled", priority: 4, re: regexp.MustCompile(`\b(?:ENTRY|PRICE)[\s:]+` + number)},
}

// stopLossRules precio de stop-loss.
var stopLossRules = []priceRule{
	{name: "sl", priority: 0, re: regexp.MustCompile(`\bSL` + sep + `*` + number)},
}

// takeProfitRules: TP1 antes que TP sin numerar. El patrón sin numerar exige
// al menos un separador, así nunca consume TP1/TP2.
var takeProfitRules = []priceRule{
	{name: "tp1", priority: 0, re: regexp.MustCompile(`\bTP\s?1` + sep + `+` + number)},
	{name: "tp", priority: 1, re: regexp.MustCompile(`\bTP` + sep + `+` + number)},
}

func init() {
	sort.SliceStable(actionRules, func(i, j int) bool { return actionRules[i].priority < actionRules[j].priority })
	sortMarkers(marketRules)
	sortMarkers(limitRules)
	sortPrices(entryRules)
	sortPrices(stopLossRules)
	sortPrices(takeProfitRules)
}

func sortMarkers(rules []markerRule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].priority < rules[j].priority })
}

func sortPrices(rules []priceRule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].priority < rules[j].priority })
}
