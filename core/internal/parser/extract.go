package parser

import (
	"strings"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/shopspring/decimal"
)

// Fields campos extraídos de un texto normalizado, antes de clasificar.
type Fields struct {
	Action     domain.Action
	Symbol     string
	OrderType  domain.OrderType
	EntryPrice *float64
	StopLoss   *float64
	TakeProfit *float64
}

// ExtractAction retorna la primera acción según la prioridad de la tabla.
func ExtractAction(text string, closeEnabled bool) domain.Action {
	for _, r := range actionRules {
		if r.optional && !closeEnabled {
			continue
		}
		if r.re.MatchString(text) {
			return r.action
		}
	}
	return domain.ActionUnknown
}

// HasMarketMarker indica si el texto fuerza ejecución a mercado.
func HasMarketMarker(text string) bool {
	return matchAny(marketRules, text)
}

// ExtractOrderType detecta MARKET o LIMIT (MARKET por defecto).
func ExtractOrderType(text string) domain.OrderType {
	if HasMarketMarker(text) {
		return domain.OrderTypeMarket
	}
	if matchAny(limitRules, text) {
		return domain.OrderTypeLimit
	}
	return domain.OrderTypeMarket
}

// ExtractEntryPrice retorna el precio de entrada, siempre float64.
func ExtractEntryPrice(text string) *float64 {
	return firstPrice(entryRules, text)
}

// ExtractStopLoss retorna el stop-loss.
func ExtractStopLoss(text string) *float64 {
	return firstPrice(stopLossRules, text)
}

// ExtractTakeProfit retorna el take-profit; con niveles numerados retorna TP1.
func ExtractTakeProfit(text string) *float64 {
	return firstPrice(takeProfitRules, text)
}

// ParsePrice convierte "4,232.37" → 4232.37.
func ParsePrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func matchAny(rules []markerRule, text string) bool {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return true
		}
	}
	return false
}

func firstPrice(rules []priceRule, text string) *float64 {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := ParsePrice(m[1])
		if err != nil {
			continue
		}
		return &v
	}
	return nil
}
