package parser

import (
	"regexp"
	"strings"
)

var (
	prefilterAction = regexp.MustCompile(`\b(?:BUY|SELL|LONG|SHORT|CLOSE)\b`)
	prefilterParams = regexp.MustCompile(`\b(?:SL|TP)`)
	prefilterSymbol = regexp.MustCompile(`[A-Z0-9&_]{2,}`)
)

// IsSignalMessage filtro rápido previo al parseo completo.
//
// Acepta mensajes con acción y algo con forma de instrumento, o con SL/TP.
// Puede dar falsos positivos; nunca descarta una señal que Parse aceptaría.
func IsSignalMessage(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	normalized := Normalize(text)

	if prefilterParams.MatchString(normalized) {
		return true
	}
	if !prefilterAction.MatchString(normalized) {
		return false
	}

	// Toda acción es en sí misma un token con forma de símbolo; se exige otro.
	return len(prefilterSymbol.FindAllString(normalized, 2)) > 1
}
