// Package domain provee modelos de dominio y contratos para el parser de señales.
package domain

import (
	"fmt"
	"strings"
)

// Action representa la dirección de una instrucción de trading.
type Action string

const (
	ActionUnknown Action = ""
	ActionBuy     Action = "BUY"   // BUY y LONG
	ActionSell    Action = "SELL"  // SELL y SHORT
	ActionClose   Action = "CLOSE" // Solo si el despliegue lo habilita
)

// String implementa fmt.Stringer.
func (a Action) String() string {
	if a == ActionUnknown {
		return "UNKNOWN"
	}
	return string(a)
}

// IsTrade indica si la acción abre una posición.
func (a Action) IsTrade() bool {
	return a == ActionBuy || a == ActionSell
}

// OrderType representa el tipo de orden.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// SignalType clasificación de completitud de una señal parseada.
//
// Es un enum cerrado: los consumidores deben cubrir los cuatro casos.
type SignalType int

const (
	SignalInvalid SignalType = iota
	SignalComplete
	SignalEntryOnly
	SignalParamsOnly
)

var signalTypeNames = map[SignalType]string{
	SignalInvalid:    "INVALID",
	SignalComplete:   "COMPLETE",
	SignalEntryOnly:  "ENTRY_ONLY",
	SignalParamsOnly: "PARAMS_ONLY",
}

// String implementa fmt.Stringer.
func (t SignalType) String() string {
	if name, ok := signalTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SignalType(%d)", int(t))
}

// MarshalText serializa el tipo como su nombre (JSON, logs).
func (t SignalType) MarshalText() ([]byte, error) {
	name, ok := signalTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown signal type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText parsea un nombre producido por MarshalText.
func (t *SignalType) UnmarshalText(text []byte) error {
	value := strings.ToUpper(strings.TrimSpace(string(text)))
	for k, name := range signalTypeNames {
		if name == value {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown signal type %q", value)
}

// DeriveSignalType aplica la regla de completitud:
//
//   - Complete: acción y símbolo, más SL o TP
//   - EntryOnly: acción y símbolo, sin SL ni TP
//   - ParamsOnly: SL o TP, sin acción+símbolo
//   - Invalid: ninguno
func DeriveSignalType(hasInstrument, hasRiskParams bool) SignalType {
	switch {
	case hasInstrument && hasRiskParams:
		return SignalComplete
	case hasInstrument:
		return SignalEntryOnly
	case hasRiskParams:
		return SignalParamsOnly
	default:
		return SignalInvalid
	}
}

// ParsedSignal es la salida canónica del parseo de un mensaje.
type ParsedSignal struct {
	Action     Action     `json:"action"`
	Symbol     string     `json:"symbol,omitempty"`
	OrderType  OrderType  `json:"order_type"`
	EntryPrice *float64   `json:"entry_price,omitempty"` // Solo LIMIT
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"` // TP1 si hay varios niveles
	SignalType SignalType `json:"signal_type"`
}

// HasInstrument indica si la señal trae acción y símbolo.
func (s *ParsedSignal) HasInstrument() bool {
	return s.Action != ActionUnknown && s.Symbol != ""
}

// HasRiskParams indica si la señal trae SL o TP.
func (s *ParsedSignal) HasRiskParams() bool {
	return s.StopLoss != nil || s.TakeProfit != nil
}

// HasBothRiskParams indica si la señal trae SL y TP.
func (s *ParsedSignal) HasBothRiskParams() bool {
	return s.StopLoss != nil && s.TakeProfit != nil
}

// String resumen legible para logs.
func (s *ParsedSignal) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", s.SignalType, s.Action, s.OrderType)
	if s.Symbol != "" {
		fmt.Fprintf(&b, " %s", s.Symbol)
	}
	if s.EntryPrice != nil {
		fmt.Fprintf(&b, " @%g", *s.EntryPrice)
	}
	if s.StopLoss != nil {
		fmt.Fprintf(&b, " SL=%g", *s.StopLoss)
	}
	if s.TakeProfit != nil {
		fmt.Fprintf(&b, " TP=%g", *s.TakeProfit)
	}
	return b.String()
}

// Float64 retorna un puntero al valor (helper para campos opcionales).
func Float64(v float64) *float64 {
	return &v
}

// Int64 retorna un puntero al valor.
func Int64(v int64) *int64 {
	return &v
}
