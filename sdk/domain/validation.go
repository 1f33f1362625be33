package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError representa un error de validación.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implementa la interfaz error.
func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s' with value '%v': %s", v.Field, v.Value, v.Message)
}

// NewValidationError crea un nuevo ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

var symbolFormat = regexp.MustCompile(`^[A-Z0-9._-]{2,15}$`)

// ValidateSymbolFormat valida el formato básico de un símbolo canónico.
//
// Formato esperado: 2-15 caracteres alfanuméricos, '.', '_' o '-'.
func ValidateSymbolFormat(symbol string) error {
	if symbol == "" {
		return NewError(ErrInvalidSymbol, "symbol cannot be empty")
	}
	if !symbolFormat.MatchString(strings.ToUpper(symbol)) {
		return NewError(ErrInvalidSymbol, fmt.Sprintf("invalid symbol format %q (expected: 2-15 alphanumeric chars)", symbol))
	}
	return nil
}

// ValidatePrice valida que un precio presente sea positivo. nil es válido.
func ValidatePrice(field string, price *float64) error {
	if price != nil && *price <= 0 {
		return NewError(ErrInvalidPrice, fmt.Sprintf("%s must be positive, got %g", field, *price)).
			WithDetail(field, *price)
	}
	return nil
}

// ValidateVolume valida el volumen configurado para una directiva.
func ValidateVolume(volume float64) error {
	if volume <= 0 {
		return NewError(ErrInvalidVolume, fmt.Sprintf("volume must be positive, got %g", volume))
	}
	if volume > 100 {
		return NewError(ErrInvalidVolume, fmt.Sprintf("volume %g exceeds maximum of 100 lots", volume))
	}
	return nil
}

// ValidateLimitGeometry valida la geometría SL/entry/TP de una orden LIMIT.
//
//   - BUY:  SL < entry < TP
//   - SELL: TP < entry < SL
//
// Cada cota se valida solo si está presente. Una violación es un rechazo duro.
func ValidateLimitGeometry(action Action, entry float64, stopLoss, takeProfit *float64) error {
	switch action {
	case ActionBuy:
		if stopLoss != nil && *stopLoss >= entry {
			return NewError(ErrInvalidStops, fmt.Sprintf("buy limit requires SL < entry (SL=%g, entry=%g)", *stopLoss, entry)).
				WithDetail("stop_loss", *stopLoss).
				WithDetail("entry_price", entry)
		}
		if takeProfit != nil && *takeProfit <= entry {
			return NewError(ErrInvalidStops, fmt.Sprintf("buy limit requires TP > entry (TP=%g, entry=%g)", *takeProfit, entry)).
				WithDetail("take_profit", *takeProfit).
				WithDetail("entry_price", entry)
		}
	case ActionSell:
		if stopLoss != nil && *stopLoss <= entry {
			return NewError(ErrInvalidStops, fmt.Sprintf("sell limit requires SL > entry (SL=%g, entry=%g)", *stopLoss, entry)).
				WithDetail("stop_loss", *stopLoss).
				WithDetail("entry_price", entry)
		}
		if takeProfit != nil && *takeProfit >= entry {
			return NewError(ErrInvalidStops, fmt.Sprintf("sell limit requires TP < entry (TP=%g, entry=%g)", *takeProfit, entry)).
				WithDetail("take_profit", *takeProfit).
				WithDetail("entry_price", entry)
		}
	default:
		return NewError(ErrInvalidAction, fmt.Sprintf("limit geometry undefined for action %s", action))
	}
	return nil
}
