package domain

import (
	"errors"
	"fmt"
)

// ErrorCode representa un código de error del dominio de trading.
type ErrorCode string

// Códigos de error estándar
const (
	// ErrNoError indica éxito (sin error)
	ErrNoError ErrorCode = "NO_ERROR"

	// Errores de validación
	ErrInvalidPrice         ErrorCode = "INVALID_PRICE"
	ErrInvalidStops         ErrorCode = "INVALID_STOPS"
	ErrInvalidVolume        ErrorCode = "INVALID_VOLUME"
	ErrInvalidSymbol        ErrorCode = "INVALID_SYMBOL"
	ErrInvalidAction        ErrorCode = "INVALID_ACTION"
	ErrInvalidOrderType     ErrorCode = "INVALID_ORDER_TYPE"
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"

	// Errores de broker
	ErrTradeDisabled ErrorCode = "TRADE_DISABLED"
	ErrBrokerOffline ErrorCode = "BROKER_OFFLINE"
	ErrBrokerReject  ErrorCode = "BROKER_REJECT"
	ErrTimeout       ErrorCode = "TIMEOUT"

	// Errores de sistema
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrStateConflict ErrorCode = "STATE_CONFLICT"
	ErrQueueFull     ErrorCode = "QUEUE_FULL"
	ErrStorage       ErrorCode = "STORAGE"
)

// TradingError representa un error del dominio de trading con contexto.
type TradingError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implementa la interfaz error.
func (e *TradingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implementa la interfaz errors.Unwrap.
func (e *TradingError) Unwrap() error {
	return e.Wrapped
}

// WithDetail agrega un detalle al error.
func (e *TradingError) WithDetail(key string, value interface{}) *TradingError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError crea un nuevo TradingError.
//
// Example:
//
//	err := domain.NewError(domain.ErrInvalidStops, "buy limit requires SL < entry")
func NewError(code ErrorCode, message string) *TradingError {
	return &TradingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError envuelve un error existente con contexto de trading.
//
// Example:
//
//	err := domain.WrapError(domain.ErrBrokerReject, "order_send failed", originalErr)
func WrapError(code ErrorCode, message string, wrapped error) *TradingError {
	return &TradingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: wrapped,
	}
}

// CodeOf extrae el ErrorCode de la cadena de errores; ErrUnknown si no hay TradingError.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrNoError
	}
	var te *TradingError
	if errors.As(err, &te) {
		return te.Code
	}
	return ErrUnknown
}

// IsCode indica si algún TradingError de la cadena tiene el código dado.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
