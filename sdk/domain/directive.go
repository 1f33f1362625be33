package domain

import (
	"context"
	"fmt"
)

// ExecutionDirective orden normalizada entregada al colaborador de ejecución.
//
// Es el único contrato que cruza el límite del core hacia el broker.
type ExecutionDirective struct {
	RecordID    string    `json:"record_id"`
	Action      Action    `json:"action"`
	Symbol      string    `json:"symbol"`
	OrderType   OrderType `json:"order_type"`
	EntryPrice  *float64  `json:"entry_price,omitempty"` // Solo LIMIT
	StopLoss    *float64  `json:"stop_loss,omitempty"`
	TakeProfit  *float64  `json:"take_profit,omitempty"`
	Volume      float64   `json:"volume"`       // Desde configuración
	MagicNumber int64     `json:"magic_number"` // Desde configuración
	MaxSlippage int       `json:"max_slippage"` // Points, desde configuración
	Comment     string    `json:"comment,omitempty"`
}

// Validate verifica que la directiva sea ejecutable sin ambigüedad.
func (d *ExecutionDirective) Validate() error {
	if !d.Action.IsTrade() {
		return NewError(ErrInvalidAction, fmt.Sprintf("directive action must be BUY or SELL, got %s", d.Action))
	}
	if err := ValidateSymbolFormat(d.Symbol); err != nil {
		return err
	}
	if err := ValidateVolume(d.Volume); err != nil {
		return err
	}
	for _, p := range []struct {
		field string
		value *float64
	}{
		{"entry_price", d.EntryPrice},
		{"stop_loss", d.StopLoss},
		{"take_profit", d.TakeProfit},
	} {
		if err := ValidatePrice(p.field, p.value); err != nil {
			return err
		}
	}
	switch d.OrderType {
	case OrderTypeMarket:
		if d.EntryPrice != nil {
			return NewError(ErrInvalidPrice, "market directive cannot carry an entry price")
		}
	case OrderTypeLimit:
		if d.EntryPrice == nil {
			return NewError(ErrMissingRequiredField, "limit directive requires an entry price")
		}
		if err := ValidateLimitGeometry(d.Action, *d.EntryPrice, d.StopLoss, d.TakeProfit); err != nil {
			return err
		}
	default:
		return NewError(ErrInvalidOrderType, fmt.Sprintf("unknown order type %q", d.OrderType))
	}
	return nil
}

// ExecutionResult resultado de una orden colocada.
type ExecutionResult struct {
	Ticket    int64   `json:"ticket"`
	FillPrice float64 `json:"fill_price"`
	Volume    float64 `json:"volume"`
}

// Position posición abierta reportada por el broker.
type Position struct {
	Ticket    int64   `json:"ticket"`
	Symbol    string  `json:"symbol"`
	Action    Action  `json:"action"`
	Volume    float64 `json:"volume"`
	OpenPrice float64 `json:"open_price"`
}

// ExecutionClient contrato del colaborador de ejecución (broker-agnóstico).
//
// Todas las llamadas son bloqueantes; el core las ejecuta en un pool acotado.
type ExecutionClient interface {
	// PlaceOrder coloca la orden descrita por la directiva.
	PlaceOrder(ctx context.Context, directive *ExecutionDirective) (*ExecutionResult, error)

	// ModifyOrder ajusta SL/TP de una orden ya ejecutada. nil conserva el valor actual.
	ModifyOrder(ctx context.Context, ticket int64, stopLoss, takeProfit *float64) error

	// Positions lista posiciones abiertas del símbolo.
	Positions(ctx context.Context, symbol string) ([]Position, error)

	// ClosePosition cierra una posición por ticket.
	ClosePosition(ctx context.Context, ticket int64) error

	// Ready indica si el terminal está conectado.
	Ready() bool
}
