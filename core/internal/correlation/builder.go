package correlation

import (
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

// BuildFromSignal arma la directiva para una señal con instrumento (Complete,
// o EntryOnly en modo inmediato).
func BuildFromSignal(sig *domain.ParsedSignal, volume float64) (*domain.ExecutionDirective, error) {
	if sig == nil {
		return nil, domain.NewError(domain.ErrMissingRequiredField, "signal is nil")
	}
	d := &domain.ExecutionDirective{
		Action:     sig.Action,
		Symbol:     sig.Symbol,
		OrderType:  sig.OrderType,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Volume:     volume,
	}
	if sig.OrderType == domain.OrderTypeLimit {
		d.EntryPrice = sig.EntryPrice
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// BuildFromEntry combina un PendingEntry con los SL/TP de la respuesta.
func BuildFromEntry(entry *domain.SignalRecord, reply *domain.ParsedSignal, volume float64) (*domain.ExecutionDirective, error) {
	if entry == nil || reply == nil {
		return nil, domain.NewError(domain.ErrMissingRequiredField, "entry and reply are required")
	}
	d := &domain.ExecutionDirective{
		RecordID:   entry.ID,
		Action:     entry.Action,
		Symbol:     entry.Symbol,
		OrderType:  entry.OrderType,
		StopLoss:   reply.StopLoss,
		TakeProfit: reply.TakeProfit,
		Volume:     volume,
	}
	if entry.OrderType == domain.OrderTypeLimit {
		d.EntryPrice = entry.EntryPrice
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
