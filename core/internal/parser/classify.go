package parser

import (
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

// Classify arma la señal tipada a partir de los campos extraídos.
//
// Es una función pura. Retorna error cuando la señal viola un invariante
// (LIMIT sin precio, geometría SL/entry/TP inválida); en ese caso el mensaje
// se descarta completo.
func Classify(f Fields) (*domain.ParsedSignal, error) {
	orderType := f.OrderType
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}

	sig := &domain.ParsedSignal{
		Action:     f.Action,
		Symbol:     f.Symbol,
		OrderType:  orderType,
		StopLoss:   f.StopLoss,
		TakeProfit: f.TakeProfit,
	}

	switch orderType {
	case domain.OrderTypeLimit:
		if f.EntryPrice == nil {
			return nil, domain.NewError(domain.ErrMissingRequiredField, "limit order requires entry price")
		}
		sig.EntryPrice = f.EntryPrice
		if f.Action.IsTrade() {
			if err := domain.ValidateLimitGeometry(f.Action, *f.EntryPrice, f.StopLoss, f.TakeProfit); err != nil {
				return nil, err
			}
		}
	case domain.OrderTypeMarket:
		// precio de entrada solo aplica a LIMIT
	default:
		return nil, domain.NewError(domain.ErrInvalidOrderType, "unknown order type "+string(orderType))
	}

	sig.SignalType = domain.DeriveSignalType(sig.HasInstrument(), sig.HasRiskParams())
	return sig, nil
}
