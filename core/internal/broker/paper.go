// Package broker provee colaboradores de ejecución para el core.
//
// Paper simula un terminal en proceso: tickets incrementales, fills contra
// cotizaciones configuradas y posiciones en memoria. Se usa cuando no hay un
// bridge de terminal configurado y en tests.
package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry/semconv"
	"go.opentelemetry.io/otel/attribute"
)

// Quote cotización bid/ask de un símbolo.
type Quote struct {
	Bid float64
	Ask float64
}

type paperPosition struct {
	domain.Position
	stopLoss   *float64
	takeProfit *float64
}

// Paper implementa domain.ExecutionClient en memoria.
type Paper struct {
	mu        sync.RWMutex
	quotes    map[string]Quote
	positions map[int64]*paperPosition
	orders    []domain.ExecutionDirective

	nextTicket atomic.Int64
	ready      atomic.Bool
	telemetry  *telemetry.Client
}

// PaperOption configura Paper.
type PaperOption func(*Paper)

// WithQuote fija la cotización de un símbolo.
func WithQuote(symbol string, bid, ask float64) PaperOption {
	return func(p *Paper) { p.quotes[symbol] = Quote{Bid: bid, Ask: ask} }
}

// WithQuotes fija varias cotizaciones.
func WithQuotes(quotes map[string]Quote) PaperOption {
	return func(p *Paper) {
		for symbol, q := range quotes {
			p.quotes[symbol] = q
		}
	}
}

// WithStartTicket fija el primer ticket emitido.
func WithStartTicket(ticket int64) PaperOption {
	return func(p *Paper) { p.nextTicket.Store(ticket - 1) }
}

// WithPaperTelemetry inyecta el cliente de telemetría.
func WithPaperTelemetry(tel *telemetry.Client) PaperOption {
	return func(p *Paper) {
		if tel != nil {
			p.telemetry = tel
		}
	}
}

// NewPaper crea un broker simulado conectado.
func NewPaper(opts ...PaperOption) *Paper {
	p := &Paper{
		quotes:    make(map[string]Quote),
		positions: make(map[int64]*paperPosition),
		telemetry: telemetry.NewNoop("paper-broker"),
	}
	p.nextTicket.Store(1000)
	p.ready.Store(true)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetReady simula conexión/desconexión del terminal.
func (p *Paper) SetReady(ready bool) {
	p.ready.Store(ready)
}

// Ready implementa domain.ExecutionClient.
func (p *Paper) Ready() bool {
	return p.ready.Load()
}

// PlaceOrder abre una posición. MARKET llena a ask (BUY) o bid (SELL); LIMIT
// llena al precio de entrada.
func (p *Paper) PlaceOrder(ctx context.Context, d *domain.ExecutionDirective) (*domain.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.Ready() {
		return nil, domain.NewError(domain.ErrBrokerOffline, "paper terminal not connected")
	}
	if d == nil {
		return nil, domain.NewError(domain.ErrMissingRequiredField, "directive is nil")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var price float64
	switch d.OrderType {
	case domain.OrderTypeLimit:
		price = *d.EntryPrice
	default:
		q, ok := p.quotes[d.Symbol]
		if !ok {
			return nil, domain.NewError(domain.ErrBrokerReject, fmt.Sprintf("no tick for %s", d.Symbol))
		}
		price = q.Ask
		if d.Action == domain.ActionSell {
			price = q.Bid
		}
	}

	ticket := p.nextTicket.Add(1)
	p.positions[ticket] = &paperPosition{
		Position: domain.Position{
			Ticket:    ticket,
			Symbol:    d.Symbol,
			Action:    d.Action,
			Volume:    d.Volume,
			OpenPrice: price,
		},
		stopLoss:   d.StopLoss,
		takeProfit: d.TakeProfit,
	}
	p.orders = append(p.orders, *d)

	p.telemetry.Debug(ctx, "Paper order filled",
		semconv.Signal.Ticket.Int64(ticket),
		semconv.Signal.Symbol.String(d.Symbol),
		semconv.Signal.Action.String(d.Action.String()),
		attribute.Float64("fill_price", price),
	)
	return &domain.ExecutionResult{Ticket: ticket, FillPrice: price, Volume: d.Volume}, nil
}

// ModifyOrder ajusta SL/TP de una posición abierta. nil conserva el valor actual.
func (p *Paper) ModifyOrder(ctx context.Context, ticket int64, stopLoss, takeProfit *float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Ready() {
		return domain.NewError(domain.ErrBrokerOffline, "paper terminal not connected")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[ticket]
	if !ok {
		return domain.NewError(domain.ErrNotFound, fmt.Sprintf("position %d not found", ticket))
	}
	if stopLoss != nil {
		pos.stopLoss = stopLoss
	}
	if takeProfit != nil {
		pos.takeProfit = takeProfit
	}
	return nil
}

// Positions lista posiciones abiertas del símbolo ordenadas por ticket.
func (p *Paper) Positions(ctx context.Context, symbol string) ([]domain.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []domain.Position
	for _, pos := range p.positions {
		if pos.Symbol == symbol {
			out = append(out, pos.Position)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// ClosePosition cierra una posición por ticket.
func (p *Paper) ClosePosition(ctx context.Context, ticket int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.Ready() {
		return domain.NewError(domain.ErrBrokerOffline, "paper terminal not connected")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.positions[ticket]; !ok {
		return domain.NewError(domain.ErrNotFound, fmt.Sprintf("position %d not found", ticket))
	}
	delete(p.positions, ticket)
	return nil
}

// Stops retorna SL/TP actuales de una posición.
func (p *Paper) Stops(ticket int64) (stopLoss, takeProfit *float64, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[ticket]
	if !ok {
		return nil, nil, false
	}
	return pos.stopLoss, pos.takeProfit, true
}

// Orders retorna una copia de las directivas ejecutadas, en orden.
func (p *Paper) Orders() []domain.ExecutionDirective {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.ExecutionDirective(nil), p.orders...)
}
