package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

func marketBuy(symbol string) *domain.ExecutionDirective {
	return &domain.ExecutionDirective{
		Action:    domain.ActionBuy,
		Symbol:    symbol,
		OrderType: domain.OrderTypeMarket,
		Volume:    0.01,
	}
}

func TestPaper_PlaceMarketFillsAtQuote(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(WithQuote("XAUUSD", 4490.1, 4490.4), WithStartTicket(500))

	res, err := p.PlaceOrder(ctx, marketBuy("XAUUSD"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Ticket)
	assert.InDelta(t, 4490.4, res.FillPrice, 1e-9)

	sell := marketBuy("XAUUSD")
	sell.Action = domain.ActionSell
	res, err = p.PlaceOrder(ctx, sell)
	require.NoError(t, err)
	assert.Equal(t, int64(501), res.Ticket)
	assert.InDelta(t, 4490.1, res.FillPrice, 1e-9)

	assert.Len(t, p.Orders(), 2)
}

func TestPaper_PlaceLimitFillsAtEntry(t *testing.T) {
	p := NewPaper()
	d := &domain.ExecutionDirective{
		Action:     domain.ActionBuy,
		Symbol:     "EURUSD",
		OrderType:  domain.OrderTypeLimit,
		EntryPrice: domain.Float64(1.0850),
		StopLoss:   domain.Float64(1.0800),
		Volume:     0.1,
	}
	res, err := p.PlaceOrder(context.Background(), d)
	require.NoError(t, err)
	assert.InDelta(t, 1.0850, res.FillPrice, 1e-9)
	assert.InDelta(t, 0.1, res.Volume, 1e-9)
}

func TestPaper_Rejections(t *testing.T) {
	ctx := context.Background()
	p := NewPaper()

	_, err := p.PlaceOrder(ctx, marketBuy("GBPJPY"))
	assert.True(t, domain.IsCode(err, domain.ErrBrokerReject))

	_, err = p.PlaceOrder(ctx, nil)
	assert.True(t, domain.IsCode(err, domain.ErrMissingRequiredField))

	bad := marketBuy("GBPJPY")
	bad.Volume = 0
	_, err = p.PlaceOrder(ctx, bad)
	assert.True(t, domain.IsCode(err, domain.ErrInvalidVolume))

	p.SetReady(false)
	assert.False(t, p.Ready())
	_, err = p.PlaceOrder(ctx, marketBuy("GBPJPY"))
	assert.True(t, domain.IsCode(err, domain.ErrBrokerOffline))
}

func TestPaper_ModifyAndClose(t *testing.T) {
	ctx := context.Background()
	p := NewPaper(WithQuotes(map[string]Quote{"XAUUSD": {Bid: 4490, Ask: 4491}}))

	first, err := p.PlaceOrder(ctx, marketBuy("XAUUSD"))
	require.NoError(t, err)
	second, err := p.PlaceOrder(ctx, marketBuy("XAUUSD"))
	require.NoError(t, err)

	require.NoError(t, p.ModifyOrder(ctx, first.Ticket, domain.Float64(4473), nil))
	sl, tp, ok := p.Stops(first.Ticket)
	require.True(t, ok)
	assert.InDelta(t, 4473.0, *sl, 1e-9)
	assert.Nil(t, tp)

	err = p.ModifyOrder(ctx, 9999, domain.Float64(1), nil)
	assert.True(t, domain.IsCode(err, domain.ErrNotFound))

	positions, err := p.Positions(ctx, "XAUUSD")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, first.Ticket, positions[0].Ticket)

	require.NoError(t, p.ClosePosition(ctx, second.Ticket))
	assert.True(t, domain.IsCode(p.ClosePosition(ctx, second.Ticket), domain.ErrNotFound))

	positions, err = p.Positions(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.Len(t, positions, 1)

	none, err := p.Positions(ctx, "EURUSD")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPaper_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPaper(WithQuote("XAUUSD", 1, 2))
	_, err := p.PlaceOrder(ctx, marketBuy("XAUUSD"))
	assert.ErrorIs(t, err, context.Canceled)
}
