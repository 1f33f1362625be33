package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/broker"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/correlation"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/execution"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/repository"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testChat = "-1001"

type executed struct {
	job     *execution.Job
	outcome *domain.EntryOutcome
}

type harness struct {
	core  *Core
	store *repository.MemoryFactory
	paper *broker.Paper
	done  chan executed
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg, err := LoadConfigFrom(context.Background(), mapReader{
		"store/backend":   StoreBackendMemory,
		"trading/enabled": "true",
	}, "testing")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		store: repository.NewMemory(),
		paper: broker.NewPaper(
			broker.WithQuote("XAUUSD", 4490.1, 4490.4),
			broker.WithQuote("EURUSD", 1.0850, 1.0851),
		),
		done: make(chan executed, 16),
	}
	h.core, err = New(context.Background(), cfg, Dependencies{
		Store:  h.store,
		Broker: h.paper,
		OnExecuted: func(job *execution.Job, outcome *domain.EntryOutcome, _ error) {
			h.done <- executed{job: job, outcome: outcome}
		},
	})
	require.NoError(t, err)
	require.NoError(t, h.core.Start())
	t.Cleanup(func() { _ = h.core.Shutdown() })
	return h
}

func (h *harness) process(t *testing.T, id, text string, replyTo string) *Handling {
	t.Helper()
	msg := &domain.InboundMessage{ChatID: testChat, MessageID: id, Text: text}
	if replyTo != "" {
		msg.ReplyTo = &domain.CorrelationKey{ChatID: testChat, MessageID: replyTo}
	}
	handling, err := h.core.Process(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, handling)
	return handling
}

func (h *harness) wait(t *testing.T) executed {
	t.Helper()
	select {
	case e := <-h.done:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("execution did not complete")
		return executed{}
	}
}

func (h *harness) record(t *testing.T, id string) *domain.SignalRecord {
	t.Helper()
	rec, err := h.core.GetSignal(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestCore_DeferredEntryAndReply(t *testing.T) {
	h := newHarness(t, nil)

	entry := h.process(t, "500", "BUY XAUUSD NOW", "")
	require.Equal(t, DispositionPending, entry.Disposition)
	assert.Equal(t, domain.SignalEntryOnly, entry.Signal.SignalType)
	assert.Equal(t, domain.EntryStatusPending, h.record(t, entry.RecordID).Status)

	found, err := h.core.FindSignal(context.Background(), domain.CorrelationKey{ChatID: testChat, MessageID: "500"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.RecordID, found.ID)

	reply := h.process(t, "501", "SL 4473 TP 4519", "500")
	require.Equal(t, DispositionSubmitted, reply.Disposition)
	assert.Equal(t, correlation.OutcomeExecute, reply.Outcome)
	assert.Equal(t, entry.RecordID, reply.RecordID)

	e := h.wait(t)
	assert.Equal(t, domain.EntryStatusSuccess, e.outcome.Status)

	rec := h.record(t, entry.RecordID)
	assert.Equal(t, domain.EntryStatusSuccess, rec.Status)
	require.NotNil(t, rec.Ticket)
	require.NotNil(t, rec.StopLoss)
	assert.InDelta(t, 4473.0, *rec.StopLoss, 1e-9)
	assert.InDelta(t, 4519.0, *rec.TakeProfit, 1e-9)
	assert.InDelta(t, 4490.4, *rec.FillPrice, 1e-9)

	// La misma respuesta otra vez no ejecuta nada
	dup := h.process(t, "502", "SL 4473 TP 4519", "500")
	assert.Equal(t, DispositionIgnored, dup.Disposition)
	assert.Equal(t, correlation.OutcomeAlreadyResolved, dup.Outcome)
	assert.Len(t, h.paper.Orders(), 1)
}

func TestCore_RedeliveredMessageIgnored(t *testing.T) {
	h := newHarness(t, nil)

	first := h.process(t, "600", "BUY GOLD SL 4473 TP 4519", "")
	require.Equal(t, DispositionSubmitted, first.Disposition)
	h.wait(t)

	again := h.process(t, "600", "BUY GOLD SL 4473 TP 4519", "")
	assert.Equal(t, DispositionIgnored, again.Disposition)
	assert.Equal(t, "duplicate_message", again.Reason)
	assert.Len(t, h.paper.Orders(), 1)
	assert.Len(t, h.store.Messages(), 1)
}

func TestCore_ReplyWithoutEntryIsNoop(t *testing.T) {
	h := newHarness(t, nil)

	res := h.process(t, "10", "SL 4473 TP 4519", "9")
	assert.Equal(t, DispositionIgnored, res.Disposition)
	assert.Equal(t, correlation.OutcomeNoMatch, res.Outcome)

	noChain := h.process(t, "11", "SL 4473 TP 4519", "")
	assert.Equal(t, DispositionIgnored, noChain.Disposition)
	assert.Equal(t, "no_reply_chain", noChain.Reason)

	stats, err := h.core.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
}

func TestCore_CompleteSignalExecutes(t *testing.T) {
	h := newHarness(t, nil)

	res := h.process(t, "20", "SELL EURUSD\nSL 1.1050\nTP 1.0950", "")
	require.Equal(t, DispositionSubmitted, res.Disposition)
	assert.Equal(t, domain.SignalComplete, res.Signal.SignalType)

	e := h.wait(t)
	assert.Equal(t, domain.EntryStatusSuccess, e.outcome.Status)
	assert.InDelta(t, 1.0850, *e.outcome.FillPrice, 1e-9)

	orders := h.paper.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.ActionSell, orders[0].Action)
	assert.InDelta(t, 0.01, orders[0].Volume, 1e-9)
}

func TestCore_DryRunAndOffline(t *testing.T) {
	dry := newHarness(t, func(c *Config) { c.TradingEnabled = false })
	res := dry.process(t, "30", "BUY GOLD SL 4473 TP 4519", "")
	require.Equal(t, DispositionSubmitted, res.Disposition)
	assert.Equal(t, domain.EntryStatusDryRun, dry.wait(t).outcome.Status)
	assert.Empty(t, dry.paper.Orders())

	off := newHarness(t, nil)
	off.paper.SetReady(false)
	res = off.process(t, "31", "BUY GOLD SL 4473 TP 4519", "")
	require.Equal(t, DispositionSubmitted, res.Disposition)
	assert.Equal(t, domain.EntryStatusOffline, off.wait(t).outcome.Status)
	assert.Equal(t, domain.EntryStatusOffline, off.record(t, res.RecordID).Status)
}

func TestCore_ImmediateModeAdjustsOpenOrder(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.EntryMode = EntryModeImmediate })

	entry := h.process(t, "40", "BUY GOLD NOW", "")
	require.Equal(t, DispositionSubmitted, entry.Disposition)
	placed := h.wait(t)
	require.Equal(t, domain.EntryStatusSuccess, placed.outcome.Status)
	ticket := *placed.outcome.Ticket

	reply := h.process(t, "41", "SL 4473", "40")
	require.Equal(t, DispositionSubmitted, reply.Disposition)
	assert.Equal(t, domain.EntryStatusModified, h.wait(t).outcome.Status)

	sl, tp, ok := h.paper.Stops(ticket)
	require.True(t, ok)
	assert.InDelta(t, 4473.0, *sl, 1e-9)
	assert.Nil(t, tp)

	rec := h.record(t, entry.RecordID)
	assert.Equal(t, domain.EntryStatusModified, rec.Status)
	assert.Equal(t, ticket, *rec.Ticket)
}

func TestCore_CloseSignal(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.CloseEnabled = true })

	none := h.process(t, "50", "CLOSE GOLD", "")
	require.Equal(t, DispositionSubmitted, none.Disposition)
	assert.Equal(t, domain.EntryStatusNoPositions, h.wait(t).outcome.Status)

	for i, id := range []string{"51", "52"} {
		res := h.process(t, id, "BUY GOLD SL 4473 TP 4519", "")
		require.Equal(t, DispositionSubmitted, res.Disposition, "order %d", i)
		require.Equal(t, domain.EntryStatusSuccess, h.wait(t).outcome.Status)
	}

	closed := h.process(t, "53", "CLOSE GOLD", "")
	require.Equal(t, DispositionSubmitted, closed.Disposition)
	assert.Equal(t, domain.EntryStatusSuccess, h.wait(t).outcome.Status)

	left, err := h.paper.Positions(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCore_CloseWordInReplyIsCorrelated(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.CloseEnabled = true })

	entry := h.process(t, "700", "BUY XAUUSD NOW", "")
	require.Equal(t, DispositionPending, entry.Disposition)

	reply := h.process(t, "701", "SL 4473 TP 4519 close half at TP1", "700")
	require.Equal(t, domain.ActionClose, reply.Signal.Action)
	require.Equal(t, domain.SignalParamsOnly, reply.Signal.SignalType)
	require.Equal(t, DispositionSubmitted, reply.Disposition)
	assert.Equal(t, correlation.OutcomeExecute, reply.Outcome)
	assert.Equal(t, entry.RecordID, reply.RecordID)

	e := h.wait(t)
	assert.Equal(t, execution.KindPlace, e.job.Kind)
	assert.Equal(t, domain.EntryStatusSuccess, e.outcome.Status)
	assert.Equal(t, domain.EntryStatusSuccess, h.record(t, entry.RecordID).Status)
	assert.Len(t, h.paper.Orders(), 1)
}

func TestCore_ImmediateModeLimitEntryExecutesAtMarket(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.EntryMode = EntryModeImmediate })

	res := h.process(t, "710", "BUY XAUUSD LIMIT 4477", "")
	require.Equal(t, domain.OrderTypeLimit, res.Signal.OrderType)
	require.Equal(t, DispositionSubmitted, res.Disposition)

	e := h.wait(t)
	require.Equal(t, domain.EntryStatusSuccess, e.outcome.Status)
	assert.InDelta(t, 4490.4, *e.outcome.FillPrice, 1e-9)

	orders := h.paper.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderTypeMarket, orders[0].OrderType)
	assert.Nil(t, orders[0].EntryPrice)
}

func TestCore_ProcessSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tel, err := telemetry.New(context.Background(), "core-test", "test",
		telemetry.WithLogsDisabled(),
		telemetry.WithMetricsDisabled(),
		telemetry.WithSpanExporter(exporter),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	cfg, err := LoadConfigFrom(context.Background(), mapReader{"store/backend": StoreBackendMemory}, "testing")
	require.NoError(t, err)
	core, err := New(context.Background(), cfg, Dependencies{
		Store:     repository.NewMemory(),
		Broker:    broker.NewPaper(),
		Telemetry: tel,
	})
	require.NoError(t, err)
	require.NoError(t, core.Start())
	t.Cleanup(func() { _ = core.Shutdown() })

	msg := &domain.InboundMessage{ChatID: testChat, MessageID: "720", Text: "BUY XAUUSD NOW"}
	handling, err := core.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, DispositionPending, handling.Disposition)

	byName := make(map[string]tracetest.SpanStub)
	for _, span := range exporter.GetSpans() {
		byName[span.Name] = span
	}
	root, ok := byName["core.message.process"]
	require.True(t, ok)
	assert.Contains(t, root.Attributes, attribute.String("disposition", string(DispositionPending)))

	parse, ok := byName["core.parser.parse"]
	require.True(t, ok)
	assert.Equal(t, root.SpanContext.SpanID(), parse.Parent.SpanID())
}

func TestCore_KnownShortSymbolsFromConfig(t *testing.T) {
	plain := newHarness(t, nil)
	res := plain.process(t, "730", "BUY ABCD NOW", "")
	assert.Equal(t, DispositionIgnored, res.Disposition)
	assert.Equal(t, "no_signal", res.Reason)

	h := newHarness(t, func(c *Config) { c.KnownSymbols = []string{"abcd"} })
	res = h.process(t, "731", "BUY ABCD NOW", "")
	require.Equal(t, DispositionPending, res.Disposition)
	assert.Equal(t, "ABCD", res.Signal.Symbol)
}

func TestCore_CloseDisabledIsNotASignal(t *testing.T) {
	h := newHarness(t, nil)
	res := h.process(t, "60", "CLOSE GOLD", "")
	assert.Equal(t, DispositionIgnored, res.Disposition)
}

func TestCore_FiltersAndAudit(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AllowedChats = []string{"-42"} })

	res := h.process(t, "70", "BUY GOLD NOW", "")
	assert.Equal(t, DispositionFiltered, res.Disposition)
	assert.Equal(t, "chat_not_allowed", res.Reason)

	open := newHarness(t, nil)
	res = open.process(t, "71", "good morning traders, big week ahead", "")
	assert.Equal(t, DispositionFiltered, res.Disposition)
	assert.Equal(t, "prefilter", res.Reason)

	// Todo mensaje queda auditado, incluso los filtrados
	require.Len(t, h.store.Messages(), 1)
	require.Len(t, open.store.Messages(), 1)
	assert.Equal(t, "good morning traders, big week ahead", open.store.Messages()[0].Text)
}

func TestCore_InvalidLimitRejected(t *testing.T) {
	h := newHarness(t, nil)

	res := h.process(t, "80", "BUY LIMIT GOLD @ 4490 SL 4500 TP 4519", "")
	assert.Equal(t, DispositionRejected, res.Disposition)
	assert.Equal(t, string(domain.ErrInvalidStops), res.Reason)

	stats, err := h.core.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
}

func TestCore_SubmitThroughLoopAndShutdown(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.True(t, h.core.Healthy())
	require.NoError(t, h.core.Submit(ctx, &domain.InboundMessage{ChatID: testChat, MessageID: "90", Text: "BUY XAUUSD NOW"}))

	err := h.core.Submit(ctx, &domain.InboundMessage{ChatID: testChat})
	assert.Error(t, err)

	require.NoError(t, h.core.Shutdown())
	assert.False(t, h.core.Healthy())

	// Shutdown procesa lo ya encolado
	rec, err := h.store.SignalRepository().FindByCorrelationKey(ctx, domain.CorrelationKey{ChatID: testChat, MessageID: "90"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.EntryStatusPending, rec.Status)

	err = h.core.Submit(ctx, &domain.InboundMessage{ChatID: testChat, MessageID: "91", Text: "BUY GOLD"})
	assert.Error(t, err)
}

func TestCore_ParseDoesNotPersist(t *testing.T) {
	h := newHarness(t, nil)

	sig, err := h.core.Parse(context.Background(), "XAUUSD BUY NOW\nSL - 4,232.37\nTP1 - 4,260")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.InDelta(t, 4232.37, *sig.StopLoss, 1e-9)

	stats, err := h.core.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Empty(t, h.store.Messages())
}

func TestNew_RequiresDependencies(t *testing.T) {
	cfg, err := LoadConfigFrom(context.Background(), mapReader{"store/backend": StoreBackendMemory}, "testing")
	require.NoError(t, err)

	_, err = New(context.Background(), nil, Dependencies{})
	assert.Error(t, err)
	_, err = New(context.Background(), cfg, Dependencies{Broker: broker.NewPaper()})
	assert.Error(t, err)
	_, err = New(context.Background(), cfg, Dependencies{Store: repository.NewMemory()})
	assert.Error(t, err)
}
