package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	submitted []*domain.InboundMessage
	submitErr error
	parsed    *domain.ParsedSignal
	parseErr  error
	records   map[string]*domain.SignalRecord
	listArgs  [2]int
	stats     *domain.EntryStats
	statsErr  error
	healthy   bool
}

func (s *stubService) Submit(_ context.Context, msg *domain.InboundMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, msg)
	return nil
}

func (s *stubService) Parse(context.Context, string) (*domain.ParsedSignal, error) {
	return s.parsed, s.parseErr
}

func (s *stubService) GetSignal(_ context.Context, id string) (*domain.SignalRecord, error) {
	return s.records[id], nil
}

func (s *stubService) FindSignal(_ context.Context, key domain.CorrelationKey) (*domain.SignalRecord, error) {
	for _, rec := range s.records {
		if rec.CorrelationKey == key {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *stubService) ListSignals(_ context.Context, limit, offset int) ([]*domain.SignalRecord, error) {
	s.listArgs = [2]int{limit, offset}
	return nil, nil
}

func (s *stubService) Stats(context.Context) (*domain.EntryStats, error) {
	return s.stats, s.statsErr
}

func (s *stubService) Healthy() bool { return s.healthy }

func do(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := NewServer(svc, nil)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, &stubService{healthy: true}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, &stubService{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmitMessage(t *testing.T) {
	svc := &stubService{}
	rec := do(t, svc, http.MethodPost, "/v1/messages",
		`{"chat_id":"-100","message_id":"43","reply_to_message_id":"42","text":"SL 4480 TP 4520"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "-100:43", decode(t, rec)["correlation_key"])
	require.Len(t, svc.submitted, 1)
	msg := svc.submitted[0]
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, domain.CorrelationKey{ChatID: "-100", MessageID: "42"}, *msg.ReplyTo)
	assert.Equal(t, "SL 4480 TP 4520", msg.Text)
}

func TestSubmitMessageErrors(t *testing.T) {
	rec := do(t, &stubService{}, http.MethodPost, "/v1/messages", `{"chat_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, &stubService{}, http.MethodPost, "/v1/messages", `{"chat_id":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	full := &stubService{submitErr: domain.NewError(domain.ErrQueueFull, "core inbox full")}
	rec = do(t, full, http.MethodPost, "/v1/messages", `{"chat_id":"1","message_id":"2","text":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	broken := &stubService{submitErr: errors.New("boom")}
	rec = do(t, broken, http.MethodPost, "/v1/messages", `{"chat_id":"1","message_id":"2","text":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestParse(t *testing.T) {
	svc := &stubService{parsed: &domain.ParsedSignal{
		Action:     domain.ActionBuy,
		Symbol:     "XAUUSD",
		OrderType:  domain.OrderTypeMarket,
		SignalType: domain.SignalEntryOnly,
	}}
	rec := do(t, svc, http.MethodPost, "/v1/parse", `{"text":"BUY GOLD NOW"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "BUY", body["action"])
	assert.Equal(t, "XAUUSD", body["symbol"])

	rec = do(t, &stubService{}, http.MethodPost, "/v1/parse", `{"text":"hello"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	invalid := &stubService{parseErr: domain.NewError(domain.ErrInvalidStops, "stop loss above entry")}
	rec = do(t, invalid, http.MethodPost, "/v1/parse", `{"text":"BUY LIMIT GOLD @ 4490 SL 4500"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(domain.ErrInvalidStops), decode(t, rec)["code"])

	rec = do(t, &stubService{}, http.MethodPost, "/v1/parse", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalsQueries(t *testing.T) {
	id := utils.GenerateUUIDv7()
	svc := &stubService{
		records: map[string]*domain.SignalRecord{
			id: {ID: id, CorrelationKey: domain.CorrelationKey{ChatID: "-1001", MessageID: "500"}, Symbol: "XAUUSD", Status: domain.EntryStatusSuccess},
		},
		stats: &domain.EntryStats{Total: 1, ByStatus: map[domain.EntryStatus]int64{domain.EntryStatusSuccess: 1}},
	}

	rec := do(t, svc, http.MethodGet, "/v1/signals/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "XAUUSD", decode(t, rec)["symbol"])

	rec = do(t, svc, http.MethodGet, "/v1/signals/"+utils.GenerateUUIDv7(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, svc, http.MethodGet, "/v1/signals/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid signal id", decode(t, rec)["error"])

	rec = do(t, svc, http.MethodGet, "/v1/signals?limit=10&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, [2]int{10, 5}, svc.listArgs)

	rec = do(t, svc, http.MethodGet, "/v1/signals?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, svc, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestCorrelationLookup(t *testing.T) {
	id := utils.GenerateUUIDv7()
	svc := &stubService{
		records: map[string]*domain.SignalRecord{
			id: {ID: id, CorrelationKey: domain.CorrelationKey{ChatID: "-1001", MessageID: "500"}, Symbol: "XAUUSD", Status: domain.EntryStatusPending},
		},
	}

	rec := do(t, svc, http.MethodGet, "/v1/correlations/-1001:500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["id"])

	rec = do(t, svc, http.MethodGet, "/v1/correlations/-1001:501", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, svc, http.MethodGet, "/v1/correlations/no-separator", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, svc, http.MethodGet, "/v1/correlations/-1001:", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoRoute(t *testing.T) {
	rec := do(t, &stubService{}, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode(t, rec)["error"])
}
