package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntryStatus estado de ciclo de vida de un registro de señal.
type EntryStatus string

const (
	EntryStatusPending     EntryStatus = "PENDING_ENTRY" // Esperando SL/TP por reply
	EntryStatusInProgress  EntryStatus = "IN_PROGRESS"   // Reclamada, ejecución en curso
	EntryStatusSuccess     EntryStatus = "SUCCESS"
	EntryStatusError       EntryStatus = "ERROR"
	EntryStatusModified    EntryStatus = "MODIFIED" // SL/TP ajustados sobre una orden ya ejecutada
	EntryStatusDryRun      EntryStatus = "DRY_RUN"
	EntryStatusOffline     EntryStatus = "OFFLINE"
	EntryStatusNoPositions EntryStatus = "NO_POSITIONS" // CLOSE sin posiciones abiertas
	EntryStatusPartial     EntryStatus = "PARTIAL"      // CLOSE con cierres parciales
)

// AllEntryStatuses lista todos los estados conocidos (orden estable para stats).
var AllEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusInProgress,
	EntryStatusSuccess,
	EntryStatusError,
	EntryStatusModified,
	EntryStatusDryRun,
	EntryStatusOffline,
	EntryStatusNoPositions,
	EntryStatusPartial,
}

// IsTerminal indica si el estado ya no admite transiciones de creación.
//
// SUCCESS sigue admitiendo el flujo de ajuste (SUCCESS → MODIFIED).
func (s EntryStatus) IsTerminal() bool {
	switch s {
	case EntryStatusPending, EntryStatusInProgress:
		return false
	default:
		return true
	}
}

// Valid indica si s es un estado conocido.
func (s EntryStatus) Valid() bool {
	for _, known := range AllEntryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CorrelationKey referencia de hilo de respuesta: chat + id del mensaje original.
//
// Es comparable con ==; los ids de mensaje solo son únicos dentro de un chat.
type CorrelationKey struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// String forma persistida "chat:message".
func (k CorrelationKey) String() string {
	return k.ChatID + ":" + k.MessageID
}

// IsZero indica si la clave está vacía.
func (k CorrelationKey) IsZero() bool {
	return k.ChatID == "" && k.MessageID == ""
}

// ParseCorrelationKey parsea la forma producida por String.
func ParseCorrelationKey(s string) (CorrelationKey, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return CorrelationKey{}, NewValidationError("correlation_key", s, "expected chat:message")
	}
	return CorrelationKey{ChatID: s[:idx], MessageID: s[idx+1:]}, nil
}

// InboundMessage mensaje recibido desde el transporte de chat.
type InboundMessage struct {
	ChatID     string          `json:"chat_id"`
	MessageID  string          `json:"message_id"`
	ReplyTo    *CorrelationKey `json:"reply_to,omitempty"` // Solo si es reply
	Text       string          `json:"text"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Key clave de correlación bajo la cual un reply futuro encontrará este mensaje.
func (m *InboundMessage) Key() CorrelationKey {
	return CorrelationKey{ChatID: m.ChatID, MessageID: m.MessageID}
}

// Validate verifica los campos mínimos del mensaje.
func (m *InboundMessage) Validate() error {
	if m.ChatID == "" {
		return NewValidationError("chat_id", m.ChatID, "chat_id cannot be empty")
	}
	if m.MessageID == "" {
		return NewValidationError("message_id", m.MessageID, "message_id cannot be empty")
	}
	if m.ReplyTo != nil && m.ReplyTo.MessageID == "" {
		return NewValidationError("reply_to", m.ReplyTo.String(), "reply_to requires message_id")
	}
	return nil
}

// SignalRecord registro persistido de una señal accionable.
//
// Un PendingEntry es un SignalRecord en estado PENDING_ENTRY creado a partir de
// una señal EntryOnly; las señales Complete y CLOSE usan el mismo registro.
type SignalRecord struct {
	// Identidad
	ID             string         `json:"id"`              // UUIDv7
	CorrelationKey CorrelationKey `json:"correlation_key"` // Mensaje que originó la señal

	// Señal
	Action     Action     `json:"action"`
	Symbol     string     `json:"symbol"`
	OrderType  OrderType  `json:"order_type"`
	EntryPrice *float64   `json:"entry_price,omitempty"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"`
	SignalType SignalType `json:"signal_type"`

	// Ejecución
	Status       EntryStatus `json:"status"`
	Volume       float64     `json:"volume"`
	Ticket       *int64      `json:"ticket,omitempty"`
	FillPrice    *float64    `json:"fill_price,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSignalRecord construye un registro para la señal con el estado indicado.
func NewSignalRecord(id string, key CorrelationKey, sig *ParsedSignal, status EntryStatus) *SignalRecord {
	now := time.Now().UTC()
	return &SignalRecord{
		ID:             id,
		CorrelationKey: key,
		Action:         sig.Action,
		Symbol:         sig.Symbol,
		OrderType:      sig.OrderType,
		EntryPrice:     sig.EntryPrice,
		StopLoss:       sig.StopLoss,
		TakeProfit:     sig.TakeProfit,
		SignalType:     sig.SignalType,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// String resumen para logs.
func (r *SignalRecord) String() string {
	return fmt.Sprintf("%s[%s %s %s %s]", r.ID, r.Status, r.Action, r.Symbol, r.OrderType)
}

// EntryOutcome resultado a persistir al finalizar un registro reclamado.
//
// Los punteros nil conservan el valor almacenado.
type EntryOutcome struct {
	Status       EntryStatus
	Ticket       *int64
	FillPrice    *float64
	Volume       *float64
	StopLoss     *float64
	TakeProfit   *float64
	ErrorMessage string
}

// Apply aplica el resultado sobre un registro en memoria.
func (o *EntryOutcome) Apply(rec *SignalRecord, now time.Time) {
	rec.Status = o.Status
	if o.Ticket != nil {
		rec.Ticket = o.Ticket
	}
	if o.FillPrice != nil {
		rec.FillPrice = o.FillPrice
	}
	if o.Volume != nil {
		rec.Volume = *o.Volume
	}
	if o.StopLoss != nil {
		rec.StopLoss = o.StopLoss
	}
	if o.TakeProfit != nil {
		rec.TakeProfit = o.TakeProfit
	}
	rec.ErrorMessage = o.ErrorMessage
	rec.UpdatedAt = now
}

// EntryStats conteo de registros por estado.
type EntryStats struct {
	Total    int64                 `json:"total"`
	ByStatus map[EntryStatus]int64 `json:"by_status"`
}

// NewEntryStats crea stats con todos los estados en cero.
func NewEntryStats() *EntryStats {
	stats := &EntryStats{ByStatus: make(map[EntryStatus]int64, len(AllEntryStatuses))}
	for _, s := range AllEntryStatuses {
		stats.ByStatus[s] = 0
	}
	return stats
}

// Add suma n registros al estado indicado.
func (s *EntryStats) Add(status EntryStatus, n int64) {
	s.ByStatus[status] += n
	s.Total += n
}
