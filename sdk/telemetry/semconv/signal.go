package semconv

import "go.opentelemetry.io/otel/attribute"

// Signal contiene atributos semánticos del pipeline de señales.
//
// # Identificadores
//
//   - signal.record_id: UUID del registro persistido
//   - signal.chat_id: chat de origen
//   - signal.message_id: mensaje de origen
//   - signal.correlation_key: clave chat:mensaje
//   - signal.reply_to: clave del mensaje citado
//
// # Trading
//
//   - signal.action: BUY/SELL/CLOSE
//   - signal.symbol: símbolo canónico del broker
//   - signal.order_type: MARKET/LIMIT
//   - signal.type: COMPLETE/ENTRY_ONLY/PARAMS_ONLY/INVALID
//   - signal.ticket: ticket devuelto por el broker
//   - signal.volume: volumen en lotes
//
// # Estado
//
//   - signal.status: estado del registro
//   - signal.outcome: resultado de la correlación
//   - signal.error_code: código de error si aplica
//   - signal.component: componente (core/parser/correlation/execution/api)
var Signal = signalAttributes{
	RecordID:       attribute.Key("signal.record_id"),
	ChatID:         attribute.Key("signal.chat_id"),
	MessageID:      attribute.Key("signal.message_id"),
	CorrelationKey: attribute.Key("signal.correlation_key"),
	ReplyTo:        attribute.Key("signal.reply_to"),

	Action:    attribute.Key("signal.action"),
	Symbol:    attribute.Key("signal.symbol"),
	RawSymbol: attribute.Key("signal.raw_symbol"),
	OrderType: attribute.Key("signal.order_type"),
	Type:      attribute.Key("signal.type"),
	Ticket:    attribute.Key("signal.ticket"),
	Volume:    attribute.Key("signal.volume"),

	Status:    attribute.Key("signal.status"),
	Outcome:   attribute.Key("signal.outcome"),
	ErrorCode: attribute.Key("signal.error_code"),
	Component: attribute.Key("signal.component"),
	Source:    attribute.Key("signal.source"),
}

type signalAttributes struct {
	RecordID       attribute.Key
	ChatID         attribute.Key
	MessageID      attribute.Key
	CorrelationKey attribute.Key
	ReplyTo        attribute.Key

	Action    attribute.Key
	Symbol    attribute.Key
	RawSymbol attribute.Key
	OrderType attribute.Key
	Type      attribute.Key
	Ticket    attribute.Key
	Volume    attribute.Key

	Status    attribute.Key
	Outcome   attribute.Key
	ErrorCode attribute.Key
	Component attribute.Key
	Source    attribute.Key
}

// Valores frecuentes para signal.component y signal.source
const (
	ComponentCore        = "core"
	ComponentParser      = "parser"
	ComponentResolver    = "resolver"
	ComponentCorrelation = "correlation"
	ComponentExecution   = "execution"
	ComponentAPI         = "api"

	SourceCache   = "cache"
	SourceAlias   = "alias"
	SourcePattern = "pattern"
)
