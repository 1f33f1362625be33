package execution

import (
	"fmt"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

// Kind tipo de trabajo de ejecución.
type Kind int

const (
	// KindPlace coloca la orden de la directiva.
	KindPlace Kind = iota + 1
	// KindModify ajusta SL/TP de la orden ya ejecutada del registro.
	KindModify
	// KindClose cierra todas las posiciones del símbolo del registro.
	KindClose
)

// String implementa fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindPlace:
		return "place"
	case KindModify:
		return "modify"
	case KindClose:
		return "close"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Job trabajo sobre un registro ya reclamado (IN_PROGRESS).
type Job struct {
	Kind      Kind
	Record    *domain.SignalRecord
	Directive *domain.ExecutionDirective // KindPlace

	// KindModify
	StopLoss   *float64
	TakeProfit *float64
}

// PlaceJob crea un trabajo de colocación.
func PlaceJob(rec *domain.SignalRecord, d *domain.ExecutionDirective) *Job {
	return &Job{Kind: KindPlace, Record: rec, Directive: d}
}

// ModifyJob crea un trabajo de ajuste SL/TP.
func ModifyJob(rec *domain.SignalRecord, stopLoss, takeProfit *float64) *Job {
	return &Job{Kind: KindModify, Record: rec, StopLoss: stopLoss, TakeProfit: takeProfit}
}

// CloseJob crea un trabajo de cierre por símbolo.
func CloseJob(rec *domain.SignalRecord) *Job {
	return &Job{Kind: KindClose, Record: rec}
}

func (j *Job) validate() error {
	if j == nil || j.Record == nil || j.Record.ID == "" {
		return domain.NewError(domain.ErrMissingRequiredField, "job requires a claimed record")
	}
	switch j.Kind {
	case KindPlace:
		if j.Directive == nil {
			return domain.NewError(domain.ErrMissingRequiredField, "place job requires a directive")
		}
	case KindModify:
		if j.Record.Ticket == nil {
			return domain.NewError(domain.ErrMissingRequiredField, "modify job requires a ticket")
		}
	case KindClose:
	default:
		return domain.NewError(domain.ErrInvalidAction, fmt.Sprintf("unknown job kind %d", int(j.Kind)))
	}
	return nil
}
