package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"elixir/internal/infra"

	"github.com/rs/zerolog/log"
)

// Deliverer sends a rendered mail right away.
type Deliverer interface {
	Deliver(mail infra.Mail) error
}

// FailureFunc is told about mails that could not be delivered after every retry.
type FailureFunc func(mail infra.Mail, err error)

// EmailWorker processes jobs from QueueEmail.
type EmailWorker struct {
	mailer    Deliverer
	onFailure FailureFunc
}

func NewEmailWorker(mailer Deliverer, onFailure FailureFunc) *EmailWorker {
	return &EmailWorker{mailer: mailer, onFailure: onFailure}
}

// Consumer plugs the worker into StartWorkerPool.
func (w *EmailWorker) Consumer() Consumer {
	return Consumer{Handle: w.Process, GiveUp: w.giveUp}
}

func (w *EmailWorker) giveUp(raw json.RawMessage, reason string) {
	if w.onFailure == nil {
		return
	}
	var mail infra.Mail
	_ = json.Unmarshal(raw, &mail)
	w.onFailure(mail, errors.New(reason))
}

// Process delivers one queued mail. The error drives the pool's retry policy.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var mail infra.Mail
	if err := json.Unmarshal(raw, &mail); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if len(mail.To) == 0 {
		log.Warn().Str("tipo", mail.Tipo).Msg("email_worker: no recipients, skipping")
		return nil
	}
	if err := w.mailer.Deliver(mail); err != nil {
		log.Error().Err(err).Strs("to", mail.To).Msg("email_worker: failed to send email")
		return err
	}
	log.Info().Strs("to", mail.To).Str("tipo", mail.Tipo).Msg("email_worker: sent")
	return nil
}

// AsyncSender delivers mail on a goroutine with in-process retries. It is used
// when redis is not configured.
type AsyncSender struct {
	mailer    Deliverer
	onFailure FailureFunc
	backoff   time.Duration
}

func NewAsyncSender(mailer Deliverer, onFailure FailureFunc) *AsyncSender {
	return &AsyncSender{mailer: mailer, onFailure: onFailure, backoff: 2 * time.Second}
}

func (s *AsyncSender) Send(_ context.Context, mail infra.Mail) error {
	if len(mail.To) == 0 {
		return fmt.Errorf("email %q has no recipients", mail.Tipo)
	}
	go s.deliver(mail)
	return nil
}

func (s *AsyncSender) deliver(mail infra.Mail) {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err = s.mailer.Deliver(mail); err == nil {
			return
		}
		log.Warn().Err(err).Int("attempt", attempt).Strs("to", mail.To).Msg("email delivery failed")
		if attempt < MaxAttempts {
			time.Sleep(s.backoff * time.Duration(attempt))
		}
	}
	if s.onFailure != nil {
		s.onFailure(mail, err)
	}
}

// DLQLength is always zero for in-process delivery.
func (s *AsyncSender) DLQLength(context.Context) (int64, error) { return 0, nil }
