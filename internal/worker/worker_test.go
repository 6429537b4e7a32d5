package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"elixir/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []infra.Mail
}

func (m *flakyMailer) Deliver(mail infra.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, mail)
	return nil
}

func encodeJob(t *testing.T, attempts int, mail infra.Mail) string {
	t.Helper()
	payload, err := json.Marshal(mail)
	require.NoError(t, err)
	raw, err := json.Marshal(Job{Type: JobEmail, Payload: payload, Attempts: attempts})
	require.NoError(t, err)
	return string(raw)
}

func TestProcessJobRequeuesThenDeadLetters(t *testing.T) {
	mailer := &flakyMailer{failures: 10}
	var failed []string
	w := NewEmailWorker(mailer, func(mail infra.Mail, err error) { failed = append(failed, mail.Subject) })
	consumer := w.Consumer()
	mail := infra.Mail{To: []string{"cliente@elixir.com"}, Subject: "Bienvenido", Tipo: "bienvenida"}

	var requeued []Job
	var dead []Job
	requeue := func(j Job) error { requeued = append(requeued, j); return nil }
	deadLetter := func(j Job, reason string) {
		dead = append(dead, j)
		consumer.GiveUp(j.Payload, reason)
	}

	processJob(context.Background(), QueueEmail, encodeJob(t, 0, mail), consumer.Handle, requeue, deadLetter)
	require.Len(t, requeued, 1)
	assert.Equal(t, 1, requeued[0].Attempts)
	assert.Empty(t, dead)

	processJob(context.Background(), QueueEmail, encodeJob(t, MaxAttempts-1, mail), consumer.Handle, requeue, deadLetter)
	require.Len(t, dead, 1)
	assert.Equal(t, MaxAttempts, dead[0].Attempts)
	assert.Equal(t, []string{"Bienvenido"}, failed)
}

func TestProcessJobSuccess(t *testing.T) {
	mailer := &flakyMailer{}
	w := NewEmailWorker(mailer, nil)
	called := false
	processJob(context.Background(), QueueEmail,
		encodeJob(t, 0, infra.Mail{To: []string{"a@b.cl"}, Subject: "Pedido"}),
		w.Process,
		func(Job) error { called = true; return nil },
		func(Job, string) { called = true })
	assert.False(t, called)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Pedido", mailer.sent[0].Subject)
}

func TestAsyncSenderRetries(t *testing.T) {
	mailer := &flakyMailer{failures: 1}
	s := NewAsyncSender(mailer, nil)
	s.backoff = time.Millisecond

	require.NoError(t, s.Send(context.Background(), infra.Mail{To: []string{"a@b.cl"}, Subject: "Hola"}))
	assert.Eventually(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(mailer.sent) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, s.Send(context.Background(), infra.Mail{}))
}

func TestAsyncSenderReportsFailure(t *testing.T) {
	mailer := &flakyMailer{failures: MaxAttempts}
	done := make(chan error, 1)
	s := NewAsyncSender(mailer, func(_ infra.Mail, err error) { done <- err })
	s.backoff = time.Millisecond

	require.NoError(t, s.Send(context.Background(), infra.Mail{To: []string{"a@b.cl"}}))
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("failure callback not called")
	}
}

func TestSchedulerTick(t *testing.T) {
	var got time.Time
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick(context.Background(), now, func(_ context.Context, at time.Time) (int, error) {
		got = at
		return 1, nil
	})
	assert.Equal(t, now, got)
}
