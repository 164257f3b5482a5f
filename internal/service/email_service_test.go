package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/mailer"
)

type senderStub struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
	done chan struct{}
}

func (s *senderStub) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return s.err
}

func TestInlineDispatchDeduplicatesRecipients(t *testing.T) {
	sender := &senderStub{}
	d := NewInlineEmailDispatcher(sender, nil, zap.NewNop())

	ok := d.Dispatch(context.Background(), mailer.Message{
		To:      []string{"Admin@example.com", "admin@example.com ", "", "ops@example.com"},
		Subject: "Grievance Overdue (Level 1)",
	})
	assert.True(t, ok)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Admin@example.com", "ops@example.com"}, sender.sent[0].To)
}

func TestInlineDispatchSwallowsFailures(t *testing.T) {
	sender := &senderStub{err: errors.New("smtp: connection refused")}
	d := NewInlineEmailDispatcher(sender, nil, nil)

	assert.False(t, d.Dispatch(context.Background(), mailer.Message{To: []string{"a@example.com"}}))
	assert.False(t, d.Dispatch(context.Background(), mailer.Message{}))
	assert.Len(t, sender.sent, 1)
}

func TestQueuedDispatchDelivers(t *testing.T) {
	sender := &senderStub{done: make(chan struct{}, 1)}
	d := NewEmailDispatcher(sender, config.MailQueueConfig{Workers: 1, BufferSize: 4}, time.Second, NewMetricsService(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	require.True(t, d.Dispatch(ctx, mailer.Message{To: []string{"a@example.com"}, Subject: "hello"}))
	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was not delivered")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "hello", sender.sent[0].Subject)
}
