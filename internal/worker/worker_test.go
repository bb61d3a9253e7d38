package worker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/agendaville/backend/config"
	"github.com/agendaville/backend/pkg/queue"
)

func TestRun_StopsPromptlyOnCancel(t *testing.T) {
	// Client never dials: the cancelled context fails BLPop immediately.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	q := queue.NewQueue(rdb, zap.NewNop())
	p := NewProcessor(nil, nil, q, config.EmailConfig{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		assert.Fail(t, "worker did not stop after context cancellation")
	}
}
