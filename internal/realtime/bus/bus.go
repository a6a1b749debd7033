package bus

import (
	"context"

	"github.com/yungbote/hearth-backend/internal/realtime"
)

// Bus fans insight events out to every API instance holding SSE connections.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

type localBus struct {
	hub *realtime.SSEHub
}

// NewLocalBus delivers straight to the in-process hub. Used when redis is not configured.
func NewLocalBus(hub *realtime.SSEHub) Bus {
	return &localBus{hub: hub}
}

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(context.Context, func(realtime.SSEMessage)) error { return nil }

func (b *localBus) Close() error { return nil }
