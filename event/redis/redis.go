// Package redis publishes processed-record events over redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/recordsvc/event"
)

var ErrNilClient = errors.New("redis publisher: nil client")

type Publisher struct {
	rdb         goredis.UniversalClient
	channel     string
	closeClient bool
}

var _ event.Publisher = (*Publisher)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Channel     string // "" => event.ChannelProcessed
	CloseClient bool   // set true only if this publisher exclusively owns the client
}

func New(cfg Config) (*Publisher, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ch := cfg.Channel
	if ch == "" {
		ch = event.ChannelProcessed
	}
	return &Publisher{rdb: cfg.Client, channel: ch, closeClient: cfg.CloseClient}, nil
}

func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

// Close releases the underlying redis client only when this publisher
// owns it. Safe to call multiple times; repeated calls become no-ops.
func (p *Publisher) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
