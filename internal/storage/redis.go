package storage

import (
	"context"
	"fmt"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	"github.com/san-kum/powerchain/internal/powerchain"
)

// RedisPublisher mirrors the live state of a run into redis hashes:
// <prefix>:<run>:rpm and <prefix>:<run>:status keyed by part name, plus
// <prefix>:<run>:clock holding step and time. It implements sim.Observer.
type RedisPublisher struct {
	client *backend.Client
	prefix string
	run    string
	every  int
	ctx    context.Context
	err    error
}

type RedisOption func(*RedisPublisher)

// WithKeyPrefix sets the key prefix. The default is "powerchain".
func WithKeyPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) {
		p.prefix = prefix
	}
}

// WithEvery publishes only every n-th tick.
func WithEvery(n int) RedisOption {
	return func(p *RedisPublisher) {
		if n > 0 {
			p.every = n
		}
	}
}

// WithContext sets the context used for publishing from OnTick.
func WithContext(ctx context.Context) RedisOption {
	return func(p *RedisPublisher) {
		p.ctx = ctx
	}
}

func NewRedisPublisher(client *backend.Client, run string, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		client: client,
		prefix: "powerchain",
		run:    run,
		every:  1,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisPublisher) key(run, field string) string {
	return fmt.Sprintf("%s:%s:%s", p.prefix, run, field)
}

// OnTick publishes on every configured tick. The first failure is kept and
// reported by Err; publishing stops after it.
func (p *RedisPublisher) OnTick(net *powerchain.Network, step int, t float64) {
	if p.err != nil || step%p.every != 0 {
		return
	}
	p.err = p.Publish(p.ctx, net, step, t)
}

func (p *RedisPublisher) Err() error { return p.err }

// Publish writes one snapshot in a single pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, net *powerchain.Network, step int, t float64) error {
	nodes := net.Nodes()
	rpm := make(map[string]any, len(nodes))
	status := make(map[string]any, len(nodes))
	for _, n := range nodes {
		rpm[n.Name()] = strconv.FormatFloat(n.RPM(), 'f', -1, 64)
		if n.Enabled() {
			status[n.Name()] = "enabled"
		} else {
			status[n.Name()] = "disabled"
		}
	}

	pipe := p.client.TxPipeline()
	pipe.Del(ctx, p.key(p.run, "rpm"), p.key(p.run, "status"))
	if len(nodes) > 0 {
		pipe.HSet(ctx, p.key(p.run, "rpm"), rpm)
		pipe.HSet(ctx, p.key(p.run, "status"), status)
	}
	pipe.HSet(ctx, p.key(p.run, "clock"), "step", step, "time", t)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// ReadRPM returns the last published speeds of a run.
func (p *RedisPublisher) ReadRPM(ctx context.Context, run string) (map[string]float64, error) {
	raw, err := p.client.HGetAll(ctx, p.key(run, "rpm")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, run)
	}

	out := make(map[string]float64, len(raw))
	for part, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", part, err)
		}
		out[part] = f
	}
	return out, nil
}

// ReadStatus returns the last published enabled/disabled state of a run.
func (p *RedisPublisher) ReadStatus(ctx context.Context, run string) (map[string]string, error) {
	raw, err := p.client.HGetAll(ctx, p.key(run, "status")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, run)
	}
	return raw, nil
}
