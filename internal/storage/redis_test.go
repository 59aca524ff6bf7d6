package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/powerchain/internal/powerchain"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func dualDriver() *powerchain.Network {
	net := powerchain.New()
	m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
	m2 := net.MustAdd("m2", nil, powerchain.AsMotor(30))
	shared := net.MustAdd("shared", powerchain.Spur{Teeth: 10})
	m1.Connect(shared)
	m2.Connect(shared)
	net.Activate()
	return net
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr, client := newRedis(t)
	pub := NewRedisPublisher(client, "run1")
	ctx := context.Background()

	pub.OnTick(dualDriver(), 0, 0.5)
	require.NoError(t, pub.Err())

	rpm, err := pub.ReadRPM(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"m1": 60, "m2": 30, "shared": 60}, rpm)

	status, err := pub.ReadStatus(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, "enabled", status["m1"])
	assert.Equal(t, "disabled", status["shared"])

	assert.Equal(t, "0", mr.HGet("powerchain:run1:clock", "step"))
	assert.Equal(t, "0.5", mr.HGet("powerchain:run1:clock", "time"))
}

func TestRedisPublisher_Options(t *testing.T) {
	mr, client := newRedis(t)
	pub := NewRedisPublisher(client, "run2", WithKeyPrefix("test"), WithEvery(3))
	net := dualDriver()

	for step := 0; step < 5; step++ {
		pub.OnTick(net, step, float64(step))
	}
	require.NoError(t, pub.Err())

	assert.True(t, mr.Exists("test:run2:rpm"))
	assert.False(t, mr.Exists("powerchain:run2:rpm"))
	assert.Equal(t, "3", mr.HGet("test:run2:clock", "step"))
}

func TestRedisPublisher_RemovedPartsDropped(t *testing.T) {
	_, client := newRedis(t)
	pub := NewRedisPublisher(client, "run3")
	ctx := context.Background()
	net := dualDriver()

	require.NoError(t, pub.Publish(ctx, net, 0, 0))
	net.Remove("shared")
	require.NoError(t, pub.Publish(ctx, net, 1, 0.1))

	rpm, err := pub.ReadRPM(ctx, "run3")
	require.NoError(t, err)
	assert.NotContains(t, rpm, "shared")
	assert.Len(t, rpm, 2)
}

func TestRedisPublisher_NotFound(t *testing.T) {
	_, client := newRedis(t)
	pub := NewRedisPublisher(client, "run4")

	_, err := pub.ReadRPM(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = pub.ReadStatus(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	pub := NewRedisPublisher(client, "run5")
	pub.OnTick(dualDriver(), 0, 0)
	assert.Error(t, pub.Err())
}
