//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedis_SetGetInvalidate(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewRedis(client, "achados-test", time.Minute)

	_, ok, err := c.GetItems(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetItems(ctx, "k1", sampleItems()))
	require.NoError(t, c.SetItems(ctx, "k2", sampleItems()))

	got, ok, err := c.GetItems(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Mochila", got[0].Title)
	assert.Equal(t, []string{"preta"}, got[0].Tags)

	require.NoError(t, c.Invalidate(ctx))

	for _, k := range []string{"k1", "k2"} {
		_, ok, err := c.GetItems(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	n, err := client.Exists(ctx, "achados-test:items:keys").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_TTL(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewRedis(client, "ttl", 30*time.Second)
	require.NoError(t, c.SetItems(ctx, "k", sampleItems()))

	ttl, err := client.TTL(ctx, "ttl:items:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Second)
}
