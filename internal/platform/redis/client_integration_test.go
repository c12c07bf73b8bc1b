//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"roster/internal/platform/config"
	"roster/internal/platform/redis"
	"roster/pkg/testutil/containers"
)

func TestNew_ConnectsAndReportsHealth(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	client, err := redis.New(ctx, config.RedisConfig{URL: rc.Addr, PoolSize: 4})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
}
