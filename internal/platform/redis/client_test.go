package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"roster/internal/platform/config"
)

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	assert.Error(t, err)

	_, err = New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "parse redis URL")
}
