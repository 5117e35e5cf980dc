package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestRedisOptionsFromHostFields(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
}

func TestRedisOptionsURLWins(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Host: "ignored", Port: 1, URL: "redis://:secret@upstash.example.com:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "upstash.example.com:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)
}

func TestRedisOptionsBadURL(t *testing.T) {
	_, err := redisOptions(config.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}
