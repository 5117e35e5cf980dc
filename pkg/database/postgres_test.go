package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
)

func TestPostgresDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "pw", Name: "hacktrackr"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=hacktrackr sslmode=disable timezone=UTC", postgresDSN(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, postgresDSN(cfg), "sslmode=require")

	cfg.URL = "postgres://app:pw@neon.example.com/hacktrackr?sslmode=require"
	assert.Equal(t, cfg.URL, postgresDSN(cfg))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
}
