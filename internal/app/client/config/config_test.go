package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Environments(t *testing.T) {
	local := &Config{Env: EnvLocal}
	assert.True(t, local.IsLocal())
	assert.False(t, local.IsProd())

	prod := &Config{Env: EnvProd}
	assert.False(t, prod.IsLocal())
	assert.True(t, prod.IsProd())

	// An unset env behaves like local.
	assert.True(t, (&Config{}).IsLocal())
}

func TestConfig_Validate(t *testing.T) {
	valid := &Config{ServerAddress: "localhost:8080", MaxRetries: 3}
	assert.NoError(t, valid.validate())

	assert.Error(t, (&Config{MaxRetries: 3}).validate())
	assert.Error(t, (&Config{ServerAddress: "localhost:8080"}).validate())
}
