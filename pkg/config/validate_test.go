package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatedConfig struct {
	Name    string `validate:"required"`
	Retries int    `validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validatedConfig{Name: "svc", Retries: 1}))

	err := Validate(validatedConfig{Retries: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validatedConfig.Name")
	assert.Contains(t, err.Error(), "'required'")
	assert.Contains(t, err.Error(), "validatedConfig.Retries")
}

func TestValidate_NotAStruct(t *testing.T) {
	require.Error(t, Validate("plain"))
}
