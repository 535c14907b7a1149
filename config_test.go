package lotmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLossCapPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    LossCapPolicy
		wantErr bool
	}{
		{"capped_at_zero", CappedAtZero, false},
		{"none", NoLossCap, false},
		{"", CappedAtZero, false}, // default
		{"average", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLossCapPolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseShortPositionPolicy(t *testing.T) {
	got, err := ParseShortPositionPolicy("clamp_and_warn")
	require.NoError(t, err)
	assert.Equal(t, ClampAndWarn, got)

	_, err = ParseShortPositionPolicy("ignore")
	assert.Error(t, err)
}

func TestParseTieBreak(t *testing.T) {
	got, err := ParseTieBreak("input_order")
	require.NoError(t, err)
	assert.Equal(t, InputOrder, got)

	// input_order is the only defined tie-break.
	_, err = ParseTieBreak("trade_time")
	assert.Error(t, err)
}

func TestPolicyStrings(t *testing.T) {
	assert.Equal(t, "capped_at_zero", CappedAtZero.String())
	assert.Equal(t, "none", NoLossCap.String())
	assert.Equal(t, "fail", FailSale.String())
	assert.Equal(t, "clamp_and_warn", ClampAndWarn.String())
	assert.Equal(t, "input_order", InputOrder.String())
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg, err := Config{}.validate()
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Greater(t, cfg.Workers, 0)
	assert.NotNil(t, cfg.Hooks.Eligibility)
	assert.NotNil(t, cfg.Hooks.Loss)
	assert.NotNil(t, cfg.Log)
}
