package main

import (
	"flag"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

var envNames = []string{
	"RUN_ADDRESS", "GATEWAY_ADDRESS", "DATABASE_URI", "LOG_LEVEL", "SECRET", "CURRENCY",
	"REDIS_ADDRESS", "KAFKA_BROKERS", "KAFKA_TOPIC", "ORDERS_TOPIC", "ORDERS_DLQ_TOPIC", "KAFKA_GROUP", "NOTIFY_WEBHOOK_URL",
	"TOPUP_TTL", "SWEEP_INTERVAL", "TOPUP_MIN", "TOPUP_MAX", "WITHDRAW_MIN", "WITHDRAW_MIN_CARD",
}

// clearEnv blanks every variable the parser reads; empty values are ignored.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func TestNetAddressSet(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr error
	}{
		{name: "host and port", value: "localhost:8080", want: "localhost:8080"},
		{name: "http prefix", value: "http://10.0.0.1:9000", want: "10.0.0.1:9000"},
		{name: "no port", value: "localhost", wantErr: ErrNotFullIP},
		{name: "empty host", value: ":8080", wantErr: ErrInvalidIP},
		{name: "bad port", value: "localhost:http", wantErr: ErrInvalidPort},
		{name: "port out of range", value: "localhost:70000", wantErr: ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n netAddress
			err := n.Set(tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	clearEnv(t)
	opts := defaultFlags()
	err := parseFlagsFrom(newFlagSet(), []string{"-k", "secret"}, &opts)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.APIAddress.String())
	assert.Empty(t, opts.GatewayAddress.String())
	assert.Equal(t, models.DefaultCurrency, opts.Currency)
	assert.Equal(t, 30*time.Minute, opts.TopupTTL)
	assert.Empty(t, opts.Brokers())

	l := opts.Limits()
	assert.True(t, l.TopupMin.Equal(models.MustAmount("100")))
	assert.True(t, l.MinimumWithdrawal(models.PayoutCard).Equal(models.MustAmount("3000")))
	assert.True(t, l.MinimumWithdrawal(models.PayoutMBank).Equal(models.MustAmount("1000")))
}

func TestParseFlags_SecretRequired(t *testing.T) {
	clearEnv(t)
	opts := defaultFlags()
	assert.Error(t, parseFlagsFrom(newFlagSet(), nil, &opts))
}

func TestParseFlags_EnvOverridesFlags(t *testing.T) {
	clearEnv(t)
	t.Setenv("RUN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TOPUP_TTL", "5m")
	t.Setenv("WITHDRAW_MIN_CARD", "2500")

	opts := defaultFlags()
	err := parseFlagsFrom(newFlagSet(), []string{"-a", "localhost:1234", "-k", "from-flag"}, &opts)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", opts.APIAddress.String())
	assert.Equal(t, "from-env", opts.Key)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, opts.Brokers())
	assert.Equal(t, 5*time.Minute, opts.TopupTTL)
	assert.True(t, opts.Limits().MinimumWithdrawal(models.PayoutCard).Equal(models.MustAmount("2500")))
}

func TestParseFlags_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("SWEEP_INTERVAL", "often")
		opts := defaultFlags()
		assert.Error(t, parseFlagsFrom(newFlagSet(), []string{"-k", "s"}, &opts))
	})
	t.Run("negative amount", func(t *testing.T) {
		opts := defaultFlags()
		assert.Error(t, parseFlagsFrom(newFlagSet(), []string{"-k", "s", "-topup-min", "-5"}, &opts))
	})
	t.Run("min above max", func(t *testing.T) {
		opts := defaultFlags()
		assert.Error(t, parseFlagsFrom(newFlagSet(), []string{"-k", "s", "-topup-min", "500", "-topup-max", "200"}, &opts))
	})
}
