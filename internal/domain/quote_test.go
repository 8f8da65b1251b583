package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

func TestCents_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Cents
	}{
		{"12.05", 1205},
		{"-0.40", -40},
		{"7", 700},
		{"0.5", 50},
		{"1.005", 101},
		{"-1.005", -101},
		{"1.004", 100},
		{"92233720368547757.99", 9223372036854775799},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c domain.Cents
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			require.Equal(t, tt.want, c)
		})
	}
}

func TestCents_UnmarshalJSON_NullKeepsValue(t *testing.T) {
	var q struct {
		Amount domain.Cents `json:"amount"`
	}
	q.Amount = 1234
	require.NoError(t, json.Unmarshal([]byte(`{"amount":null}`), &q))
	require.Equal(t, domain.Cents(1234), q.Amount)
}

func TestCents_UnmarshalJSON_Rejects(t *testing.T) {
	for _, in := range []string{`"12.05"`, `1e3`, `-`, `99999999999999999999`} {
		var c domain.Cents
		require.Error(t, json.Unmarshal([]byte(in), &c), in)
	}
}

func TestCents_RoundTrip(t *testing.T) {
	for _, v := range []domain.Cents{0, 5, -5, 123456789012345} {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var got domain.Cents
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, v, got)
	}
}
