package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceUnmarshal_NumberAndString(t *testing.T) {
	var fromNumber, fromString Price
	require.NoError(t, json.Unmarshal([]byte(`29.99`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`"29.99"`), &fromString))
	assert.True(t, fromNumber.Equal(fromString), "number %s string %s", fromNumber, fromString)
}

func TestPriceUnmarshal_Rejects(t *testing.T) {
	for _, raw := range []string{`"abc"`, `""`, `true`, `{}`, `[1]`} {
		var p Price
		err := json.Unmarshal([]byte(raw), &p)
		if !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("%s: expected ErrInvalidPrice, got %v", raw, err)
		}
	}
}

func TestPriceMarshal_ExactDecimalString(t *testing.T) {
	out, err := json.Marshal(MustPrice("49.99"))
	require.NoError(t, err)
	assert.Equal(t, `"49.99"`, string(out))
}

func TestPriceMul(t *testing.T) {
	got := MustPrice("29.99").Mul(4)
	assert.True(t, got.Equal(MustPrice("119.96")), "got %s", got)
}

func TestOrderCalculateFinalAmount(t *testing.T) {
	o := Order{
		TotalAmount:    MustPrice("100.00"),
		DiscountAmount: MustPrice("10"),
		TaxAmount:      MustPrice("5.50"),
	}
	got := o.CalculateFinalAmount()
	assert.True(t, got.Equal(MustPrice("95.50")), "got %s", got)
	assert.True(t, o.FinalAmount.Equal(got))
}
