package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a monetary amount that decodes from either a JSON number or a
// numeric JSON string, so catalog payloads with mixed representations can
// share one cart.
type Price struct {
	amount decimal.Decimal
}

// NewPrice wraps a decimal amount.
func NewPrice(d decimal.Decimal) Price {
	return Price{amount: d}
}

// PriceFromFloat converts a float amount.
func PriceFromFloat(f float64) Price {
	return Price{amount: decimal.NewFromFloat(f)}
}

// ParsePrice coerces a numeric string such as "29.99" into a Price.
func ParsePrice(s string) (Price, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Price{}, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return Price{amount: d}, nil
}

// MustPrice is ParsePrice for literals; it panics on malformed input.
func MustPrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Decimal() decimal.Decimal { return p.amount }

func (p Price) Float64() float64 {
	f, _ := p.amount.Float64()
	return f
}

func (p Price) String() string { return p.amount.String() }

// StringFixed renders the amount with two fraction digits.
func (p Price) StringFixed() string { return p.amount.StringFixed(2) }

func (p Price) IsZero() bool { return p.amount.IsZero() }

func (p Price) IsNegative() bool { return p.amount.IsNegative() }

func (p Price) Equal(other Price) bool { return p.amount.Equal(other.amount) }

func (p Price) Cmp(other Price) int { return p.amount.Cmp(other.amount) }

func (p Price) Add(other Price) Price { return Price{amount: p.amount.Add(other.amount)} }

func (p Price) Sub(other Price) Price { return Price{amount: p.amount.Sub(other.amount)} }

func (p Price) Mul(quantity int) Price {
	return Price{amount: p.amount.Mul(decimal.NewFromInt(int64(quantity)))}
}

// MarshalJSON writes the exact decimal as a JSON string.
func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.amount.String())
}

// UnmarshalJSON accepts 29.99 and "29.99" alike. Anything else is ErrInvalidPrice.
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*p = Price{}
		return nil
	}
	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidPrice, raw)
		}
	}
	parsed, err := ParsePrice(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
