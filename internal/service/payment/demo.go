// Package payment implements the demo card processor used at checkout. No
// external payment provider is contacted.
package payment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

var (
	ErrInvalidCard     = errors.New("invalid card")
	ErrPaymentDeclined = errors.New("payment declined")
)

var expiryPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)

type Card struct {
	Holder string `json:"card_holder"`
	Number string `json:"card_number"`
	Expiry string `json:"card_expiry"`
	CVV    string `json:"card_cvv"`
}

// Last4 returns the final four digits of the card number.
func (c Card) Last4() string {
	digits := normalizeNumber(c.Number)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

type Receipt struct {
	TransactionID string       `json:"transaction_id"`
	Amount        domain.Price `json:"amount"`
	CardLast4     string       `json:"card_last4"`
	ProcessedAt   time.Time    `json:"processed_at"`
}

// DemoProcessor approves every valid card except numbers ending in 0000.
type DemoProcessor struct {
	now func() time.Time
}

func NewDemoProcessor() *DemoProcessor {
	return &DemoProcessor{now: time.Now}
}

func (p *DemoProcessor) Charge(ctx context.Context, amount domain.Price, card Card) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	now := p.now().UTC()
	if err := ValidateCard(card, now); err != nil {
		return Receipt{}, err
	}
	if !amount.Decimal().IsPositive() {
		return Receipt{}, fmt.Errorf("%w: amount must be positive", ErrPaymentDeclined)
	}
	if card.Last4() == "0000" {
		return Receipt{}, ErrPaymentDeclined
	}
	return Receipt{
		TransactionID: "demo_" + uuid.NewString(),
		Amount:        amount,
		CardLast4:     card.Last4(),
		ProcessedAt:   now,
	}, nil
}

// ValidateCard checks the card fields the way the checkout form does.
func ValidateCard(card Card, now time.Time) error {
	if strings.TrimSpace(card.Holder) == "" {
		return fmt.Errorf("%w: card holder required", ErrInvalidCard)
	}
	number := normalizeNumber(card.Number)
	if len(number) < 13 || len(number) > 19 || !allDigits(number) {
		return fmt.Errorf("%w: card number", ErrInvalidCard)
	}
	cvv := strings.TrimSpace(card.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || !allDigits(cvv) {
		return fmt.Errorf("%w: cvv", ErrInvalidCard)
	}
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(card.Expiry))
	if m == nil {
		return fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidCard)
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: expiry month", ErrInvalidCard)
	}
	// Cards are valid through the last day of the expiry month.
	expires := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expires) {
		return fmt.Errorf("%w: card expired", ErrInvalidCard)
	}
	return nil
}

func normalizeNumber(n string) string {
	return strings.Join(strings.Fields(n), "")
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
