package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
)

// Money represents a monetary value with currency and precision handling,
// used for venue starting balances in run configurations.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// Common currency codes (ISO 4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	JPY = "JPY"
	AUD = "AUD"
)

// NewMoney creates a new Money value object
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if err := validateCurrency(currency); err != nil {
		return Money{}, err
	}

	return Money{
		amount:   amount,
		currency: strings.ToUpper(currency),
	}, nil
}

// NewMoneyFromString creates Money from string amount and currency
func NewMoneyFromString(amount, currency string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, errors.NewValidationError("INVALID_AMOUNT",
			fmt.Sprintf("invalid amount %q", amount)).WithCause(err)
	}

	return NewMoney(dec, currency)
}

// ParseMoney parses a balance string of the form "1_000_000 USD".
// Underscores may be used to group digits and are ignored.
func ParseMoney(value string) (Money, error) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return Money{}, errors.NewValidationError("INVALID_MONEY_FORMAT",
			fmt.Sprintf("expected \"<amount> <currency>\", got %q", value))
	}

	amount := strings.ReplaceAll(fields[0], "_", "")
	return NewMoneyFromString(amount, fields[1])
}

// MustNewMoney creates Money and panics on error (for constants/tests)
func MustNewMoney(amount decimal.Decimal, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero Money value in the given currency
func Zero(currency string) Money {
	return MustNewMoney(decimal.Zero, currency)
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() string {
	return m.currency
}

// String returns money with currency code (e.g., "123.45 USD")
func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}

// IsZero checks if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive checks if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Equal checks if two Money values are equal (same amount and currency)
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount) && m.currency == other.currency
}

// Add adds two Money values (must have same currency)
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, errors.NewValidationError("CURRENCY_MISMATCH",
			fmt.Sprintf("cannot add different currencies: %s and %s", m.currency, other.currency))
	}

	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// Sub subtracts other Money from this Money (must have same currency)
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, errors.NewValidationError("CURRENCY_MISMATCH",
			fmt.Sprintf("cannot subtract different currencies: %s and %s", m.currency, other.currency))
	}

	return Money{
		amount:   m.amount.Sub(other.amount),
		currency: m.currency,
	}, nil
}

// JSON marshaling
func (m Money) MarshalJSON() ([]byte, error) {
	data := struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.String(),
		Currency: m.currency,
	}
	return json.Marshal(data)
}

// JSON unmarshaling
func (m *Money) UnmarshalJSON(data []byte) error {
	var temp struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	money, err := NewMoneyFromString(temp.Amount, temp.Currency)
	if err != nil {
		return err
	}

	*m = money
	return nil
}

func validateCurrency(currency string) error {
	if currency == "" {
		return errors.NewValidationError("EMPTY_CURRENCY", "currency cannot be empty")
	}

	currency = strings.ToUpper(currency)

	// Basic ISO 4217 format validation
	if len(currency) != 3 {
		return errors.NewValidationError("INVALID_CURRENCY",
			"currency code must be 3 characters")
	}

	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return errors.NewValidationError("INVALID_CURRENCY",
				fmt.Sprintf("invalid currency code: %s", currency))
		}
	}

	return nil
}
