package values

import (
	"fmt"
	"strings"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
)

// Label identifies an active alert or timer within a single clock.
// At most one active timer may carry a given label per clock instance.
type Label struct {
	value string
}

const MaxLabelLength = 128

// NewLabel creates a new Label value object with validation
func NewLabel(value string) (Label, error) {
	if value == "" {
		return Label{}, errors.NewValidationError("EMPTY_LABEL",
			"label cannot be empty")
	}

	if strings.TrimSpace(value) != value {
		return Label{}, errors.NewValidationError("LABEL_WHITESPACE",
			"label cannot have leading or trailing whitespace")
	}

	if len(value) > MaxLabelLength {
		return Label{}, errors.NewValidationError("LABEL_TOO_LONG",
			fmt.Sprintf("label exceeds maximum length of %d", MaxLabelLength))
	}

	return Label{value: value}, nil
}

// MustNewLabel creates a Label and panics on error (for constants/tests)
func MustNewLabel(value string) Label {
	l, err := NewLabel(value)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the label text
func (l Label) String() string {
	return l.value
}

// Equal checks if two labels are the same
func (l Label) Equal(other Label) bool {
	return l.value == other.value
}

// IsZero checks if the label is the zero value (invalid state)
func (l Label) IsZero() bool {
	return l.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Label) UnmarshalText(text []byte) error {
	label, err := NewLabel(string(text))
	if err != nil {
		return err
	}
	*l = label
	return nil
}
