package values

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLabel(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "simple label",
			value: "session_open",
		},
		{
			name:  "label with separators",
			value: "EURUSD-1m-bar-timer",
		},
		{
			name:    "empty label",
			value:   "",
			wantErr: true,
		},
		{
			name:    "leading whitespace",
			value:   " alert1",
			wantErr: true,
		},
		{
			name:    "trailing whitespace",
			value:   "alert1 ",
			wantErr: true,
		},
		{
			name:    "too long",
			value:   strings.Repeat("x", MaxLabelLength+1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := NewLabel(tt.value)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.value, label.String())
			assert.False(t, label.IsZero())
		})
	}
}

func TestLabel_Equal(t *testing.T) {
	a := MustNewLabel("alert1")
	b := MustNewLabel("alert1")
	c := MustNewLabel("alert2")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestLabel_TextRoundTrip(t *testing.T) {
	label := MustNewLabel("session_open")

	text, err := label.MarshalText()
	require.NoError(t, err)

	var decoded Label
	require.NoError(t, decoded.UnmarshalText(text))
	assert.True(t, label.Equal(decoded))
}

func TestLabel_UnmarshalInvalid(t *testing.T) {
	var decoded Label
	assert.Error(t, decoded.UnmarshalText([]byte("")))
}
