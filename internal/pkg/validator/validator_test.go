package validator

import (
	"errors"
	"testing"

	gvalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError(t *testing.T) {
	t.Run("should transform validation errors to formatted errors", func(t *testing.T) {
		type TestStruct struct {
			Name string `validate:"required"`
		}

		err := gvalidator.New().Struct(TestStruct{})
		require.Error(t, err)

		formattedErr := formatError(err)

		assert.ErrorIs(t, formattedErr, ErrValidationFailed)
		assert.Contains(t, formattedErr.Error(), "'Name': value '' does not meet the requirements for the 'required' validation")
	})

	t.Run("should return original error when not validation error", func(t *testing.T) {
		originalErr := errors.New("database connection failed")
		assert.Equal(t, originalErr, formatError(originalErr))
	})
}

func TestValidate(t *testing.T) {
	type wallet struct {
		Chain   string `validate:"required"`
		Address string `validate:"walletaddr"`
	}

	tests := []struct {
		name    string
		input   wallet
		wantErr bool
	}{
		{name: "plain hex address", input: wallet{Chain: "eth", Address: "0xABC"}},
		{name: "mixed case full address", input: wallet{Chain: "bnb", Address: "0x52908400098527886E0F7030069857D2E4169EE7"}},
		{name: "empty address", input: wallet{Chain: "eth"}, wantErr: true},
		{name: "address with colon", input: wallet{Chain: "eth", Address: "eth:0xABC"}, wantErr: true},
		{name: "address with whitespace", input: wallet{Chain: "eth", Address: "0xA BC"}, wantErr: true},
		{name: "missing chain", input: wallet{Address: "0xABC"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("reports every failing field", func(t *testing.T) {
		err := Validate(wallet{Address: "a:b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "'Chain'")
		assert.Contains(t, err.Error(), "'Address'")
		assert.Contains(t, err.Error(), "'walletaddr'")
	})
}
