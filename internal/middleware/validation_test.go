package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gte=1,lte=99"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type testCheckout struct {
	Email string     `json:"email" validate:"required,email"`
	Items []testLine `json:"items" validate:"required,min=1,dive"`
}

func decode(t *testing.T, body map[string]interface{}) error {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	var out testCheckout
	return DecodeAndValidate(req, &out)
}

// Feature: order-ledger, Property: Required field validation works
func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeEmail bool, includeItems bool) bool {
			reqMap := make(map[string]interface{})
			if includeEmail {
				reqMap["email"] = "jordan@example.com"
			}
			if includeItems {
				reqMap["items"] = []map[string]interface{}{
					{"product_id": "0b0d6b6e-2f4c-4a8e-9a59-5d1b1a3b6c7d", "quantity": 1, "unit_price": "10.00"},
				}
			}

			err := decode(t, reqMap)
			if includeEmail && includeItems {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: order-ledger, Property: Quantities outside 1..99 are rejected
func TestProperty_QuantityRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantity outside valid range is rejected", prop.ForAll(
		func(qty int) bool {
			err := decode(t, map[string]interface{}{
				"email": "jordan@example.com",
				"items": []map[string]interface{}{
					{"product_id": "0b0d6b6e-2f4c-4a8e-9a59-5d1b1a3b6c7d", "quantity": qty, "unit_price": "10"},
				},
			})
			if qty >= 1 && qty <= 99 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-20, 150),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidation_NegativeMoneyRejected(t *testing.T) {
	err := decode(t, map[string]interface{}{
		"email": "jordan@example.com",
		"items": []map[string]interface{}{
			{"product_id": "0b0d6b6e-2f4c-4a8e-9a59-5d1b1a3b6c7d", "quantity": 1, "unit_price": "-0.01"},
		},
	})
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 1)
	assert.Equal(t, "unit_price", formatted[0].Field)
	assert.Equal(t, "Value must be greater than or equal to 0", formatted[0].Message)
}

func TestValidation_ErrorsUseJSONFieldNames(t *testing.T) {
	err := decode(t, map[string]interface{}{"email": "not-an-email"})
	require.Error(t, err)

	fields := map[string]string{}
	for _, ve := range FormatValidationErrors(err) {
		fields[ve.Field] = ve.Message
	}
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "This field is required", fields["items"])
}

func TestValidation_MalformedJSONIsNotAValidationError(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte("{")))
	var out testCheckout
	err := DecodeAndValidate(req, &out)
	require.Error(t, err)
	assert.Empty(t, FormatValidationErrors(err))
}
