package validator_test

import (
	"net/http"
	"testing"

	"canteen/internal/usecase"
	"canteen/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Building string `json:"building" validate:"required,max=255"`
}

type sample struct {
	PaymentMethod string   `json:"paymentMethod" validate:"required,oneof=cash card"`
	Notes         string   `json:"customerNotes" validate:"max=5"`
	Rating        int64    `json:"rating" validate:"gte=1,lte=5"`
	Address       *address `json:"deliveryAddress" validate:"omitempty"`
}

func TestValidate(t *testing.T) {
	v := validator.New()

	cases := []struct {
		name string
		in   sample
		want string
	}{
		{"ok", sample{PaymentMethod: "cash", Rating: 3}, ""},
		{"missing", sample{Rating: 3}, "paymentMethod is required"},
		{"oneof", sample{PaymentMethod: "cheque", Rating: 3}, "paymentMethod must be one of [cash card]"},
		{"too long", sample{PaymentMethod: "card", Notes: "abcdef", Rating: 3}, "customerNotes must be at most 5 characters"},
		{"range", sample{PaymentMethod: "card", Rating: 9}, "rating is out of range"},
		{"nested", sample{PaymentMethod: "card", Rating: 1, Address: &address{}}, "deliveryAddress.building is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(&tc.in)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			he, ok := usecase.AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Status)
			assert.Equal(t, usecase.KindValidation, he.Kind)
			assert.Equal(t, tc.want, he.Message)
		})
	}
}
