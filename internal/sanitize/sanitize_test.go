package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Wanjiku Kamau", "Wanjiku Kamau"},
		{"strips tags", "<script>alert(1)</script>Wanjiku", "alert(1)Wanjiku"},
		{"strips stray brackets", "a < b > c", "a b c"},
		{"strips control chars", "line\x00one\tstill", "lineonestill"},
		{"collapses whitespace", "  Moi   Avenue   Nairobi ", "Moi Avenue Nairobi"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestEmail(t *testing.T) {
	got, err := Email("  Wanjiku.Kamau@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "wanjiku.kamau@example.com", got)

	for _, bad := range []string{"", "not-an-email", "a@b", "a b@example.com"} {
		_, err := Email(bad)
		assert.ErrorIs(t, err, entity.ErrValidation, "input %q", bad)
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+254 712 345 678", "+254712345678"},
		{"0712-345-678", "0712345678"},
		{"(0712) 345.678", "0712345678"},
	}
	for _, tt := range tests {
		got, err := Phone(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "12345", "call me maybe", "+2547123456789012345"} {
		_, err := Phone(bad)
		assert.ErrorIs(t, err, entity.ErrValidation, "input %q", bad)
	}
}

func TestAddress(t *testing.T) {
	in := entity.ShippingAddress{
		FirstName:  " Wanjiku ",
		LastName:   "<b>Kamau</b>",
		Email:      "Wanjiku@Example.com",
		Phone:      "+254 712 345 678",
		Street:     "Moi  Avenue",
		City:       "Nairobi",
		County:     "Nairobi",
		Country:    "Kenya",
		PostalCode: "00100",
	}

	got, err := Address(in)
	require.NoError(t, err)
	assert.Equal(t, "Wanjiku", got.FirstName)
	assert.Equal(t, "Kamau", got.LastName)
	assert.Equal(t, "wanjiku@example.com", got.Email)
	assert.Equal(t, "+254712345678", got.Phone)
	assert.Equal(t, "Moi Avenue", got.Street)
}

func TestAddressRejectsBadEmail(t *testing.T) {
	_, err := Address(entity.ShippingAddress{Email: "nope", Phone: "+254712345678"})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestAddressRejectsBadPhone(t *testing.T) {
	_, err := Address(entity.ShippingAddress{Email: "a@example.com", Phone: "123"})
	assert.ErrorIs(t, err, entity.ErrValidation)
}
