package phone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nortsur/pedidos/internal/phone"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "international_with_mobile_prefix", input: "+5491155732845", want: "1155732845"},
		{name: "spaces_and_dashes", input: "+54 9 11 5573-2845", want: "1155732845"},
		{name: "local_with_leading_zero", input: "01155732845", want: "1155732845"},
		{name: "exactly_ten", input: "1155732845", want: "1155732845"},
		{name: "shorter_than_ten", input: "(011) 4567", want: "0114567"},
		{name: "no_digits", input: "sin telefono", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, phone.Normalize(tt.input))
		})
	}
}

func TestNormalize_SuffixCollision(t *testing.T) {
	// Different country codes, same last ten digits.
	assert.Equal(t, phone.Normalize("+1 115 573 2845"), phone.Normalize("+54 115 573 2845"))
}
