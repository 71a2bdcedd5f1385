package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerson_FullName(t *testing.T) {
	tests := []struct {
		person Person
		want   string
	}{
		{Person{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{Person{FirstName: "Ada"}, "Ada"},
		{Person{LastName: "Lovelace"}, "Lovelace"},
		{Person{}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.person.FullName())
	}
}
