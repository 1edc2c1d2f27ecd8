package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `query:"name" validate:"required"`
	Size  int    `json:"size" validate:"omitempty,min=1,max=10"`
	Kind  string `validate:"omitempty,oneof=a b"`
	Since string `query:"since" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func TestValidate_FieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Size: 11, Kind: "c", Since: "yesterday"})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}

	assert.Equal(t, "required", byField["name"].Tag)
	assert.Equal(t, "size must be at most 10", byField["size"].Message)
	assert.Equal(t, "Kind must be one of: a b", byField["Kind"].Message)
	assert.Equal(t, "since must be an RFC 3339 timestamp", byField["since"].Message)
}

func TestValidate_Valid(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&sample{Name: "x", Size: 3, Kind: "a", Since: "2024-01-01T00:00:00Z"}))
}

func TestValidationErrors_Error(t *testing.T) {
	tests := []struct {
		name     string
		errs     ValidationErrors
		expected string
	}{
		{"empty", ValidationErrors{}, ""},
		{"single", ValidationErrors{{Message: "q is required"}}, "q is required"},
		{
			"multiple",
			ValidationErrors{{Message: "q is required"}, {Message: "maxResults must be at most 50"}},
			"q is required; maxResults must be at most 50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errs.Error())
		})
	}
}
