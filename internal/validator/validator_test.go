package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New()
	require.NotNil(t, v)
}

// The notblank rule backs the request fields that must carry real content,
// such as template names and void reasons. Whitespace padding around content
// is fine; whitespace alone is not.
func TestNotblank(t *testing.T) {
	v := New()

	type request struct {
		Reason string `validate:"notblank"`
	}

	testCases := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"plain_content", "customer request", false},
		{"padded_content", "  customer request  ", false},
		{"unicode_content", "顧客依頼", false},
		{"empty", "", true},
		{"spaces_only", "   ", true},
		{"tabs_only", "\t\t", true},
		{"newlines_only", "\n\n", true},
		{"mixed_whitespace", " \t\n ", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(request{Reason: tc.input})
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotblankCombinedWithRequired(t *testing.T) {
	v := New()

	type request struct {
		Name string `validate:"required,notblank"`
	}

	assert.NoError(t, v.Struct(request{Name: "Gift Card 50"}))
	assert.Error(t, v.Struct(request{Name: "   "}), "whitespace-only passes required but must fail notblank")
	assert.Error(t, v.Struct(request{Name: ""}))
}

func TestNotblankCombinedWithMax(t *testing.T) {
	v := New()

	type request struct {
		Name string `validate:"required,notblank,max=10"`
	}

	assert.NoError(t, v.Struct(request{Name: "1234567890"}))
	assert.Error(t, v.Struct(request{Name: "12345678901"}))
	assert.Error(t, v.Struct(request{Name: "   "}))
}

func TestNotblankOnNonStringField(t *testing.T) {
	v := New()

	type request struct {
		Quantity int `validate:"notblank"`
	}

	assert.NoError(t, v.Struct(request{Quantity: 0}), "non-string fields are not subject to notblank")
}
