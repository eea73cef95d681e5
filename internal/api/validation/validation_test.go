package validation_test

import (
	"testing"

	"github.com/projaxis/authcore/internal/api/validation"
	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.co",
		"user+tag@example.io",
	}
	for _, email := range valid {
		assert.True(t, validation.IsValidEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@nodot",
	}
	for _, email := range invalid {
		assert.False(t, validation.IsValidEmail(email), email)
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, validation.IsValidSlug("acme"))
	assert.True(t, validation.IsValidSlug("acme-logistics-2"))
	assert.True(t, validation.IsValidSlug("a"))

	assert.False(t, validation.IsValidSlug(""))
	assert.False(t, validation.IsValidSlug("Acme"))
	assert.False(t, validation.IsValidSlug("-acme"))
	assert.False(t, validation.IsValidSlug("acme-"))
	assert.False(t, validation.IsValidSlug("acme logistics"))
}

func TestIsValidReference(t *testing.T) {
	assert.True(t, validation.IsValidReference(""))
	assert.True(t, validation.IsValidReference("ACME-001"))
	assert.True(t, validation.IsValidReference("X1"))

	assert.False(t, validation.IsValidReference("acme-001"))
	assert.False(t, validation.IsValidReference("ACME_001"))
	assert.False(t, validation.IsValidReference("-ACME"))
}

func TestIsValidPassword(t *testing.T) {
	ok, _ := validation.IsValidPassword("longenough")
	assert.True(t, ok)

	ok, msg := validation.IsValidPassword("short")
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", validation.SanitizeString("hel\x00lo"))
	assert.Equal(t, "line1\nline2", validation.SanitizeString("line1\nline2"))
	assert.Equal(t, "ab", validation.SanitizeString("a\x07b"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", validation.TruncateString("abc", 10))
	assert.Equal(t, "abcde", validation.TruncateString("abcdefgh", 5))
}
