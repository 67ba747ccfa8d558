package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	t.Run("a new validator is valid", func(t *testing.T) {
		assert.True(t, New().IsValid())
	})

	t.Run("a failed check invalidates", func(t *testing.T) {
		v := New()
		v.Check(false, "field", "is wrong")

		assert.False(t, v.IsValid())
		assert.Equal(t, "is wrong", v.Errors["field"])
	})

	t.Run("only the first message per key is kept", func(t *testing.T) {
		v := New()
		v.AddError("field", "first")
		v.AddError("field", "second")

		assert.Equal(t, "first", v.Errors["field"])
	})

	t.Run("blank detection ignores whitespace", func(t *testing.T) {
		v := New()
		v.CheckNotBlank("   ", "name", "must be provided")

		assert.Equal(t, "must be provided", v.Errors["name"])
	})
}

func TestCheckEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.domain.org",
		"user+tag@example.co",
	}
	for _, email := range valid {
		v := New()
		v.CheckEmail(email, "invalid")
		assert.True(t, v.IsValid(), "expected %q to be valid", email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@no-local-part.com",
		"user@",
		"user@.com",
	}
	for _, email := range invalid {
		v := New()
		v.CheckEmail(email, "invalid")
		assert.False(t, v.IsValid(), "expected %q to be invalid", email)
	}
}

func TestIsUnique(t *testing.T) {
	assert.True(t, IsUnique([]string{"a", "b", "c"}))
	assert.True(t, IsUnique(nil))
	assert.False(t, IsUnique([]string{"a", "b", "a"}))
}
