package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"mixed case", "GoLang Is Great", "golang-is-great"},
		{"punctuation stripped", "What's up, Doc?!", "whats-up-doc"},
		{"surrounding whitespace", "  padded title  ", "padded-title"},
		{"consecutive spaces collapse", "too   many   spaces", "too-many-spaces"},
		{"brackets and slashes", "a/b (c) [d] {e}", "ab-c-d-e"},
		{"leading and trailing hyphens trimmed", "-edge case-", "edge-case"},
		{"empty title", "", ""},
		{"only punctuation", "?!.,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CreateSlug(tt.title))
		})
	}
}
