package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMessage(t *testing.T) {
	brand := Brand{AppName: "Weekly", CompanyName: "Acme", UnsubscribeURL: "https://acme.test/unsubscribe"}
	data := NewMessageData(brand, "Jane Doe", "jane@example.com", "Issue #1",
		`<p>Read <a href="https://acme.test/1">this</a></p>`,
		WithPlainContent("Read this"))

	subject, text, html, err := Render(Message, data)
	require.NoError(t, err)

	assert.Equal(t, "Issue #1", subject)
	assert.Contains(t, text, "Hi Jane Doe,")
	assert.Contains(t, text, "Read this")
	assert.Contains(t, text, "Weekly by Acme")
	assert.Contains(t, text, "Unsubscribe: https://acme.test/unsubscribe")
	assert.Contains(t, html, `<a href="https://acme.test/1">this</a>`)
	assert.Contains(t, html, "<title>Issue #1</title>")
}

func TestRenderMessageDefaults(t *testing.T) {
	data := NewMessageData(Brand{}, "", "x@example.com", "Hello", "body")

	_, text, html, err := Render(Message, data)
	require.NoError(t, err)

	assert.Contains(t, text, "Hi there,")
	assert.Contains(t, text, "Newsletter")
	assert.NotContains(t, html, "Unsubscribe")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("missing", nil)
	assert.Error(t, err)
}
