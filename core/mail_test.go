package core

import (
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessageRender(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{To: []mail.Address{{Address: "a@test.test"}}, BodyStr: "hello"}
		require.NoError(t, msg.Render("http://front.test"))
		assert.Equal(t, "hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
		assert.True(t, msg.HasContent())
	})

	t.Run("template", func(t *testing.T) {
		msg := &EmailMessage{
			To:           []mail.Address{{Address: "a@test.test"}},
			TemplateName: "invite",
			TemplateData: map[string]interface{}{
				"InviterName": "Ann",
				"GroupName":   "Sunflowers",
				"Code":        "ABCD2345",
				"ExpiresAt":   time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC),
			},
		}
		require.NoError(t, msg.Render("http://front.test"))
		assert.Contains(t, msg.TextContent, "Sunflowers")
		assert.Contains(t, msg.TextContent, "http://front.test/join/ABCD2345")
		assert.Contains(t, msg.HTMLContent, "<strong>Sunflowers</strong>")
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "nope"}
		assert.Error(t, msg.Render("http://front.test"))
	})
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello \n"))
	assert.Equal(t, "hello", CleanString("  Hello ", true))
}
