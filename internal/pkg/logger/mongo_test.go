package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactCommandHidesChatContent(t *testing.T) {
	cmd := `{"insert": "messages","documents": [{"text": "my card is 4111 \"x\"","sender": "user"}]}`

	out := redactCommand(cmd)

	assert.NotContains(t, out, "4111")
	assert.Contains(t, out, `"text":"[REDACTED]"`)
	assert.Contains(t, out, `"sender": "user"`)
}

func TestRedactCommandHidesMemberList(t *testing.T) {
	cmd := `{"update": "workspaces","updates": [{"u": {"$addToSet": {"members": ["a@x.com"]}}}]}`

	out := redactCommand(cmd)

	assert.NotContains(t, out, "a@x.com")
}

func TestRedactCommandTruncates(t *testing.T) {
	out := redactCommand(strings.Repeat("a", maxLoggedCommand+50))

	assert.True(t, strings.HasSuffix(out, "...[truncated]"))
	assert.Len(t, out, maxLoggedCommand+len("...[truncated]"))
}
