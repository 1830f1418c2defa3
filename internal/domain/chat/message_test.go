package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	first := NewMessage(RoleUser, "hello")
	second := NewMessage(RoleUser, "hello")

	assert.Equal(t, RoleUser, first.Role)
	assert.Equal(t, "hello", first.Text)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Nil(t, first.Recipe)
}

func TestTranscriptAppend(t *testing.T) {
	var tr Transcript

	tr.Append(NewMessage(RoleUser, "what should I eat?"))
	tr.Append(NewMessage(RoleAssistant, "How about oats?"))

	require.Len(t, tr.Messages, 2)
	assert.Equal(t, RoleUser, tr.Messages[0].Role)
	assert.Equal(t, RoleAssistant, tr.Messages[1].Role)
	assert.Equal(t, 0, tr.Generation)
}

func TestTranscriptReset(t *testing.T) {
	var tr Transcript
	tr.Append(NewMessage(RoleUser, "hi"))

	tr.Reset()

	assert.Empty(t, tr.Messages)
	assert.Equal(t, 1, tr.Generation)

	// A later response captured against the old generation must be detectable
	tr.Reset()
	assert.Equal(t, 2, tr.Generation)
}
