package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectVariants(t *testing.T) {
	obj, err := ParseObject(nil)
	require.NoError(t, err)
	assert.Equal(t, ObjectNone, obj.Kind)

	obj, err = ParseObject(json.RawMessage(`"https://remote.example/notes/1"`))
	require.NoError(t, err)
	assert.Equal(t, ObjectReference, obj.Kind)
	assert.Equal(t, "https://remote.example/notes/1", obj.Ref)

	obj, err = ParseObject(json.RawMessage(`{"type":"Note","id":"n1","content":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, ObjectNote, obj.Kind)
	require.NotNil(t, obj.Note)
	assert.Equal(t, "hi", obj.Note.Content)

	obj, err = ParseObject(json.RawMessage(`{"type":"Video","id":"v1"}`))
	require.NoError(t, err)
	assert.Equal(t, ObjectUnknown, obj.Kind)
}

func TestReplyNote(t *testing.T) {
	note := Note{
		ID:           "n1",
		Type:         "Note",
		AttributedTo: "alice@example.com",
		InReplyTo:    "https://example.com/notes/parent",
		Content:      "a reply",
	}
	raw, err := json.Marshal(note)
	require.NoError(t, err)

	activity := Activity{ID: "a1", Type: "Create", Actor: "carol@other.example", Object: raw}

	got, ok := activity.ReplyNote("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, "n1", got.ID)

	// Attributed to someone else: not a reply for this owner.
	_, ok = activity.ReplyNote("bob@example.com")
	assert.False(t, ok)

	// Not a Create.
	likeActivity := Activity{ID: "a2", Type: "Like", Actor: "carol@other.example", Object: raw}
	_, ok = likeActivity.ReplyNote("alice@example.com")
	assert.False(t, ok)

	// No inReplyTo.
	note.InReplyTo = ""
	raw, err = json.Marshal(note)
	require.NoError(t, err)
	topLevel := Activity{ID: "a3", Type: "Create", Actor: "carol@other.example", Object: raw}
	_, ok = topLevel.ReplyNote("alice@example.com")
	assert.False(t, ok)
}
