package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/adalparedes/adalcore/internal/model"
)

func TestValidateChatRequest(t *testing.T) {
	assert.Error(t, ValidateChatRequest(&model.ChatRequest{}))
	assert.NoError(t, ValidateChatRequest(&model.ChatRequest{UserContent: "hola"}))

	// Attachment-only requests are valid.
	assert.NoError(t, ValidateChatRequest(&model.ChatRequest{
		Attachment: &model.Attachment{MimeType: "image/png", Data: "aGk="},
	}))
	assert.Error(t, ValidateChatRequest(&model.ChatRequest{
		Attachment: &model.Attachment{Data: "aGk="},
	}))

	assert.Error(t, ValidateChatRequest(&model.ChatRequest{
		UserContent: strings.Repeat("x", 100001),
	}))
	assert.Error(t, ValidateChatRequest(&model.ChatRequest{
		UserContent: string([]byte{0xff, 0xfe}),
	}))
}

func TestValidateConversationID(t *testing.T) {
	assert.NoError(t, ValidateConversationID(uuid.NewString()))
	assert.Error(t, ValidateConversationID("not-a-uuid"))
	assert.Error(t, ValidateConversationID(""))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle(""))
	assert.NoError(t, ValidateTitle("un título normal"))
	assert.Error(t, ValidateTitle(strings.Repeat("t", 257)))
}
