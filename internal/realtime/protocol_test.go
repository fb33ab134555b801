package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-boutique/support-service/internal/domain"
)

func TestChatMessageDataCarriesAttachments(t *testing.T) {
	raw := []byte(`{"ticketId":"t1","content":"hi","attachments":[{"url":"/uploads/a.png","kind":"image"}]}`)

	var data ChatMessageData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "t1", data.TicketID)
	require.Len(t, data.Attachments, 1)
	assert.Equal(t, "/uploads/a.png", data.Attachments[0].URL)
	assert.Equal(t, domain.AttachmentImage, data.Attachments[0].Kind)

	out, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "/uploads/a.png")
}
