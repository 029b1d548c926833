package notifications

import (
	"context"
	"fmt"
	"strconv"
)

// SendNewMessage notifies the other side of a conversation about a fresh
// chat message. The conversation id is the dedupe discriminator, so rapid
// repeats for the same conversation inside the guard window collapse into
// one push.
func SendNewMessage(ctx context.Context, d *Dispatcher, recipientID, conversationID int64, senderName, preview string) (DispatchResult, error) {
	convID := strconv.FormatInt(conversationID, 10)
	return d.Dispatch(ctx, DispatchRequest{
		RecipientID: recipientID,
		Kind:        "chat_message",
		Title:       "Yeni mesaj",
		Body:        fmt.Sprintf("%s: %s", senderName, truncate(preview, 80)),
		Data: map[string]string{
			"type":            "chat_message",
			"conversation_id": convID,
			"screen":          "conversations/" + convID,
			// client does router.push(`/${data.screen}`)
		},
	})
}
