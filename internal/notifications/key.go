package notifications

import (
	"fmt"
	"strconv"
)

// maxKeyTextLen bounds how much of a message body is folded into a dedupe
// key. Long chat messages would otherwise produce unbounded keys; a 40-rune
// prefix is collision-resistant enough in practice for the guard window.
const maxKeyTextLen = 40

// DedupeKey identifies logically-equivalent notification requests so that
// repeats inside the guard window can be suppressed. Two requests for the
// same recipient, kind and discriminator always produce the same key.
func DedupeKey(recipientID int64, kind, discriminator string) string {
	return fmt.Sprintf("%s|%s|%s", strconv.FormatInt(recipientID, 10), kind, discriminator)
}

// MessageKey derives the dedupe key used by session coordinators for chat
// messages: the conversation plus a bounded prefix of the message text.
func MessageKey(conversationID, text string) string {
	return "msg|" + conversationID + "|" + truncate(text, maxKeyTextLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
