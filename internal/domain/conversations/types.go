package conversations

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("conversation not found")
	ErrNotParticipant    = errors.New("user is not part of this conversation")
	QueryTimeoutDuration = time.Second * 5
)

// Conversation is the student↔coach chat channel.
type Conversation struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	CoachID   int64     `json:"coach_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
