package models

import (
	"strings"
	"time"
)

// ChatMessage is one append-only message in a trade's chat. Messages are
// never edited or deleted by normal flow; display order is created_at
// ascending.
type ChatMessage struct {
	ID        string    `json:"id" bson:"_id"`
	TradeID   string    `json:"trade_id" bson:"trade_id"`
	SenderID  string    `json:"sender_id" bson:"sender_id"`
	Body      string    `json:"body" bson:"body"`
	Flagged   bool      `json:"flagged" bson:"flagged"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

func (r *SendMessageRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Body) == "" {
		errors["body"] = "Message cannot be empty"
	} else if len(r.Body) > 2000 {
		errors["body"] = "Message is too long"
	}

	return errors
}
