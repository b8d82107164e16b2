package domain

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}
