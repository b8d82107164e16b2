package service

import (
	"strings"
	"sync"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/pkg/idx"
)

const (
	ChatGreeting = "Hi! I'm your AI Health Assistant. How can I help you today?"

	replyCalorie  = "You can log your meals and I'll calculate your calories for you!"
	replyWater    = "Remember to drink at least 2.5L of water daily. Want to log your water intake?"
	replyBMI      = "Your BMI is calculated from your height and weight. Would you like to update your profile?"
	replyFallback = "I'm here to help with your health, nutrition, and wellness questions!"
)

// maxChatHistory bounds the per-user transcript kept in memory.
const maxChatHistory = 200

// ChatService is the placeholder assistant. Transcripts live in memory only
// and start with the greeting.
type ChatService struct {
	Clock Clock

	mu      sync.Mutex
	history map[string][]domain.ChatMessage
}

// Reply picks the canned answer for text. Keywords match case-insensitively
// in the order calorie, water, bmi.
func Reply(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "calorie"):
		return replyCalorie
	case strings.Contains(t, "water"):
		return replyWater
	case strings.Contains(t, "bmi"):
		return replyBMI
	default:
		return replyFallback
	}
}

// History returns the user's transcript, oldest first.
func (s *ChatService) History(userID string) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.transcriptLocked(userID)...)
}

// Send records the user's message and the bot's answer and returns both.
// Blank messages are ignored.
func (s *ChatService) Send(userID, text string) (user, bot domain.ChatMessage, err error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, domain.ChatMessage{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock.now()
	user = domain.ChatMessage{ID: idx.NewAt(now).String(), Text: text, Sender: domain.SenderUser, CreatedAt: now}
	bot = domain.ChatMessage{ID: idx.NewAt(now).String(), Text: Reply(text), Sender: domain.SenderBot, CreatedAt: now}

	msgs := append(s.transcriptLocked(userID), user, bot)
	if len(msgs) > maxChatHistory {
		msgs = msgs[len(msgs)-maxChatHistory:]
	}
	s.history[userID] = msgs
	return user, bot, nil
}

// Forget drops the user's transcript, e.g. on sign-out.
func (s *ChatService) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
}

func (s *ChatService) transcriptLocked(userID string) []domain.ChatMessage {
	if s.history == nil {
		s.history = make(map[string][]domain.ChatMessage)
	}
	msgs, ok := s.history[userID]
	if !ok {
		msgs = []domain.ChatMessage{{
			ID:        idx.NewAt(s.Clock.now()).String(),
			Text:      ChatGreeting,
			Sender:    domain.SenderBot,
			CreatedAt: s.Clock.now(),
		}}
		s.history[userID] = msgs
	}
	return msgs
}
