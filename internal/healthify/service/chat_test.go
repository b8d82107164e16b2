package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/internal/healthify/domain"
	"github.com/aussiebroadwan/healthify/internal/healthify/service"
)

func TestReply(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"How many CALORIES in an apple?", "You can log your meals and I'll calculate your calories for you!"},
		{"should I drink water", "Remember to drink at least 2.5L of water daily. Want to log your water intake?"},
		{"what is my BMI", "Your BMI is calculated from your height and weight. Would you like to update your profile?"},
		{"calorie and water", "You can log your meals and I'll calculate your calories for you!"},
		{"hello", "I'm here to help with your health, nutrition, and wellness questions!"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, service.Reply(tt.in))
		})
	}
}

func TestChatService(t *testing.T) {
	chat := &service.ChatService{Clock: fixedClock()}

	h := chat.History("u1")
	require.Len(t, h, 1)
	require.Equal(t, service.ChatGreeting, h[0].Text)
	require.Equal(t, domain.SenderBot, h[0].Sender)

	_, _, err := chat.Send("u1", "   ")
	require.ErrorIs(t, err, service.ErrInvalidInput)

	user, bot, err := chat.Send("u1", "water?")
	require.NoError(t, err)
	require.Equal(t, domain.SenderUser, user.Sender)
	require.Equal(t, domain.SenderBot, bot.Sender)
	require.Less(t, user.ID, bot.ID)

	h = chat.History("u1")
	require.Len(t, h, 3)
	require.Equal(t, "water?", h[1].Text)

	// Transcripts are per user.
	require.Len(t, chat.History("u2"), 1)

	chat.Forget("u1")
	require.Len(t, chat.History("u1"), 1)
}
