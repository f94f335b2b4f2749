package bot

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// discordMessageLimit is the hard cap Discord places on message length,
// counted in characters, not bytes.
const discordMessageLimit = 2000

// Bot connects the command handler to a Discord gateway session.
type Bot struct {
	session *discordgo.Session
	handler *CommandHandler
}

// New creates a Discord bot for the given token.
func New(token string, handler *CommandHandler) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{session: session, handler: handler}
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

// Open starts the gateway connection.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	slog.Info("discord bot connected", "user", b.session.State.User.Username)
	return nil
}

// Close shuts down the gateway connection.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	replies := b.handler.HandleMessage(context.Background(), m.Content)
	for _, reply := range replies {
		for _, chunk := range splitMessage(reply) {
			if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
				slog.Warn("failed to send discord reply", "channel", m.ChannelID, "error", err)
			}
		}
	}
}

// splitMessage cuts a reply into chunks under the Discord message limit,
// always on rune boundaries so Japanese text is never cut mid-character.
func splitMessage(s string) []string {
	if utf8.RuneCountInString(s) <= discordMessageLimit {
		return []string{s}
	}

	var chunks []string
	runes := []rune(s)
	for len(runes) > discordMessageLimit {
		chunks = append(chunks, string(runes[:discordMessageLimit]))
		runes = runes[discordMessageLimit:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
