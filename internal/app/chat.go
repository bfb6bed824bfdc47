package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/domain"
)

// historyWindow is how many earlier turns are replayed into each prompt.
const historyWindow = 5

const Greeting = "Hello! I'm your Nanjing Travel Assistant.\n\n" +
	"I can help you with various questions about traveling in Nanjing, such as:\n" +
	"• What are the must-visit attractions in Nanjing?\n" +
	"• What are the local specialties and food?\n" +
	"• Recommended travel routes\n" +
	"• Accommodation and transportation suggestions\n" +
	"• Historical and cultural information\n\n" +
	"Feel free to ask me anything, I'm happy to help!"

var replyCleaner = strings.NewReplacer("*", "", `\n`, "\n")

type ChatService struct {
	store domain.DocumentStore
	gen   domain.TextGenerator
	favs  *FavoritesService
}

func NewChatService(s domain.DocumentStore, g domain.TextGenerator, favs *FavoritesService) *ChatService {
	return &ChatService{store: s, gen: g, favs: favs}
}

// History returns the stored turns in order; unreadable history is empty.
func (s *ChatService) History(ctx context.Context, userID string) []domain.Message {
	docs, err := s.store.List(ctx, domain.ConversationCollection(userID))
	if err != nil {
		log.Warn().Err(err).Str("context", "ChatService.History").Str("user", userID).Msg("history read failed")
		return []domain.Message{}
	}
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		var raw map[string]any
		if err := d.Decode(&raw); err != nil || raw == nil {
			continue
		}
		out = append(out, domain.Message{Text: lookupStr(raw, "text"), IsUser: firstBool(raw, "isUser")})
	}
	return out
}

// Transcript is the history, or the greeting when there is none yet.
func (s *ChatService) Transcript(ctx context.Context, userID string) []domain.Message {
	if h := s.History(ctx, userID); len(h) > 0 {
		return h
	}
	return []domain.Message{{Text: Greeting}}
}

// Ask sends the question with recent context and persists both turns.
// History is left untouched when the generator fails.
func (s *ChatService) Ask(ctx context.Context, userID, prompt string) (domain.Message, error) {
	prompt = strings.TrimSpace(prompt)
	if userID == "" || prompt == "" {
		return domain.Message{}, fmt.Errorf("ask: %w", domain.ErrInvalidArgument)
	}

	history := s.History(ctx, userID)
	full := BuildPrompt(s.preferences(ctx, userID), history, prompt)

	answer, err := s.gen.Generate(ctx, full)
	if err != nil {
		log.Error().Err(err).Str("context", "ChatService.Ask").Str("user", userID).Msg("generator failed")
		return domain.Message{}, fmt.Errorf("ask: %w", remote(err))
	}
	reply := domain.Message{Text: FormatReply(answer)}

	history = append(history, domain.Message{Text: prompt, IsUser: true}, reply)
	if err := s.save(ctx, userID, history); err != nil {
		// the answer is still useful to the caller
		log.Error().Err(err).Str("user", userID).Msg("saving conversation history failed")
	}
	return reply, nil
}

func (s *ChatService) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("reset chat: %w", domain.ErrInvalidArgument)
	}
	if err := s.save(ctx, userID, nil); err != nil {
		return fmt.Errorf("reset chat: %w", err)
	}
	return nil
}

// save rewrites the history as "0","1",... so it lists back in order.
func (s *ChatService) save(ctx context.Context, userID string, history []domain.Message) error {
	docs := make(map[string]any, len(history))
	for i, m := range history {
		docs[strconv.Itoa(i)] = m
	}
	return remote(s.store.Replace(ctx, domain.ConversationCollection(userID), docs))
}

func (s *ChatService) preferences(ctx context.Context, userID string) string {
	if s.favs == nil {
		return ""
	}
	favs := s.favs.List(ctx, userID)
	if len(favs) == 0 {
		return ""
	}
	names := make([]string, 0, len(favs))
	for _, f := range favs {
		names = append(names, f.Name)
	}
	return "User's favorite locations: " + strings.Join(names, ", ")
}

// BuildPrompt frames the question with the assistant role, the user's
// preferences and the last few turns.
func BuildPrompt(preferences string, history []domain.Message, question string) string {
	var b strings.Builder
	b.WriteString("You are a travel assistant for Nanjing, China.\n\n")
	if strings.TrimSpace(preferences) != "" {
		b.WriteString("User preferences:\n" + preferences + "\n\n")
	}
	if len(history) > 0 {
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
		b.WriteString("Previous conversation:\n")
		for _, m := range history {
			who := "Assistant"
			if m.IsUser {
				who = "User"
			}
			b.WriteString(who + ": " + m.Text + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Current question: " + question)
	return b.String()
}

// FormatReply strips markdown emphasis and unescapes literal "\n".
func FormatReply(s string) string {
	return strings.TrimSpace(replyCleaner.Replace(s))
}
