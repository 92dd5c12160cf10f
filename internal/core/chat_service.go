package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"innostart.pro/innostart/internal/logger"
	"innostart.pro/innostart/internal/store"
)

const (
	titleTimeout  = 10 * time.Second
	maxTitleRunes = 60
)

type ChatService struct {
	dbStore      *store.SQLiteStore
	model        Model
	log          *logger.Logger
	currency     string
	historyLimit int
}

func NewChatService(db *store.SQLiteStore, model Model, log *logger.Logger, currency string, historyLimit int) *ChatService {
	if currency == "" {
		currency = "USD"
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &ChatService{
		dbStore:      db,
		model:        model,
		log:          log,
		currency:     currency,
		historyLimit: historyLimit,
	}
}

// ChatRequest is one user turn. Without ConversationID a new conversation
// is started, optionally about BusinessIdeaID.
type ChatRequest struct {
	Message        string
	ConversationID *int64
	BusinessIdeaID *int64
	Params         GenerationParams
}

type ChatReply struct {
	ConversationID int64
	Message        string
}

// Chat answers one user message. Nothing is written until the model has
// answered; the user and assistant turns are then stored together.
func (s *ChatService) Chat(ctx context.Context, userID int64, req ChatRequest) (*ChatReply, error) {
	var (
		conv    *store.Conversation
		history []Turn
		ideaID  = req.BusinessIdeaID
	)
	if req.ConversationID != nil {
		var err error
		conv, err = s.dbStore.GetConversation(ctx, *req.ConversationID, userID)
		if err != nil {
			return nil, err
		}
		ideaID = conv.BusinessIdeaID
		msgs, err := s.dbStore.GetLastNMessages(ctx, conv.ID, s.historyLimit)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			history = append(history, Turn{Role: m.Role, Content: m.Content})
		}
	}

	var ideaCtx *IdeaContext
	if ideaID != nil {
		idea, err := s.dbStore.GetIdea(ctx, *ideaID, userID)
		if err != nil {
			return nil, err
		}
		ideaCtx = ideaContextFrom(idea)
	}

	prompt, err := BuildPrompt(PromptInput{
		Intent:   IntentChat,
		Input:    req.Message,
		Location: req.Params.Location,
		Budget:   req.Params.Budget,
		Sector:   req.Params.Sector,
		Currency: s.currency,
		Idea:     ideaCtx,
		History:  history,
	})
	if err != nil {
		return nil, err
	}
	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)

	var title *string
	if conv == nil {
		t := s.generateTitle(ctx, req.Message)
		title = &t
	}
	conv, _, err = s.dbStore.SaveExchange(ctx, userID, conv, ideaID, title, req.Message, answer)
	if err != nil {
		return nil, err
	}
	return &ChatReply{ConversationID: conv.ID, Message: answer}, nil
}

// generateTitle asks the model for a short title and falls back to the
// start of the message when that fails.
func (s *ChatService) generateTitle(ctx context.Context, firstMessage string) string {
	fallback := truncateRunes(strings.TrimSpace(firstMessage), maxTitleRunes)

	titleCtx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()
	title, err := s.model.Generate(titleCtx, TitlePrompt(firstMessage))
	if err != nil {
		s.log.Warn("Failed to generate conversation title", "error", err)
		return fallback
	}
	title = strings.Trim(title, "\"'\n\r\t .*#")
	if title == "" {
		return fallback
	}
	return truncateRunes(title, maxTitleRunes)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func (s *ChatService) ListConversations(ctx context.Context, userID int64) ([]store.Conversation, error) {
	return s.dbStore.ListConversations(ctx, userID)
}

func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID int64) (*store.Conversation, []store.ChatMessage, error) {
	conv, err := s.dbStore.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.dbStore.GetMessages(ctx, conv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for conversation: %w", err)
	}
	return conv, messages, nil
}
