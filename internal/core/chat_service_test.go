package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/logger"
)

func chatModel(titleErr error) *fakeModel {
	return &fakeModel{respond: func(_ context.Context, _ int, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Generate a very concise title") {
			if titleErr != nil {
				return "", titleErr
			}
			return "\"Coffee Cart Permits\"\n", nil
		}
		return "  You will need a food vendor permit.  ", nil
	}}
}

func TestChatStartsConversationWithTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	idea := mustIdea(t, s, alice.ID, "Coffee Cart")
	fake := chatModel(nil)
	svc := NewChatService(s, fake, logger.Nop(), "USD", 10)

	reply, err := svc.Chat(ctx, alice.ID, ChatRequest{
		Message:        "What permits do I need?",
		BusinessIdeaID: &idea.ID,
		Params:         testParams,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Message != "You will need a food vendor permit." || reply.ConversationID == 0 {
		t.Fatalf("reply = %+v", reply)
	}
	if !strings.Contains(fake.prompts[0], "Coffee Cart") {
		t.Fatal("chat prompt does not include the idea")
	}

	conv, msgs, err := svc.GetConversation(ctx, alice.ID, reply.ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title == nil || *conv.Title != "Coffee Cart Permits" {
		t.Fatalf("title = %v", conv.Title)
	}
	if len(msgs) != 2 || msgs[0].Content != "What permits do I need?" || msgs[1].Content != reply.Message {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestChatContinuesWithHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	fake := chatModel(nil)
	svc := NewChatService(s, fake, logger.Nop(), "USD", 10)

	first, err := svc.Chat(ctx, alice.ID, ChatRequest{Message: "Hi there", Params: testParams})
	if err != nil {
		t.Fatalf("Chat(first): %v", err)
	}
	second, err := svc.Chat(ctx, alice.ID, ChatRequest{
		Message:        "And insurance?",
		ConversationID: &first.ConversationID,
		Params:         testParams,
	})
	if err != nil {
		t.Fatalf("Chat(second): %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("conversation changed: %d -> %d", first.ConversationID, second.ConversationID)
	}

	last := fake.prompts[len(fake.prompts)-1]
	if !strings.Contains(last, "Conversation so far:\nUser: Hi there\nAssistant: You will need a food vendor permit.") {
		t.Fatalf("history missing from prompt:\n%s", last)
	}
	if fake.calls() != 3 {
		t.Fatalf("calls = %d, want 3 (two answers, one title)", fake.calls())
	}

	convs, err := svc.ListConversations(ctx, alice.ID)
	if err != nil || len(convs) != 1 {
		t.Fatalf("ListConversations = %+v, %v", convs, err)
	}
	_, msgs, _ := svc.GetConversation(ctx, alice.ID, first.ConversationID)
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
}

func TestChatTitleFailureFallsBackToMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	svc := NewChatService(s, chatModel(apierr.ErrModelUnavailable), logger.Nop(), "USD", 10)

	msg := "How should I price espresso drinks for office workers in a busy downtown area?"
	reply, err := svc.Chat(ctx, alice.ID, ChatRequest{Message: msg, Params: testParams})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	conv, _, err := svc.GetConversation(ctx, alice.ID, reply.ConversationID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title == nil || !strings.HasPrefix(msg, strings.TrimSuffix(*conv.Title, "…")) {
		t.Fatalf("title = %v", conv.Title)
	}
}

func TestChatOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@example.com")
	bob := mustUser(t, s, "bob@example.com")
	idea := mustIdea(t, s, alice.ID, "Coffee Cart")
	fake := chatModel(nil)
	svc := NewChatService(s, fake, logger.Nop(), "USD", 10)

	reply, err := svc.Chat(ctx, alice.ID, ChatRequest{Message: "Hello", Params: testParams})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	calls := fake.calls()

	if _, err := svc.Chat(ctx, bob.ID, ChatRequest{Message: "Hello", ConversationID: &reply.ConversationID}); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("foreign conversation err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Chat(ctx, bob.ID, ChatRequest{Message: "Hello", BusinessIdeaID: &idea.ID}); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("foreign idea err = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.GetConversation(ctx, bob.ID, reply.ConversationID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("foreign read err = %v, want ErrNotFound", err)
	}
	if fake.calls() != calls {
		t.Fatal("model was called for a foreign resource")
	}
}
