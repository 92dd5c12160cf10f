package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Conversation methods
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID int64, ideaID *int64, title *string) (*Conversation, error) {
	ts := now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_conversations (user_id, business_idea_id, title, created_at) VALUES (?, ?, ?, ?)",
		userID, ideaID, title, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation id: %w", err)
	}
	return &Conversation{ID: id, UserID: userID, BusinessIdeaID: ideaID, Title: title, CreatedAt: ts}, nil
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var ideaID sql.NullInt64
	var title sql.NullString
	if err := row.Scan(&conv.ID, &conv.UserID, &ideaID, &title, &conv.CreatedAt); err != nil {
		return nil, err
	}
	if ideaID.Valid {
		conv.BusinessIdeaID = &ideaID.Int64
	}
	if title.Valid {
		conv.Title = &title.String
	}
	return &conv, nil
}

// GetConversation returns ErrNotFound when the conversation is missing or
// owned by someone else.
func (s *SQLiteStore) GetConversation(ctx context.Context, id, userID int64) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, business_idea_id, title, created_at FROM chat_conversations WHERE id = ? AND user_id = ?",
		id, userID)
	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, business_idea_id, title, created_at FROM chat_conversations WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		convs = append(convs, *conv)
	}
	return convs, rows.Err()
}

func (s *SQLiteStore) UpdateConversationTitle(ctx context.Context, id, userID int64, title string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE chat_conversations SET title = ? WHERE id = ? AND user_id = ?", title, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Message methods
func insertMessage(ctx context.Context, db execer, msg *ChatMessage) error {
	msg.CreatedAt = now()
	res, err := db.ExecContext(ctx,
		"INSERT INTO chat_messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	return insertMessage(ctx, s.db, msg)
}

// SaveExchange records one user/assistant exchange atomically. A nil conv
// starts a new conversation for userID bound to ideaID and titled title;
// otherwise conv must already be owned by userID. The returned conversation
// is the one the messages were appended to.
func (s *SQLiteStore) SaveExchange(ctx context.Context, userID int64, conv *Conversation, ideaID *int64, title *string,
	userContent, assistantContent string) (*Conversation, []ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if conv == nil {
		ts := now()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO chat_conversations (user_id, business_idea_id, title, created_at) VALUES (?, ?, ?, ?)",
			userID, ideaID, title, ts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert conversation: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read conversation id: %w", err)
		}
		conv = &Conversation{ID: id, UserID: userID, BusinessIdeaID: ideaID, Title: title, CreatedAt: ts}
	} else {
		var owned int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chat_conversations WHERE id = ? AND user_id = ?",
			conv.ID, userID).Scan(&owned)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check conversation: %w", err)
		}
		if owned == 0 {
			return nil, nil, ErrNotFound
		}
	}

	msgs := []ChatMessage{
		{ConversationID: conv.ID, Role: RoleUser, Content: userContent},
		{ConversationID: conv.ID, Role: RoleAssistant, Content: assistantContent},
	}
	for i := range msgs {
		if err := insertMessage(ctx, tx, &msgs[i]); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit chat exchange: %w", err)
	}
	return conv, msgs, nil
}

func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID int64) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, conversation_id, role, content, created_at FROM chat_messages WHERE conversation_id = ? ORDER BY id ASC",
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetLastNMessages returns the n most recent messages, oldest first.
func (s *SQLiteStore) GetLastNMessages(ctx context.Context, conversationID int64, n int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, conversation_id, role, content, created_at FROM (
            SELECT id, conversation_id, role, content, created_at
            FROM chat_messages
            WHERE conversation_id = ?
            ORDER BY id DESC
            LIMIT ?
        ) ORDER BY id ASC`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]ChatMessage, error) {
	messages := []ChatMessage{}
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
