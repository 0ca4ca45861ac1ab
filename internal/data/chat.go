package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alwanly/social-hub/internal/models"
	"github.com/Alwanly/social-hub/pkg/wrapper"
)

const (
	tableChats            = "chats"
	tableChatParticipants = "chat_participants"
	tableMessages         = "messages"

	procDirectChat = "get_or_create_direct_chat"

	previewLength = 120
)

// ChatsForUser lists the chats userID takes part in, most recent first.
func (f *Facade) ChatsForUser(ctx context.Context, userID string) wrapper.Result[[]models.Chat] {
	if err := required("user_id", userID); err != nil {
		return wrapper.Fail[[]models.Chat](err)
	}
	parts, err := selectAll[models.ChatParticipant](ctx, f.backend, tableChatParticipants, Query{
		Filters: []Filter{Eq("user_id", userID)},
	})
	if err != nil {
		return finish[[]models.Chat](f, "chats_for_user", nil, err)
	}
	if len(parts) == 0 {
		return wrapper.Ok([]models.Chat{})
	}
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.ChatID
	}
	chats, err := selectAll[models.Chat](ctx, f.backend, tableChats, Query{
		Filters: []Filter{In("id", anys(ids))},
		Orders:  []Order{{Column: "last_message_at", Ascending: false}},
	})
	return finish(f, "chats_for_user", chats, err)
}

func (f *Facade) ChatParticipants(ctx context.Context, chatID string) wrapper.Result[[]string] {
	if err := required("chat_id", chatID); err != nil {
		return wrapper.Fail[[]string](err)
	}
	parts, err := selectAll[models.ChatParticipant](ctx, f.backend, tableChatParticipants, Query{
		Filters: []Filter{Eq("chat_id", chatID)},
	})
	ids := make([]string, len(parts))
	for i, p := range parts {
		ids[i] = p.UserID
	}
	return finish(f, "chat_participants", ids, err)
}

// DirectChat returns the one-to-one chat between two users, creating it on
// first use.
func (f *Facade) DirectChat(ctx context.Context, userID, otherID string) wrapper.Result[models.Chat] {
	if err := required("user_id", userID, "other_id", otherID); err != nil {
		return wrapper.Fail[models.Chat](err)
	}
	if userID == otherID {
		return wrapper.Fail[models.Chat](fmt.Errorf("%w: cannot chat with yourself", ErrInvalidArgument))
	}
	var chat models.Chat
	err := f.backend.RPC(ctx, procDirectChat, map[string]any{
		"p_user_a": userID,
		"p_user_b": otherID,
	}, &chat)
	return finish(f, "direct_chat", chat, err)
}

// Messages returns a page of a chat, newest first.
func (f *Facade) Messages(ctx context.Context, chatID string, page Page) wrapper.Result[[]models.Message] {
	if err := required("chat_id", chatID); err != nil {
		return wrapper.Fail[[]models.Message](err)
	}
	msgs, err := selectAll[models.Message](ctx, f.backend, tableMessages, newestFirst(page, Eq("chat_id", chatID)))
	return finish(f, "messages", msgs, err)
}

// SendMessage inserts the message and then moves the chat preview. A failed
// preview update is reported as a warning.
func (f *Facade) SendMessage(ctx context.Context, m models.Message) wrapper.Result[models.Message] {
	m.Content = strings.TrimSpace(m.Content)
	if err := required("chat_id", m.ChatID, "sender_id", m.SenderID); err != nil {
		return wrapper.Fail[models.Message](err)
	}
	if m.Content == "" && m.ImageURL == "" {
		return wrapper.Fail[models.Message](fmt.Errorf("%w: message needs content or an image", ErrInvalidArgument))
	}
	sent, err := insertOne(ctx, f.backend, tableMessages, m)
	if err != nil {
		return finish[models.Message](f, "send_message", models.Message{}, err)
	}

	at := sent.CreatedAt
	if at.IsZero() {
		at = f.now().UTC()
	}
	preview := m.Content
	if preview == "" {
		preview = "Photo"
	}
	if r := []rune(preview); len(r) > previewLength {
		preview = string(r[:previewLength])
	}
	res := wrapper.Ok(sent)
	err = f.backend.Update(ctx, tableChats, []Filter{Eq("id", m.ChatID)}, map[string]any{
		"last_message":    preview,
		"last_message_at": at,
	}, nil)
	if err != nil {
		res = res.WithWarning("message sent but chat preview not updated: " + err.Error())
	}
	return res
}

// MarkRead stamps every unread message in chatID that readerID did not send.
func (f *Facade) MarkRead(ctx context.Context, chatID, readerID string) wrapper.Result[int] {
	if err := required("chat_id", chatID, "reader_id", readerID); err != nil {
		return wrapper.Fail[int](err)
	}
	var updated []models.Message
	err := f.backend.Update(ctx, tableMessages,
		[]Filter{Eq("chat_id", chatID), Neq("sender_id", readerID), IsNull("read_at")},
		map[string]any{"read_at": f.now().UTC()},
		&updated,
	)
	return finish(f, "mark_read", len(updated), err)
}
