package local

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/models"
)

const directChatQuery = `SELECT cp1.chat_id FROM chat_participants cp1
JOIN chat_participants cp2 ON cp2.chat_id = cp1.chat_id
JOIN chats c ON c.id = cp1.chat_id
WHERE cp1.user_id = ? AND cp2.user_id = ? AND c.is_group = ?
LIMIT 1`

// RPC runs the stored procedures the hosted database defines.
func (t *Tables) RPC(ctx context.Context, fn string, params map[string]any, out any) error {
	var (
		result any
		events []models.ChangeEvent
	)
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch fn {
		case "toggle_like":
			result, events, err = t.toggleLike(tx, param(params, "p_post_id"), param(params, "p_user_id"))
		case "get_or_create_direct_chat":
			result, events, err = t.directChat(tx, param(params, "p_user_a"), param(params, "p_user_b"))
		default:
			err = fmt.Errorf("%w: %q", data.ErrUnknownProcedure, fn)
		}
		return err
	})
	if err != nil {
		return mapError(err)
	}
	t.publish(ctx, events)
	return transcode(result, out)
}

func param(params map[string]any, key string) string {
	if v, ok := params[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// toggleLike removes the caller's like when present and adds it otherwise.
// The unique (post_id, user_id) index rejects a concurrent duplicate.
func (t *Tables) toggleLike(tx *gorm.DB, postID, userID string) (models.LikeToggle, []models.ChangeEvent, error) {
	if postID == "" || userID == "" {
		return models.LikeToggle{}, nil, fmt.Errorf("%w: post and user are required", data.ErrInvalidArgument)
	}
	var post models.Post
	if err := tx.Where("id = ?", postID).Take(&post).Error; err != nil {
		return models.LikeToggle{}, nil, err
	}

	var existing []models.Like
	if err := tx.Where("post_id = ? AND user_id = ?", postID, userID).Limit(1).Find(&existing).Error; err != nil {
		return models.LikeToggle{}, nil, err
	}

	var (
		events []models.ChangeEvent
		err    error
		liked  bool
	)
	if len(existing) > 0 {
		events, err = t.deleteTx(tx, "likes", []data.Filter{data.Eq("id", existing[0].ID)})
	} else {
		liked = true
		events, err = t.insertTx(tx, "likes", &models.Like{PostID: postID, UserID: userID})
	}
	if err != nil {
		return models.LikeToggle{}, nil, err
	}

	if err := tx.Where("id = ?", postID).Take(&post).Error; err != nil {
		return models.LikeToggle{}, nil, err
	}
	return models.LikeToggle{Liked: liked, LikesCount: post.LikesCount}, events, nil
}

func (t *Tables) directChat(tx *gorm.DB, userA, userB string) (models.Chat, []models.ChangeEvent, error) {
	if userA == "" || userB == "" || userA == userB {
		return models.Chat{}, nil, fmt.Errorf("%w: two distinct users are required", data.ErrInvalidArgument)
	}

	var chatID string
	if err := tx.Raw(directChatQuery, userA, userB, false).Scan(&chatID).Error; err != nil {
		return models.Chat{}, nil, err
	}
	if chatID != "" {
		var chat models.Chat
		err := tx.Where("id = ?", chatID).Take(&chat).Error
		return chat, nil, err
	}

	chat := &models.Chat{IsGroup: false}
	events, err := t.insertTx(tx, "chats", chat)
	if err != nil {
		return models.Chat{}, nil, err
	}
	for _, user := range []string{userA, userB} {
		evs, err := t.insertTx(tx, "chat_participants", &models.ChatParticipant{ChatID: chat.ID, UserID: user})
		if err != nil {
			return models.Chat{}, nil, err
		}
		events = append(events, evs...)
	}
	return *chat, events, nil
}
