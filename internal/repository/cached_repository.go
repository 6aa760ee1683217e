package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pictochat/backend/internal/model"
)

const ownerKeyTTL = 24 * time.Hour

// cachedRepository keeps each user's chat list in Redis. Cached lists are
// keyed by a per-user generation that every write bumps after reaching the
// underlying store, so a list read before a write is never served after it.
// Redis failures are logged and never fail the call.
type cachedRepository struct {
	Repository
	rdb redis.Cmdable
	ttl time.Duration
}

// NewCachedRepository decorates inner with a Redis cache for ListChats.
func NewCachedRepository(inner Repository, rdb redis.Cmdable, ttl time.Duration) Repository {
	return &cachedRepository{Repository: inner, rdb: rdb, ttl: ttl}
}

func chatListKey(userID string, gen int64) string { return fmt.Sprintf("user:%s:chats:%d", userID, gen) }
func chatGenKey(userID string) string { return fmt.Sprintf("user:%s:chats:gen", userID) }
func chatOwnerKey(chatID string) string { return fmt.Sprintf("chat:%s:owner", chatID) }

func (r *cachedRepository) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	chat, err := r.Repository.CreateChat(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, chatOwnerKey(chat.ID), userID, ownerKeyTTL).Err(); err != nil {
		slog.Warn("Failed to cache chat owner", "chat_id", chat.ID, "error", err)
	}
	r.invalidate(ctx, userID)
	return chat, nil
}

func (r *cachedRepository) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	gen, err := r.rdb.Get(ctx, chatGenKey(userID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		gen = 0
	case err != nil:
		slog.Warn("Failed to read chat list generation", "user_id", userID, "error", err)
		return r.Repository.ListChats(ctx, userID)
	}

	key := chatListKey(userID, gen)
	val, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var chats []model.Chat
		if jsonErr := json.Unmarshal(val, &chats); jsonErr == nil {
			return chats, nil
		}
		slog.Warn("Discarding undecodable cached chat list", "user_id", userID)
	case !errors.Is(err, redis.Nil):
		slog.Warn("Failed to read cached chat list", "user_id", userID, "error", err)
	}

	chats, err := r.Repository.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A write that lands meanwhile moves the generation on, leaving this
	// entry unreachable until it expires.
	data, err := json.Marshal(chats)
	if err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			slog.Warn("Failed to cache chat list", "user_id", userID, "error", err)
		}
	}
	return chats, nil
}

func (r *cachedRepository) AddTurn(ctx context.Context, chatID string, user, assistant model.Message) error {
	if err := r.Repository.AddTurn(ctx, chatID, user, assistant); err != nil {
		return err
	}

	owner, err := r.rdb.Get(ctx, chatOwnerKey(chatID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Failed to read chat owner", "chat_id", chatID, "error", err)
		}
		chat, getErr := r.Repository.GetChat(ctx, chatID)
		if getErr != nil {
			slog.Warn("Could not resolve chat owner for cache invalidation", "chat_id", chatID, "error", getErr)
			return nil
		}
		owner = chat.UserID
	}
	r.invalidate(ctx, owner)
	return nil
}

func (r *cachedRepository) invalidate(ctx context.Context, userID string) {
	if err := r.rdb.Incr(ctx, chatGenKey(userID)).Err(); err != nil {
		slog.Warn("Failed to invalidate cached chat list", "user_id", userID, "error", err)
	}
}
