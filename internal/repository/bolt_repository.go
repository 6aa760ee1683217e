package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"pictochat/backend/internal/database"
	"pictochat/backend/internal/model"
)

// BoltRepository implements Repository and SettingsRepository on an embedded
// bbolt file. Chats and messages are stored as JSON values.
type BoltRepository struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltRepository wraps a database opened with database.OpenBolt.
func NewBoltRepository(db *bolt.DB) *BoltRepository {
	return &BoltRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type boltChat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (c boltChat) toModel() model.Chat {
	return model.Chat{ID: c.ID, Title: c.Title, UserID: c.UserID, CreatedAt: c.CreatedAt, Messages: []model.Message{}}
}

func (r *BoltRepository) CreateChat(ctx context.Context, userID, title string) (*model.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := boltChat{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: r.now()}
	enc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("could not encode chat: %w", err)
	}
	err = r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(database.BucketChats).Put([]byte(rec.ID), enc)
	})
	if err != nil {
		return nil, fmt.Errorf("could not insert chat: %w", err)
	}
	chat := rec.toModel()
	return &chat, nil
}

func (r *BoltRepository) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var chat model.Chat
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(database.BucketChats).Get([]byte(chatID))
		if v == nil {
			return ErrNotFound
		}
		var rec boltChat
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("could not decode chat %s: %w", chatID, err)
		}
		chat = rec.toModel()
		msgs, err := readMessages(tx, chatID)
		chat.Messages = msgs
		return err
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *BoltRepository) ListChats(ctx context.Context, userID string) ([]model.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chats := []model.Chat{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(database.BucketChats).ForEach(func(k, v []byte) error {
			var rec boltChat
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("could not decode chat %s: %w", k, err)
			}
			if rec.UserID != userID {
				return nil
			}
			chat := rec.toModel()
			msgs, err := readMessages(tx, rec.ID)
			if err != nil {
				return err
			}
			chat.Messages = msgs
			chats = append(chats, chat)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not list chats: %w", err)
	}
	sortChats(chats)
	return chats, nil
}

// AddTurn writes both messages in one bolt transaction.
func (r *BoltRepository) AddTurn(ctx context.Context, chatID string, user, assistant model.Message) error {
	if !validTurn(user, assistant) {
		return ErrInvalidTurn
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(database.BucketChats).Get([]byte(chatID)) == nil {
			return ErrNotFound
		}
		b, err := tx.Bucket(database.BucketMessages).CreateBucketIfNotExists([]byte(chatID))
		if err != nil {
			return fmt.Errorf("could not open message bucket: %w", err)
		}
		for _, m := range []model.Message{user, assistant} {
			m.Unsent = false
			m.Timestamp = m.Timestamp.UTC()
			enc, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("could not encode %s message: %w", m.Role, err)
			}
			if err := b.Put([]byte(m.ID), enc); err != nil {
				return fmt.Errorf("could not insert %s message: %w", m.Role, err)
			}
		}
		return nil
	})
}

func readMessages(tx *bolt.Tx, chatID string) ([]model.Message, error) {
	msgs := []model.Message{}
	b := tx.Bucket(database.BucketMessages).Bucket([]byte(chatID))
	if b == nil {
		return msgs, nil
	}
	err := b.ForEach(func(k, v []byte) error {
		var m model.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("could not decode message %s: %w", k, err)
		}
		msgs = append(msgs, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortMessages(msgs)
	return msgs, nil
}

func (r *BoltRepository) LoadSettings(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := make(map[string]string)
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(database.BucketSettings).ForEach(func(k, v []byte) error {
			values[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not load settings: %w", err)
	}
	return values, nil
}

func (r *BoltRepository) SaveSettings(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(database.BucketSettings)
		for _, k := range sortedKeys(values) {
			if err := b.Put([]byte(k), []byte(values[k])); err != nil {
				return fmt.Errorf("could not save setting %s: %w", k, err)
			}
		}
		return nil
	})
}
