package repository_test

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictochat/backend/internal/database"
	"pictochat/backend/internal/model"
	"pictochat/backend/internal/repository"
)

// TestPostgresRepository runs against a real Postgres when
// PICTOCHAT_TEST_POSTGRES_URL is set and is skipped otherwise.
func TestPostgresRepository(t *testing.T) {
	url := os.Getenv("PICTOCHAT_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("PICTOCHAT_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.EnsureSchema(ctx, pool))

	repo := repository.NewPostgresRepository(pool)
	userID := "pg-test-" + time.Now().Format("150405.000000")

	chat, err := repo.CreateChat(ctx, userID, "postgres chat")
	require.NoError(t, err)

	now := time.Now().UTC()
	reply := newMessage(model.RoleAssistant, "pic", now.Add(time.Millisecond))
	reply.IsImage = true
	reply.ImageURL = "https://img"
	require.NoError(t, repo.AddTurn(ctx, chat.ID, newMessage(model.RoleUser, "draw", now), reply))

	chats, err := repo.ListChats(ctx, userID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "draw", chats[0].Messages[0].Content)
	assert.Equal(t, "https://img", chats[0].Messages[1].ImageURL)

	_, err = repo.GetChat(ctx, "does-not-exist")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.SaveSettings(ctx, map[string]string{"pg_test_key": "v"}))
	values, err := repo.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v", values["pg_test_key"])
}

func setupPgxMock(t *testing.T) (*repository.PostgresRepository, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return repository.NewPostgresRepository(mock), mock
}

func TestPostgresRepository_ListChats(t *testing.T) {
	ctx := context.Background()
	chatCols := []string{"id", "user_id", "title", "created_at"}
	msgCols := []string{"id", "chat_id", "content", "role", "image_url", "is_image", "created_at"}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success - Messages are grouped and ordered", func(t *testing.T) {
		// ARRANGE
		repo, mock := setupPgxMock(t)
		url := "https://fal.media/cat.png"
		mock.ExpectQuery(regexp.QuoteMeta("FROM chats WHERE user_id = $1 ORDER BY created_at DESC")).
			WithArgs("user-1").
			WillReturnRows(pgxmock.NewRows(chatCols).
				AddRow("chat-new", "user-1", "second", base.Add(time.Hour)).
				AddRow("chat-old", "user-1", "first", base))
		// Equal timestamps fall back to id order.
		mock.ExpectQuery(regexp.QuoteMeta("JOIN chats c ON c.id = m.chat_id")).
			WithArgs("user-1").
			WillReturnRows(pgxmock.NewRows(msgCols).
				AddRow("m3", "chat-old", "draw a cat", "user", nil, false, base.Add(2*time.Minute)).
				AddRow("m2", "chat-old", "hello!", "assistant", nil, false, base.Add(time.Minute)).
				AddRow("m1", "chat-old", "hi", "user", nil, false, base.Add(time.Minute)).
				AddRow("m4", "chat-old", "caption", "assistant", &url, true, base.Add(3*time.Minute)))

		// ACT
		chats, err := repo.ListChats(ctx, "user-1")

		// ASSERT
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, "chat-new", chats[0].ID)
		assert.NotNil(t, chats[0].Messages)
		assert.Empty(t, chats[0].Messages)

		msgs := chats[1].Messages
		require.Len(t, msgs, 4)
		assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
		assert.Equal(t, model.RoleAssistant, msgs[1].Role)
		assert.Empty(t, msgs[0].ImageURL)
		assert.True(t, msgs[3].IsImage)
		assert.Equal(t, url, msgs[3].ImageURL)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success - No chats skips the message query", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM chats WHERE user_id = $1")).
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(chatCols))

		chats, err := repo.ListChats(ctx, "nobody")

		require.NoError(t, err)
		assert.NotNil(t, chats)
		assert.Empty(t, chats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Query error", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM chats WHERE user_id = $1")).
			WithArgs("user-1").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.ListChats(ctx, "user-1")

		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_GetChat(t *testing.T) {
	ctx := context.Background()

	t.Run("Failure - Not found", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM chats WHERE id = $1")).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetChat(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Other errors are not ErrNotFound", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM chats WHERE id = $1")).
			WithArgs("chat-1").
			WillReturnError(errors.New("timeout"))

		_, err := repo.GetChat(ctx, "chat-1")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestPostgresRepository_AddTurn(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := newMessage(model.RoleUser, "draw a cat", now)
	reply := newMessage(model.RoleAssistant, model.ImageCaption("draw a cat"), now.Add(time.Millisecond))
	reply.ImageURL = "https://img"
	reply.IsImage = true
	insert := regexp.QuoteMeta("INSERT INTO messages")
	lookup := regexp.QuoteMeta("SELECT 1 FROM chats WHERE id = $1")

	t.Run("Success - Both messages in one transaction", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lookup).WithArgs("chat-1").WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
		mock.ExpectExec(insert).
			WithArgs(user.ID, "chat-1", "draw a cat", "user", pgxmock.AnyArg(), false, user.Timestamp).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(insert).
			WithArgs(reply.ID, "chat-1", reply.Content, "assistant", pgxmock.AnyArg(), true, reply.Timestamp).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AddTurn(ctx, "chat-1", user, reply))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Unknown chat rolls back", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lookup).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		err := repo.AddTurn(ctx, "missing", user, reply)

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Second insert rolls back the first", func(t *testing.T) {
		repo, mock := setupPgxMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lookup).WithArgs("chat-1").WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
		mock.ExpectExec(insert).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(insert).WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		err := repo.AddTurn(ctx, "chat-1", user, reply)

		assert.ErrorContains(t, err, "insert assistant message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure - Swapped roles never open a transaction", func(t *testing.T) {
		repo, mock := setupPgxMock(t)

		err := repo.AddTurn(ctx, "chat-1", reply, user)

		assert.ErrorIs(t, err, repository.ErrInvalidTurn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
