package repositories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type documentStore interface {
	UserRepository
	MemeRepository
	CommentRepository
	NotificationRepository
}

// seeder writes fixtures straight into a backend, bypassing the repository API.
type seeder struct {
	user    func(models.User)
	meme    func(models.Meme)
	comment func(models.Comment)
}

func testDocumentStore(t *testing.T, store documentStore, seed seeder) {
	ctx := context.Background()
	seed.user(models.User{UserID: "u1", UserName: "one", UserToken: "tok"})
	seed.meme(models.Meme{ID: "m1", MemePosterID: "u1", MemePoster: "one"})
	seed.meme(models.Meme{ID: "m2", MemePosterID: "u2"})
	seed.comment(models.Comment{CommentID: "c1", MemeID: "m2", UserID: "u1", UserName: "one"})
	seed.comment(models.Comment{CommentID: "c2", MemeID: "m2", UserID: "u2"})

	t.Run("users", func(t *testing.T) {
		u, err := store.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "tok", u.UserToken)

		require.NoError(t, store.IncrementPosts(ctx, "u1"))
		u, _ = store.GetUser(ctx, "u1")
		assert.Equal(t, int64(1), u.Posts)

		_, err = store.GetUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("memes", func(t *testing.T) {
		memes, err := store.GetMemesByPoster(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, memes, 1)
		assert.Equal(t, "m1", memes[0].ID)

		require.NoError(t, store.SetMuted(ctx, "m1", true))
		require.NoError(t, store.UpdatePoster(ctx, "m1", "uno", "uno.png"))
		require.NoError(t, store.SetThumbnail(ctx, "m1", "https://thumb"))

		m, err := store.GetMeme(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, m.Muted)
		assert.Equal(t, "uno", m.MemePoster)
		assert.Equal(t, "uno.png", m.MemePosterAvatar)
		assert.Equal(t, "https://thumb", m.Thumbnail)

		assert.ErrorIs(t, store.SetMuted(ctx, "missing", true), ErrNotFound)
	})

	t.Run("comments", func(t *testing.T) {
		byMeme, err := store.GetCommentsByMeme(ctx, "m2")
		require.NoError(t, err)
		assert.Len(t, byMeme, 2)

		byUser, err := store.GetCommentsByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.Equal(t, "m2", byUser[0].MemeID)

		require.NoError(t, store.UpdateAuthor(ctx, "m2", "c1", "uno", "uno.png"))
		byUser, _ = store.GetCommentsByUser(ctx, "u1")
		assert.Equal(t, "uno", byUser[0].UserName)

		assert.ErrorIs(t, store.UpdateAuthor(ctx, "m1", "c1", "x", "y"), ErrNotFound)
	})

	t.Run("notifications", func(t *testing.T) {
		n := &models.Notification{ID: store.NewID(), UserID: "u1", Username: "one", NotifiedUserID: "u2", Type: models.NotificationTypeComment}
		require.NoError(t, store.CreateNotification(ctx, n))
		assert.Error(t, store.CreateNotification(ctx, &models.Notification{ID: store.NewID(), UserID: "u1"}))

		byActor, err := store.GetNotificationsByActor(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, byActor, 1)
		assert.Equal(t, models.NotificationTypeComment, byActor[0].Type)

		require.NoError(t, store.UpdateActor(ctx, "u2", n.ID, "uno", "uno.png"))
		byActor, _ = store.GetNotificationsByActor(ctx, "u1")
		assert.Equal(t, "uno", byActor[0].Username)

		assert.ErrorIs(t, store.UpdateActor(ctx, "u1", n.ID, "x", "y"), ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testDocumentStore(t, store, seeder{user: store.PutUser, meme: store.PutMeme, comment: store.PutComment})
}

func TestMemoryStore_FailWrite(t *testing.T) {
	store := NewMemoryStore()
	store.PutMeme(models.Meme{ID: "m1"})
	store.FailWrite = func(op, id string) error {
		if op == "muted" {
			return fmt.Errorf("write %s refused", id)
		}
		return nil
	}

	assert.Error(t, store.SetMuted(context.Background(), "m1", true))
	assert.NoError(t, store.SetThumbnail(context.Background(), "m1", "u"))
	assert.Equal(t, 1, store.Writes())
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("Skipping mongo store tests: MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		t.Skipf("Skipping mongo store tests: mongo not available (%v)", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(fmt.Sprintf("dankmemes_test_%d", time.Now().UnixNano()))
	defer db.Drop(context.Background())

	store := NewMongoStore(db)
	require.NoError(t, store.EnsureIndexes(context.Background()))

	insert := func(coll string, doc interface{}) {
		_, err := db.Collection(coll).InsertOne(context.Background(), doc)
		require.NoError(t, err)
	}
	testDocumentStore(t, store, seeder{
		user:    func(u models.User) { insert(usersCollection, u) },
		meme:    func(m models.Meme) { insert(memesCollection, m) },
		comment: func(c models.Comment) { insert(commentsCollection, c) },
	})
}
