package services

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPropagation(store *repositories.MemoryStore) models.User {
	user := models.User{UserID: "u1", UserName: "old", UserAvatar: "old.png"}
	store.PutUser(user)
	store.PutMeme(models.Meme{ID: "m1", MemePosterID: "u1", MemePoster: "old", MemePosterAvatar: "old.png"})
	store.PutMeme(models.Meme{ID: "m2", MemePosterID: "u1", MemePoster: "old", MemePosterAvatar: "old.png"})
	store.PutMeme(models.Meme{ID: "m3", MemePosterID: "other", MemePoster: "someone"})
	store.PutComment(models.Comment{CommentID: "c1", MemeID: "m3", UserID: "u1", UserName: "old", UserAvatar: "old.png"})
	store.PutComment(models.Comment{CommentID: "c2", MemeID: "m3", UserID: "other", UserName: "someone"})
	store.PutNotification(models.Notification{ID: "n1", UserID: "u1", Username: "old", UserAvatar: "old.png", NotifiedUserID: "other"})
	store.PutNotification(models.Notification{ID: "n2", UserID: "other", Username: "someone", NotifiedUserID: "u1"})
	return user
}

func newPropagationFixture(cfg PropagationConfig) (*PropagationEngine, *repositories.MemoryStore, models.User) {
	store := repositories.NewMemoryStore()
	user := seedPropagation(store)
	return NewPropagationEngine(store, store, store, cfg), store, user
}

func TestOnUserUpdated_MuteTouchesOnlyMemes(t *testing.T) {
	engine, store, before := newPropagationFixture(PropagationConfig{MuteExclusive: true})
	after := before
	after.Muted = true

	report := engine.OnUserUpdated(context.Background(), &before, after)

	require.False(t, report.Failed())
	require.Len(t, report.Branches, 1)
	b, ok := report.Branch(TargetMemeVisibility)
	require.True(t, ok)
	assert.Equal(t, 2, b.Updated)
	assert.Equal(t, 2, store.Writes())

	for _, id := range []string{"m1", "m2"} {
		m, _ := store.GetMeme(context.Background(), id)
		assert.True(t, m.Muted, id)
	}
	other, _ := store.GetMeme(context.Background(), "m3")
	assert.False(t, other.Muted)
}

func TestOnUserUpdated_Unmute(t *testing.T) {
	engine, store, user := newPropagationFixture(PropagationConfig{MuteExclusive: true})
	for _, id := range []string{"m1", "m2"} {
		require.NoError(t, store.SetMuted(context.Background(), id, true))
	}
	before := user
	before.Muted = true
	after := user

	report := engine.OnUserUpdated(context.Background(), &before, after)

	require.False(t, report.Failed())
	for _, id := range []string{"m1", "m2"} {
		m, _ := store.GetMeme(context.Background(), id)
		assert.False(t, m.Muted, id)
	}
}

func TestOnUserUpdated_ProfileChangeRewritesCopies(t *testing.T) {
	engine, store, before := newPropagationFixture(PropagationConfig{MuteExclusive: true})
	after := before
	after.UserName = "new"
	after.UserAvatar = "new.png"

	report := engine.OnUserUpdated(context.Background(), &before, after)

	require.False(t, report.Failed())
	assert.Len(t, report.Branches, 3)

	for _, id := range []string{"m1", "m2"} {
		m, _ := store.GetMeme(context.Background(), id)
		assert.Equal(t, "new", m.MemePoster)
		assert.Equal(t, "new.png", m.MemePosterAvatar)
	}
	c, _ := store.Comment("m3", "c1")
	assert.Equal(t, "new", c.UserName)
	assert.Equal(t, "new.png", c.UserAvatar)
	untouched, _ := store.Comment("m3", "c2")
	assert.Equal(t, "someone", untouched.UserName)

	n := store.Notifications("other")
	require.Len(t, n, 1)
	assert.Equal(t, "new", n[0].Username)
	assert.Equal(t, "new.png", n[0].UserAvatar)
	assert.Equal(t, "someone", store.Notifications("u1")[0].Username)

	other, _ := store.GetMeme(context.Background(), "m3")
	assert.Equal(t, "someone", other.MemePoster)
	assert.False(t, other.Muted)
}

func TestOnUserUpdated_NoOp(t *testing.T) {
	engine, store, before := newPropagationFixture(PropagationConfig{})

	t.Run("unchanged", func(t *testing.T) {
		after := before
		after.UserToken = "new-device"
		after.Posts = 10
		report := engine.OnUserUpdated(context.Background(), &before, after)
		assert.Equal(t, "nothing changed", report.NoOp)
	})

	t.Run("no previous snapshot", func(t *testing.T) {
		report := engine.OnUserUpdated(context.Background(), nil, before)
		assert.NotEmpty(t, report.NoOp)
	})

	assert.Equal(t, 0, store.Writes())
}

func TestOnUserUpdated_MuteAndRename(t *testing.T) {
	t.Run("exclusive", func(t *testing.T) {
		engine, store, before := newPropagationFixture(PropagationConfig{MuteExclusive: true})
		after := before
		after.Muted = true
		after.UserName = "new"

		report := engine.OnUserUpdated(context.Background(), &before, after)

		assert.Len(t, report.Branches, 1)
		m, _ := store.GetMeme(context.Background(), "m1")
		assert.True(t, m.Muted)
		assert.Equal(t, "old", m.MemePoster)
	})

	t.Run("combined", func(t *testing.T) {
		engine, store, before := newPropagationFixture(PropagationConfig{MuteExclusive: false})
		after := before
		after.Muted = true
		after.UserName = "new"

		report := engine.OnUserUpdated(context.Background(), &before, after)

		assert.Len(t, report.Branches, 4)
		m, _ := store.GetMeme(context.Background(), "m1")
		assert.True(t, m.Muted)
		assert.Equal(t, "new", m.MemePoster)
	})
}

func TestOnUserUpdated_SkipsNotificationWithoutRecipient(t *testing.T) {
	engine, store, before := newPropagationFixture(PropagationConfig{})
	store.PutNotification(models.Notification{ID: "n3", UserID: "u1", Username: "old"})
	after := before
	after.UserName = "new"

	report := engine.OnUserUpdated(context.Background(), &before, after)

	b, ok := report.Branch(TargetNotifications)
	require.True(t, ok)
	assert.Equal(t, 2, b.Matched)
	assert.Equal(t, 1, b.Updated)
	assert.Equal(t, 1, b.Skipped)
	assert.False(t, report.Failed())
}

func TestOnUserUpdated_PartialFailure(t *testing.T) {
	engine, store, before := newPropagationFixture(PropagationConfig{Concurrency: 1})
	store.FailWrite = func(op, id string) error {
		if op == "poster" && id == "m1" {
			return errors.New("deadline exceeded")
		}
		return nil
	}
	after := before
	after.UserName = "new"

	report := engine.OnUserUpdated(context.Background(), &before, after)

	assert.True(t, report.Failed())
	memes, _ := report.Branch(TargetMemes)
	assert.Equal(t, 1, memes.Failed)
	assert.Equal(t, 1, memes.Updated)
	assert.Error(t, memes.Err)

	comments, _ := report.Branch(TargetComments)
	assert.Equal(t, 1, comments.Updated)
	c, _ := store.Comment("m3", "c1")
	assert.Equal(t, "new", c.UserName)
}
