package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/dank-memes/backend/internal/models"
)

// MemeRepository defines the interface for meme data operations
type MemeRepository interface {
	GetMeme(ctx context.Context, memeID string) (*models.Meme, error)
	GetMemesByPoster(ctx context.Context, posterID string) ([]models.Meme, error)
	SetMuted(ctx context.Context, memeID string, muted bool) error
	UpdatePoster(ctx context.Context, memeID, name, avatar string) error
	SetThumbnail(ctx context.Context, memeID, url string) error
}

// FirestoreMemeRepository implements MemeRepository on the memes collection
type FirestoreMemeRepository struct {
	client *firestore.Client
}

// NewFirestoreMemeRepository creates a new FirestoreMemeRepository
func NewFirestoreMemeRepository(client *firestore.Client) *FirestoreMemeRepository {
	return &FirestoreMemeRepository{client: client}
}

// GetMeme retrieves a meme by ID
func (r *FirestoreMemeRepository) GetMeme(ctx context.Context, memeID string) (*models.Meme, error) {
	snap, err := r.client.Collection(memesCollection).Doc(memeID).Get(ctx)
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, fmt.Errorf("meme %s: %w", memeID, ErrNotFound)
		}
		return nil, err
	}

	var meme models.Meme
	if err := snap.DataTo(&meme); err != nil {
		return nil, fmt.Errorf("decode meme %s: %w", memeID, err)
	}
	if meme.ID == "" {
		meme.ID = snap.Ref.ID
	}
	return &meme, nil
}

// GetMemesByPoster retrieves every meme owned by posterID
func (r *FirestoreMemeRepository) GetMemesByPoster(ctx context.Context, posterID string) ([]models.Meme, error) {
	it := r.client.Collection(memesCollection).Where("memePosterID", "==", posterID).Documents(ctx)
	return collectDocs(it, func(m *models.Meme, snap *firestore.DocumentSnapshot) {
		if m.ID == "" {
			m.ID = snap.Ref.ID
		}
	})
}

// SetMuted updates the meme's visibility flag
func (r *FirestoreMemeRepository) SetMuted(ctx context.Context, memeID string, muted bool) error {
	return r.update(ctx, memeID, []firestore.Update{{Path: "muted", Value: muted}})
}

// UpdatePoster rewrites the denormalized poster name and avatar
func (r *FirestoreMemeRepository) UpdatePoster(ctx context.Context, memeID, name, avatar string) error {
	return r.update(ctx, memeID, []firestore.Update{
		{Path: "memePoster", Value: name},
		{Path: "memePosterAvatar", Value: avatar},
	})
}

// SetThumbnail stores the thumbnail URL on the meme
func (r *FirestoreMemeRepository) SetThumbnail(ctx context.Context, memeID, url string) error {
	return r.update(ctx, memeID, []firestore.Update{{Path: "thumbnail", Value: url}})
}

func (r *FirestoreMemeRepository) update(ctx context.Context, memeID string, updates []firestore.Update) error {
	_, err := r.client.Collection(memesCollection).Doc(memeID).Update(ctx, updates)
	if isFirestoreNotFound(err) {
		return fmt.Errorf("meme %s: %w", memeID, ErrNotFound)
	}
	return err
}
