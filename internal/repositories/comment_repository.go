package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/dank-memes/backend/internal/models"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	GetCommentsByMeme(ctx context.Context, memeID string) ([]models.Comment, error)
	// GetCommentsByUser searches across every meme's comments.
	GetCommentsByUser(ctx context.Context, userID string) ([]models.Comment, error)
	UpdateAuthor(ctx context.Context, memeID, commentID, name, avatar string) error
}

// FirestoreCommentRepository implements CommentRepository on comments/{memeId}/meme-comments
type FirestoreCommentRepository struct {
	client *firestore.Client
}

// NewFirestoreCommentRepository creates a new FirestoreCommentRepository
func NewFirestoreCommentRepository(client *firestore.Client) *FirestoreCommentRepository {
	return &FirestoreCommentRepository{client: client}
}

func (r *FirestoreCommentRepository) memeComments(memeID string) *firestore.CollectionRef {
	return r.client.Collection(commentsCollection).Doc(memeID).Collection(memeCommentsCollection)
}

// GetCommentsByMeme retrieves all comments for a specific meme
func (r *FirestoreCommentRepository) GetCommentsByMeme(ctx context.Context, memeID string) ([]models.Comment, error) {
	return collectDocs(r.memeComments(memeID).Documents(ctx), fillComment)
}

// GetCommentsByUser runs a collection-group query over all meme-comments
func (r *FirestoreCommentRepository) GetCommentsByUser(ctx context.Context, userID string) ([]models.Comment, error) {
	it := r.client.CollectionGroup(memeCommentsCollection).Where("userId", "==", userID).Documents(ctx)
	return collectDocs(it, fillComment)
}

// UpdateAuthor rewrites the denormalized author name and avatar
func (r *FirestoreCommentRepository) UpdateAuthor(ctx context.Context, memeID, commentID, name, avatar string) error {
	_, err := r.memeComments(memeID).Doc(commentID).Update(ctx, []firestore.Update{
		{Path: "userName", Value: name},
		{Path: "userAvatar", Value: avatar},
	})
	if isFirestoreNotFound(err) {
		return fmt.Errorf("comment %s/%s: %w", memeID, commentID, ErrNotFound)
	}
	return err
}

// fillComment recovers IDs from the document path when the fields are missing.
func fillComment(c *models.Comment, snap *firestore.DocumentSnapshot) {
	if c.CommentID == "" {
		c.CommentID = snap.Ref.ID
	}
	if c.MemeID == "" && snap.Ref.Parent != nil && snap.Ref.Parent.Parent != nil {
		c.MemeID = snap.Ref.Parent.Parent.ID
	}
}
