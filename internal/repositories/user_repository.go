package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/dank-memes/backend/internal/models"
)

// UserRepository defines the user profile operations the event handlers need
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	IncrementPosts(ctx context.Context, userID string) error
}

// FirestoreUserRepository implements UserRepository on the users collection
type FirestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new FirestoreUserRepository
func NewFirestoreUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{client: client}
}

// GetUser retrieves a user profile by ID
func (r *FirestoreUserRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	if user.UserID == "" {
		user.UserID = snap.Ref.ID
	}
	return &user, nil
}

// IncrementPosts atomically bumps the user's denormalized post count
func (r *FirestoreUserRepository) IncrementPosts(ctx context.Context, userID string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "posts", Value: firestore.Increment(1)},
	})
	if isFirestoreNotFound(err) {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return err
}
