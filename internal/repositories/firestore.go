package repositories

import (
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Firestore collection layout.
const (
	usersCollection             = "users"
	memesCollection             = "memes"
	commentsCollection          = "comments"
	memeCommentsCollection      = "meme-comments"
	notificationsCollection     = "notifications"
	userNotificationsCollection = "user-notifications"
)

// collectDocs drains a document iterator, decoding each snapshot into T.
// fill runs after decoding so callers can back-fill the document ID.
func collectDocs[T any](it *firestore.DocumentIterator, fill func(*T, *firestore.DocumentSnapshot)) ([]T, error) {
	defer it.Stop()

	var out []T
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, err
		}
		if fill != nil {
			fill(&v, snap)
		}
		out = append(out, v)
	}
	return out, nil
}
