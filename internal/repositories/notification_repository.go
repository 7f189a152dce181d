package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/dank-memes/backend/internal/models"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	NewID() string
	CreateNotification(ctx context.Context, notification *models.Notification) error
	// GetNotificationsByActor searches every recipient's partition.
	GetNotificationsByActor(ctx context.Context, actorID string) ([]models.Notification, error)
	UpdateActor(ctx context.Context, recipientID, notificationID, name, avatar string) error
}

// FirestoreNotificationRepository stores notifications under notifications/{recipient}/user-notifications
type FirestoreNotificationRepository struct {
	client *firestore.Client
}

// NewFirestoreNotificationRepository creates a new FirestoreNotificationRepository
func NewFirestoreNotificationRepository(client *firestore.Client) *FirestoreNotificationRepository {
	return &FirestoreNotificationRepository{client: client}
}

func (r *FirestoreNotificationRepository) partition(recipientID string) *firestore.CollectionRef {
	return r.client.Collection(notificationsCollection).Doc(recipientID).Collection(userNotificationsCollection)
}

// NewID reserves a document ID without writing anything
func (r *FirestoreNotificationRepository) NewID() string {
	return r.client.Collection(notificationsCollection).NewDoc().ID
}

// CreateNotification writes the notification into the recipient's partition
func (r *FirestoreNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.NotifiedUserID == "" {
		return fmt.Errorf("notification %s has no recipient", notification.ID)
	}
	_, err := r.partition(notification.NotifiedUserID).Doc(notification.ID).Set(ctx, notification)
	return err
}

// GetNotificationsByActor runs a collection-group query over all user-notifications
func (r *FirestoreNotificationRepository) GetNotificationsByActor(ctx context.Context, actorID string) ([]models.Notification, error) {
	it := r.client.CollectionGroup(userNotificationsCollection).Where("userId", "==", actorID).Documents(ctx)
	return collectDocs(it, func(n *models.Notification, snap *firestore.DocumentSnapshot) {
		if n.ID == "" {
			n.ID = snap.Ref.ID
		}
	})
}

// UpdateActor rewrites the denormalized actor name and avatar
func (r *FirestoreNotificationRepository) UpdateActor(ctx context.Context, recipientID, notificationID, name, avatar string) error {
	_, err := r.partition(recipientID).Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "username", Value: name},
		{Path: "userAvatar", Value: avatar},
	})
	if isFirestoreNotFound(err) {
		return fmt.Errorf("notification %s/%s: %w", recipientID, notificationID, ErrNotFound)
	}
	return err
}
