package models

import "fmt"

// NotificationType is stored as an integer for compatibility with existing clients.
type NotificationType int

const (
	NotificationTypeLike    NotificationType = 0
	NotificationTypeComment NotificationType = 1
)

func (t NotificationType) String() string {
	switch t {
	case NotificationTypeLike:
		return "like"
	case NotificationTypeComment:
		return "comment"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	return t == NotificationTypeLike || t == NotificationTypeComment
}

// Notification lives in notifications/{notifiedUserId}/user-notifications/{id}.
// UserID, Username and UserAvatar describe the actor, not the recipient.
type Notification struct {
	ID             string           `json:"id" firestore:"id" bson:"_id"`
	UserID         string           `json:"userId" firestore:"userId" bson:"userId"`
	Username       string           `json:"username" firestore:"username" bson:"username"`
	UserAvatar     string           `json:"userAvatar" firestore:"userAvatar" bson:"userAvatar"`
	NotifiedUserID string           `json:"notifiedUserId" firestore:"notifiedUserId" bson:"notifiedUserId"`
	Type           NotificationType `json:"type" firestore:"type" bson:"type"`
	Title          string           `json:"title" firestore:"title" bson:"title"`
	Description    string           `json:"description" firestore:"description" bson:"description"`
	ImageURL       string           `json:"imageUrl" firestore:"imageUrl" bson:"imageUrl"`
	MemeID         string           `json:"memeId" firestore:"memeId" bson:"memeId"`
	Time           int64            `json:"time" firestore:"time" bson:"time"` // unix millis
}

// Interaction is the social action a notification reports. The concrete
// variants are LikeInteraction and CommentInteraction.
type Interaction interface {
	Type() NotificationType
	// DedupeKey identifies one delivery of this interaction to recipient.
	DedupeKey(recipient string) string
}

// LikeInteraction is a user liking a meme. Trigger identifies the change
// event that added the like, so a like given again after an unlike is a new
// interaction.
type LikeInteraction struct {
	MemeID  string
	LikerID string
	Trigger string
}

func (LikeInteraction) Type() NotificationType { return NotificationTypeLike }

func (l LikeInteraction) DedupeKey(recipient string) string {
	return fmt.Sprintf("like:%s:%s:%s:%s", l.MemeID, l.Trigger, l.LikerID, recipient)
}

// CommentInteraction is a new comment on a meme.
type CommentInteraction struct {
	MemeID    string
	CommentID string
	Text      string
}

func (CommentInteraction) Type() NotificationType { return NotificationTypeComment }

func (c CommentInteraction) DedupeKey(recipient string) string {
	return fmt.Sprintf("comment:%s:%s", c.CommentID, recipient)
}
