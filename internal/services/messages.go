package services

import (
	"fmt"

	"github.com/anonto42/dank-memes/backend/internal/delivery"
	"github.com/anonto42/dank-memes/backend/internal/models"
)

// renderPush builds the push title and body for an interaction by actorName.
func renderPush(actorName string, in models.Interaction) (delivery.Message, error) {
	switch v := in.(type) {
	case models.LikeInteraction:
		return delivery.Message{Title: "New Like", Body: actorName + " liked your post"}, nil
	case models.CommentInteraction:
		return delivery.Message{
			Title: "New comment",
			Body:  fmt.Sprintf("%s commented: \"%s\"", actorName, v.Text),
		}, nil
	default:
		return delivery.Message{}, fmt.Errorf("unsupported interaction %T", in)
	}
}

// buildNotification creates the stored record for recipient. actor is who
// performed the interaction.
func buildNotification(id string, actor models.User, recipient string, meme models.Meme, in models.Interaction, timeMillis int64) (models.Notification, error) {
	n := models.Notification{
		ID:             id,
		UserID:         actor.UserID,
		Username:       actor.UserName,
		UserAvatar:     actor.UserAvatar,
		NotifiedUserID: recipient,
		Type:           in.Type(),
		ImageURL:       meme.ImageURL,
		MemeID:         meme.ID,
		Time:           timeMillis,
	}
	switch v := in.(type) {
	case models.LikeInteraction:
		n.MemeID = v.MemeID
	case models.CommentInteraction:
		n.MemeID = v.MemeID
		n.Description = v.Text
	default:
		return models.Notification{}, fmt.Errorf("unsupported interaction %T", in)
	}
	return n, nil
}
