package models

// Comment lives in comments/{memeId}/meme-comments/{commentId}.
type Comment struct {
	CommentID  string `json:"commentId" firestore:"commentId" bson:"_id" validate:"required"`
	MemeID     string `json:"memeId" firestore:"memeId" bson:"memeId" validate:"required"`
	UserID     string `json:"userId" firestore:"userId" bson:"userId" validate:"required"`
	UserName   string `json:"userName" firestore:"userName" bson:"userName"`
	UserAvatar string `json:"userAvatar" firestore:"userAvatar" bson:"userAvatar"`
	Comment    string `json:"comment" firestore:"comment" bson:"comment"`
}

// DistinctAuthors returns each author ID once, in first-seen order, skipping any ID in exclude.
func DistinctAuthors(comments []Comment, exclude ...string) []string {
	seen := make(map[string]struct{}, len(comments)+len(exclude))
	for _, id := range exclude {
		seen[id] = struct{}{}
	}
	var authors []string
	for _, c := range comments {
		if c.UserID == "" {
			continue
		}
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		authors = append(authors, c.UserID)
	}
	return authors
}
