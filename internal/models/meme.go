package models

import "sort"

// Meme is a content item in memes/{id}. Poster name and avatar are denormalized
// copies of the owner's profile.
type Meme struct {
	ID               string                 `json:"id" firestore:"id" bson:"_id" validate:"required"`
	MemePosterID     string                 `json:"memePosterID" firestore:"memePosterID" bson:"memePosterID" validate:"required"`
	MemePoster       string                 `json:"memePoster" firestore:"memePoster" bson:"memePoster"`
	MemePosterAvatar string                 `json:"memePosterAvatar" firestore:"memePosterAvatar" bson:"memePosterAvatar"`
	ImageURL         string                 `json:"imageUrl" firestore:"imageUrl" bson:"imageUrl"`
	Thumbnail        string                 `json:"thumbnail,omitempty" firestore:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Muted            bool                   `json:"muted" firestore:"muted" bson:"muted"`
	Likes            map[string]interface{} `json:"likes" firestore:"likes" bson:"likes"`
}

// AddedLikers returns the liker IDs present in after but not in before, sorted.
func AddedLikers(before, after map[string]interface{}) []string {
	var added []string
	for id := range after {
		if _, ok := before[id]; !ok {
			added = append(added, id)
		}
	}
	sort.Strings(added)
	return added
}
