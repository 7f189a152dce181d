package models

// User is a profile document in users/{userId}.
type User struct {
	UserID     string `json:"userId" firestore:"userId" bson:"_id" validate:"required"`
	UserName   string `json:"userName" firestore:"userName" bson:"userName"`
	UserAvatar string `json:"userAvatar" firestore:"userAvatar" bson:"userAvatar"`
	UserToken  string `json:"userToken,omitempty" firestore:"userToken" bson:"userToken,omitempty"` // FCM device token
	Muted      bool   `json:"muted" firestore:"muted" bson:"muted"`
	Posts      int64  `json:"posts" firestore:"posts" bson:"posts"`
}

// ProfileDiff describes which denormalized fields changed between two snapshots of a user.
type ProfileDiff struct {
	NameChanged   bool
	AvatarChanged bool
	MuteChanged   bool
	Muted         bool // muted state after the change
}

// DiffProfile compares the before and after snapshots of a user document.
func DiffProfile(before, after User) ProfileDiff {
	return ProfileDiff{
		NameChanged:   before.UserName != after.UserName,
		AvatarChanged: before.UserAvatar != after.UserAvatar,
		MuteChanged:   before.Muted != after.Muted,
		Muted:         after.Muted,
	}
}

// Cosmetic reports whether a display field (name or avatar) changed.
func (d ProfileDiff) Cosmetic() bool {
	return d.NameChanged || d.AvatarChanged
}

// Empty reports whether nothing relevant changed.
func (d ProfileDiff) Empty() bool {
	return !d.NameChanged && !d.AvatarChanged && !d.MuteChanged
}
