package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), "5-Jan-2024"},
		{time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC), "31-Dec-2023"},
		{time.Date(2020, time.February, 29, 12, 0, 0, 0, time.UTC), "29-Feb-2020"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in))
	}
	assert.Equal(t, "joined-users/5-Jan-2024", JoinedUsersKey(tests[0].in))
}

func TestAddedLikers(t *testing.T) {
	before := map[string]interface{}{"a": true, "b": true}
	after := map[string]interface{}{"a": true, "b": true, "d": true, "c": true}

	assert.Equal(t, []string{"c", "d"}, AddedLikers(before, after))
	assert.Equal(t, []string{"a", "b"}, AddedLikers(nil, before))
	assert.Empty(t, AddedLikers(after, before))
}

func TestDistinctAuthors(t *testing.T) {
	comments := []Comment{
		{UserID: "b"}, {UserID: "owner"}, {UserID: "a"}, {UserID: "b"}, {UserID: ""}, {UserID: "me"}, {UserID: "c"},
	}

	assert.Equal(t, []string{"b", "a", "c"}, DistinctAuthors(comments, "owner", "me"))
	assert.Equal(t, []string{"b", "owner", "a", "me", "c"}, DistinctAuthors(comments))
	assert.Empty(t, DistinctAuthors(nil, "owner"))
}

func TestDiffProfile(t *testing.T) {
	base := User{UserID: "u", UserName: "n", UserAvatar: "a"}

	assert.True(t, DiffProfile(base, base).Empty())

	renamed := base
	renamed.UserName = "m"
	d := DiffProfile(base, renamed)
	assert.True(t, d.Cosmetic())
	assert.False(t, d.MuteChanged)

	muted := base
	muted.Muted = true
	d = DiffProfile(base, muted)
	assert.True(t, d.MuteChanged)
	assert.True(t, d.Muted)
	assert.False(t, d.Cosmetic())

	tokenOnly := base
	tokenOnly.UserToken = "t"
	tokenOnly.Posts = 3
	assert.True(t, DiffProfile(base, tokenOnly).Empty())
}

func TestNotificationType(t *testing.T) {
	assert.Equal(t, "like", NotificationTypeLike.String())
	assert.Equal(t, "comment", NotificationTypeComment.String())
	assert.Equal(t, "unknown(9)", NotificationType(9).String())
	assert.True(t, NotificationTypeComment.Valid())
	assert.False(t, NotificationType(-1).Valid())
}

func TestDedupeKeys(t *testing.T) {
	like := LikeInteraction{MemeID: "m", LikerID: "l", Trigger: "e1"}
	comment := CommentInteraction{MemeID: "m", CommentID: "c"}

	assert.Equal(t, "like:m:e1:l:o", like.DedupeKey("o"))
	relike := like
	relike.Trigger = "e2"
	assert.NotEqual(t, like.DedupeKey("o"), relike.DedupeKey("o"))
	assert.Equal(t, "comment:c:o", comment.DedupeKey("o"))
	assert.NotEqual(t, comment.DedupeKey("a"), comment.DedupeKey("b"))
}
