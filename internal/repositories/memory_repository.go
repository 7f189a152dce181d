package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of every repository. It backs
// STORE_BACKEND=memory for local runs and the service tests.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]models.User
	memes         map[string]models.Meme
	comments      map[string]map[string]models.Comment      // memeId -> commentId
	notifications map[string]map[string]models.Notification // recipient -> id
	counters      map[string]int64
	writes        int

	// FailWrite, when set, is consulted before each write; a non-nil error aborts it.
	// op is one of "posts", "muted", "poster", "thumbnail", "comment", "notification", "actor".
	FailWrite func(op, id string) error
}

var (
	_ UserRepository         = (*MemoryStore)(nil)
	_ MemeRepository         = (*MemoryStore)(nil)
	_ CommentRepository      = (*MemoryStore)(nil)
	_ NotificationRepository = (*MemoryStore)(nil)
	_ CounterRepository      = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		memes:         make(map[string]models.Meme),
		comments:      make(map[string]map[string]models.Comment),
		notifications: make(map[string]map[string]models.Notification),
		counters:      make(map[string]int64),
	}
}

// PutUser seeds or replaces a user
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
}

// PutMeme seeds or replaces a meme
func (s *MemoryStore) PutMeme(m models.Meme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memes[m.ID] = m
}

// PutComment seeds or replaces a comment
func (s *MemoryStore) PutComment(c models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.comments[c.MemeID] == nil {
		s.comments[c.MemeID] = make(map[string]models.Comment)
	}
	s.comments[c.MemeID][c.CommentID] = c
}

// PutNotification seeds or replaces a notification without counting a write
func (s *MemoryStore) PutNotification(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putNotification(n)
}

func (s *MemoryStore) putNotification(n models.Notification) {
	if s.notifications[n.NotifiedUserID] == nil {
		s.notifications[n.NotifiedUserID] = make(map[string]models.Notification)
	}
	s.notifications[n.NotifiedUserID][n.ID] = n
}

// Notifications returns the recipient's notifications ordered by ID
func (s *MemoryStore) Notifications(recipientID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.notifications[recipientID]))
	for _, n := range s.notifications[recipientID] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllNotifications returns every stored notification across recipients
func (s *MemoryStore) AllNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, part := range s.notifications {
		for _, n := range part {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Comment returns a stored comment
func (s *MemoryStore) Comment(memeID, commentID string) (models.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[memeID][commentID]
	return c, ok
}

// Counter returns the current value of a counter
func (s *MemoryStore) Counter(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// Writes returns how many document writes succeeded so far
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// beginWrite must be called with mu held.
func (s *MemoryStore) beginWrite(op, id string) error {
	if s.FailWrite != nil {
		if err := s.FailWrite(op, id); err != nil {
			return err
		}
	}
	s.writes++
	return nil
}

// GetUser retrieves a user by ID
func (s *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return &u, nil
}

// IncrementPosts increments the posts count of a user
func (s *MemoryStore) IncrementPosts(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err := s.beginWrite("posts", userID); err != nil {
		return err
	}
	u.Posts++
	s.users[userID] = u
	return nil
}

// GetMeme retrieves a meme by ID
func (s *MemoryStore) GetMeme(_ context.Context, memeID string) (*models.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memes[memeID]
	if !ok {
		return nil, fmt.Errorf("meme %s: %w", memeID, ErrNotFound)
	}
	return &m, nil
}

// GetMemesByPoster retrieves every meme owned by posterID
func (s *MemoryStore) GetMemesByPoster(_ context.Context, posterID string) ([]models.Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meme
	for _, m := range s.memes {
		if m.MemePosterID == posterID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) updateMeme(op, memeID string, fn func(*models.Meme)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memes[memeID]
	if !ok {
		return fmt.Errorf("meme %s: %w", memeID, ErrNotFound)
	}
	if err := s.beginWrite(op, memeID); err != nil {
		return err
	}
	fn(&m)
	s.memes[memeID] = m
	return nil
}

// SetMuted updates the meme's visibility flag
func (s *MemoryStore) SetMuted(_ context.Context, memeID string, muted bool) error {
	return s.updateMeme("muted", memeID, func(m *models.Meme) { m.Muted = muted })
}

// UpdatePoster rewrites the denormalized poster fields
func (s *MemoryStore) UpdatePoster(_ context.Context, memeID, name, avatar string) error {
	return s.updateMeme("poster", memeID, func(m *models.Meme) {
		m.MemePoster = name
		m.MemePosterAvatar = avatar
	})
}

// SetThumbnail stores the thumbnail URL on the meme
func (s *MemoryStore) SetThumbnail(_ context.Context, memeID, url string) error {
	return s.updateMeme("thumbnail", memeID, func(m *models.Meme) { m.Thumbnail = url })
}

// GetCommentsByMeme retrieves all comments for a meme
func (s *MemoryStore) GetCommentsByMeme(_ context.Context, memeID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Comment, 0, len(s.comments[memeID]))
	for _, c := range s.comments[memeID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentID < out[j].CommentID })
	return out, nil
}

// GetCommentsByUser retrieves all comments written by userID
func (s *MemoryStore) GetCommentsByUser(_ context.Context, userID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Comment
	for _, part := range s.comments {
		for _, c := range part {
			if c.UserID == userID {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentID < out[j].CommentID })
	return out, nil
}

// UpdateAuthor rewrites the denormalized author fields of a comment
func (s *MemoryStore) UpdateAuthor(_ context.Context, memeID, commentID, name, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[memeID][commentID]
	if !ok {
		return fmt.Errorf("comment %s/%s: %w", memeID, commentID, ErrNotFound)
	}
	if err := s.beginWrite("comment", commentID); err != nil {
		return err
	}
	c.UserName = name
	c.UserAvatar = avatar
	s.comments[memeID][commentID] = c
	return nil
}

// NewID returns a random notification ID
func (s *MemoryStore) NewID() string {
	return uuid.NewString()
}

// CreateNotification stores a notification in the recipient's partition
func (s *MemoryStore) CreateNotification(_ context.Context, notification *models.Notification) error {
	if notification.NotifiedUserID == "" {
		return fmt.Errorf("notification %s has no recipient", notification.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginWrite("notification", notification.NotifiedUserID); err != nil {
		return err
	}
	s.putNotification(*notification)
	return nil
}

// GetNotificationsByActor retrieves every notification triggered by actorID
func (s *MemoryStore) GetNotificationsByActor(_ context.Context, actorID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, part := range s.notifications {
		for _, n := range part {
			if n.UserID == actorID {
				out = append(out, n)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateActor rewrites the denormalized actor fields of a notification
func (s *MemoryStore) UpdateActor(_ context.Context, recipientID, notificationID, name, avatar string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[recipientID][notificationID]
	if !ok {
		return fmt.Errorf("notification %s/%s: %w", recipientID, notificationID, ErrNotFound)
	}
	if err := s.beginWrite("actor", notificationID); err != nil {
		return err
	}
	n.Username = name
	n.UserAvatar = avatar
	s.notifications[recipientID][notificationID] = n
	return nil
}

// Increment adds one to the counter
func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// IncrementWithThreshold adds one to the counter, resetting it at threshold
func (s *MemoryStore) IncrementWithThreshold(_ context.Context, key string, threshold int64) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, fired := nextThresholdValue(s.counters[key], threshold)
	s.counters[key] = next
	return next, fired, nil
}
