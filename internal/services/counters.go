package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/delivery"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/metrics"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"go.uber.org/zap"
)

// Broadcast copy. Title and body are picked with the same index.
var (
	broadcastTitles = []string{
		"Dank Memes alert!", "Having a busy day?", "Hey there!", "Pssst!...", "Having a boring day?",
		"You hear that?...", "Somebody call 911?", "Catching a break?", "Heyy there 😃😃😃",
	}
	broadcastBodies = []string{
		"Check out these fresh memes 😜", "Catch a break with these fresh memes",
		"Have you seen these fresh memes yet?", "I've got some fresh memes you ain't seen yet 😜😜",
		"Worry not. Here's some fresh memes 😜", "It's memes o'clock!! Check out these fire memes",
		"We've got you fam. Check out these dank memes 😜😜", "Coz it's lit up in here.. check out these memes 😜",
		"Heard you like memes. Want some? 😜",
	}
)

// CounterConfig configures the CounterService
type CounterConfig struct {
	// BroadcastThreshold is how many new memes trigger one broadcast.
	BroadcastThreshold int64
	BroadcastTopic     string
	// Location decides which calendar day a join counts towards.
	Location *time.Location
}

// ThresholdResult is the outcome of BumpWithThreshold
type ThresholdResult struct {
	Value int64 `json:"value"`
	Fired bool  `json:"fired"`
}

// CounterReport summarizes the counters touched by one event
type CounterReport struct {
	Values    map[string]int64 `json:"values"`
	Broadcast bool             `json:"broadcast"`
	Error     string           `json:"error,omitempty"`
	Err       error            `json:"-"`
}

func (r *CounterReport) setErr(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// CounterService maintains the aggregate counters
type CounterService struct {
	counters repositories.CounterRepository
	users    repositories.UserRepository
	memes    repositories.MemeRepository
	sender   delivery.Sender
	cfg      CounterConfig
	now      func() time.Time
	pick     func(n int) int
}

// NewCounterService creates a new CounterService
func NewCounterService(
	counterRepo repositories.CounterRepository,
	userRepo repositories.UserRepository,
	memeRepo repositories.MemeRepository,
	sender delivery.Sender,
	cfg CounterConfig,
) *CounterService {
	if cfg.BroadcastThreshold <= 0 {
		cfg.BroadcastThreshold = 20
	}
	if cfg.BroadcastTopic == "" {
		cfg.BroadcastTopic = "memes"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &CounterService{
		counters: counterRepo,
		users:    userRepo,
		memes:    memeRepo,
		sender:   sender,
		cfg:      cfg,
		now:      time.Now,
		pick:     rand.IntN,
	}
}

// Bump increments key and returns the new value
func (s *CounterService) Bump(ctx context.Context, key string) (int64, error) {
	v, err := s.counters.Increment(ctx, key)
	metrics.Get().CounterBumps.WithLabelValues(metricCounterName(key), metrics.Result(err)).Inc()
	return v, err
}

// BumpWithThreshold increments key and resets it once it reaches threshold
func (s *CounterService) BumpWithThreshold(ctx context.Context, key string, threshold int64) (ThresholdResult, error) {
	if threshold <= 0 {
		return ThresholdResult{}, fmt.Errorf("threshold must be positive, got %d", threshold)
	}
	v, fired, err := s.counters.IncrementWithThreshold(ctx, key, threshold)
	metrics.Get().CounterBumps.WithLabelValues(metricCounterName(key), metrics.Result(err)).Inc()
	if err != nil {
		return ThresholdResult{}, err
	}
	return ThresholdResult{Value: v, Fired: fired}, nil
}

// OnUserCreated bumps the total and the per-day joined user counters
func (s *CounterService) OnUserCreated(ctx context.Context, user models.User) CounterReport {
	dayKey := models.JoinedUsersKey(s.now().In(s.cfg.Location))

	var total, today int64
	errs := runAll(0,
		func() (err error) {
			total, err = s.Bump(ctx, models.CounterUsers)
			return err
		},
		func() (err error) {
			today, err = s.Bump(ctx, dayKey)
			return err
		},
	)

	report := CounterReport{Values: map[string]int64{}}
	if errs[0] == nil {
		report.Values[models.CounterUsers] = total
	}
	if errs[1] == nil {
		report.Values[dayKey] = today
	}
	if err := errors.Join(errs...); err != nil {
		logger.Log.Error("Error updating users metadata", logger.WithUserID(user.UserID), zap.Error(err))
		report.setErr(err)
	}
	return report
}

// OnMemeCreated bumps the meme counters, broadcasts every BroadcastThreshold
// memes, and updates the poster's post count and the new meme's mute flag.
func (s *CounterService) OnMemeCreated(ctx context.Context, meme models.Meme) CounterReport {
	log := logger.Log.With(logger.WithMemeID(meme.ID), logger.WithUserID(meme.MemePosterID))

	var (
		notif     ThresholdResult
		total     int64
		broadcast bool
	)
	errs := runAll(0,
		func() error {
			var err error
			notif, err = s.BumpWithThreshold(ctx, models.CounterNotifications, s.cfg.BroadcastThreshold)
			if err != nil {
				return fmt.Errorf("notification counter: %w", err)
			}
			if !notif.Fired {
				return nil
			}
			if err := s.broadcast(ctx); err != nil {
				return fmt.Errorf("broadcast: %w", err)
			}
			broadcast = true
			return nil
		},
		func() (err error) {
			total, err = s.Bump(ctx, models.CounterMemes)
			return err
		},
		func() error {
			return s.applyPosterState(ctx, meme)
		},
	)

	report := CounterReport{Values: map[string]int64{}, Broadcast: broadcast}
	if errs[0] == nil || notif.Fired {
		report.Values[models.CounterNotifications] = notif.Value
	}
	if errs[1] == nil {
		report.Values[models.CounterMemes] = total
	}
	if err := errors.Join(errs...); err != nil {
		log.Error("Error on meme uploaded", zap.Error(err))
		report.setErr(err)
	}
	return report
}

// applyPosterState increments the poster's post count and mutes the meme if
// the poster is muted.
func (s *CounterService) applyPosterState(ctx context.Context, meme models.Meme) error {
	poster, err := s.users.GetUser(ctx, meme.MemePosterID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Log.Info("Meme poster missing, post count not updated", logger.WithUserID(meme.MemePosterID))
			return nil
		}
		return fmt.Errorf("load poster: %w", err)
	}

	if err := s.users.IncrementPosts(ctx, poster.UserID); err != nil {
		return fmt.Errorf("increment posts: %w", err)
	}
	if poster.Muted && !meme.Muted {
		if err := s.memes.SetMuted(ctx, meme.ID, true); err != nil {
			return fmt.Errorf("mute new meme: %w", err)
		}
	}
	return nil
}

func (s *CounterService) broadcast(ctx context.Context) error {
	i := s.pick(len(broadcastTitles))
	msg := delivery.Message{Title: broadcastTitles[i], Body: broadcastBodies[i]}
	err := s.sender.SendToTopic(ctx, s.cfg.BroadcastTopic, msg)
	metrics.Get().Broadcasts.WithLabelValues(s.cfg.BroadcastTopic, metrics.Result(err)).Inc()
	return err
}

// metricCounterName keeps per-day keys from creating a label per date.
func metricCounterName(key string) string {
	switch key {
	case models.CounterUsers, models.CounterMemes, models.CounterNotifications:
		return key
	default:
		return "joined-users"
	}
}
