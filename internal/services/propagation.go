package services

import (
	"context"
	"fmt"

	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/metrics"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"go.uber.org/zap"
)

// Propagation targets, used in reports and metric labels.
const (
	TargetMemeVisibility = "meme_visibility"
	TargetMemes          = "memes"
	TargetComments       = "comments"
	TargetNotifications  = "notifications"
)

// PropagationConfig configures the PropagationEngine
type PropagationConfig struct {
	// MuteExclusive skips name/avatar propagation when the same update also
	// changes the mute state. When false both run in the same cycle.
	MuteExclusive bool
	// Concurrency bounds the number of in-flight record updates per branch.
	Concurrency int
}

// BranchResult summarizes one bulk fetch-then-update branch
type BranchResult struct {
	Target  string `json:"target"`
	Matched int    `json:"matched"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped,omitempty"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

// PropagationReport describes what one user update changed
type PropagationReport struct {
	UserID   string         `json:"userId"`
	NoOp     string         `json:"noop,omitempty"`
	Branches []BranchResult `json:"branches,omitempty"`
}

// Failed reports whether any branch had a failure
func (r PropagationReport) Failed() bool {
	for _, b := range r.Branches {
		if b.Err != nil || b.Failed > 0 {
			return true
		}
	}
	return false
}

// Branch returns the result for target, if that branch ran
func (r PropagationReport) Branch(target string) (BranchResult, bool) {
	for _, b := range r.Branches {
		if b.Target == target {
			return b, true
		}
	}
	return BranchResult{}, false
}

// PropagationEngine copies profile changes onto the records that denormalize them
type PropagationEngine struct {
	memes         repositories.MemeRepository
	comments      repositories.CommentRepository
	notifications repositories.NotificationRepository
	cfg           PropagationConfig
}

// NewPropagationEngine creates a new PropagationEngine
func NewPropagationEngine(
	memeRepo repositories.MemeRepository,
	commentRepo repositories.CommentRepository,
	notificationRepo repositories.NotificationRepository,
	cfg PropagationConfig,
) *PropagationEngine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return &PropagationEngine{
		memes:         memeRepo,
		comments:      commentRepo,
		notifications: notificationRepo,
		cfg:           cfg,
	}
}

// OnUserUpdated applies a user profile change. A mute transition takes
// priority over name and avatar changes (see PropagationConfig.MuteExclusive).
func (e *PropagationEngine) OnUserUpdated(ctx context.Context, before *models.User, after models.User) PropagationReport {
	report := PropagationReport{UserID: after.UserID}
	log := logger.Log.With(logger.WithUserID(after.UserID))

	if before == nil {
		report.NoOp = "no previous snapshot"
		return report
	}

	diff := models.DiffProfile(*before, after)
	if diff.Empty() {
		log.Debug("False alarm, no propagated field changed")
		report.NoOp = "nothing changed"
		return report
	}

	var branches []func() BranchResult
	if diff.MuteChanged {
		muted := diff.Muted
		branches = append(branches, func() BranchResult { return e.setMemesMuted(ctx, after.UserID, muted) })
	}
	if diff.Cosmetic() && (!diff.MuteChanged || !e.cfg.MuteExclusive) {
		branches = append(branches,
			func() BranchResult { return e.updateMemes(ctx, after) },
			func() BranchResult { return e.updateComments(ctx, after) },
			func() BranchResult { return e.updateNotifications(ctx, after) },
		)
	} else if diff.Cosmetic() {
		log.Info("Mute state changed, profile propagation skipped this cycle")
	}

	report.Branches = make([]BranchResult, len(branches))
	tasks := make([]func() error, len(branches))
	for i, branch := range branches {
		tasks[i] = func() error {
			report.Branches[i] = branch()
			return nil
		}
	}
	runAll(0, tasks...)

	for _, b := range report.Branches {
		if b.Err != nil {
			log.Error("Error propagating user change",
				zap.String("target", b.Target),
				zap.Int("failed", b.Failed),
				zap.Int("updated", b.Updated),
				zap.Error(b.Err),
			)
		} else {
			log.Info("User change propagated", zap.String("target", b.Target), zap.Int("updated", b.Updated))
		}
	}
	return report
}

func (e *PropagationEngine) setMemesMuted(ctx context.Context, userID string, muted bool) BranchResult {
	memes, err := e.memes.GetMemesByPoster(ctx, userID)
	if err != nil {
		return failedBranch(TargetMemeVisibility, fmt.Errorf("load memes: %w", err))
	}
	return e.updateEach(ctx, TargetMemeVisibility, len(memes), func(i int) (bool, error) {
		return true, e.memes.SetMuted(ctx, memes[i].ID, muted)
	})
}

func (e *PropagationEngine) updateMemes(ctx context.Context, user models.User) BranchResult {
	memes, err := e.memes.GetMemesByPoster(ctx, user.UserID)
	if err != nil {
		return failedBranch(TargetMemes, fmt.Errorf("load memes: %w", err))
	}
	return e.updateEach(ctx, TargetMemes, len(memes), func(i int) (bool, error) {
		return true, e.memes.UpdatePoster(ctx, memes[i].ID, user.UserName, user.UserAvatar)
	})
}

func (e *PropagationEngine) updateComments(ctx context.Context, user models.User) BranchResult {
	comments, err := e.comments.GetCommentsByUser(ctx, user.UserID)
	if err != nil {
		return failedBranch(TargetComments, fmt.Errorf("load comments: %w", err))
	}
	return e.updateEach(ctx, TargetComments, len(comments), func(i int) (bool, error) {
		c := comments[i]
		return true, e.comments.UpdateAuthor(ctx, c.MemeID, c.CommentID, user.UserName, user.UserAvatar)
	})
}

func (e *PropagationEngine) updateNotifications(ctx context.Context, user models.User) BranchResult {
	notifications, err := e.notifications.GetNotificationsByActor(ctx, user.UserID)
	if err != nil {
		return failedBranch(TargetNotifications, fmt.Errorf("load notifications: %w", err))
	}
	return e.updateEach(ctx, TargetNotifications, len(notifications), func(i int) (bool, error) {
		n := notifications[i]
		if n.NotifiedUserID == "" {
			return false, nil
		}
		return true, e.notifications.UpdateActor(ctx, n.NotifiedUserID, n.ID, user.UserName, user.UserAvatar)
	})
}

// updateEach runs update for indexes [0, n) with bounded concurrency. update
// returns false when it chose to skip the record.
func (e *PropagationEngine) updateEach(_ context.Context, target string, n int, update func(i int) (bool, error)) BranchResult {
	result := BranchResult{Target: target, Matched: n}
	if n == 0 {
		return result
	}

	applied := make([]bool, n)
	tasks := make([]func() error, n)
	for i := range n {
		tasks[i] = func() (err error) {
			applied[i], err = update(i)
			return err
		}
	}
	errs := runAll(e.cfg.Concurrency, tasks...)

	m := metrics.Get().PropagationUpdates
	for i, err := range errs {
		switch {
		case err != nil:
			result.Failed++
			if result.Err == nil {
				result.Err = err
				result.Error = err.Error()
			}
			m.WithLabelValues(target, "error").Inc()
		case applied[i]:
			result.Updated++
			m.WithLabelValues(target, "ok").Inc()
		default:
			result.Skipped++
		}
	}
	return result
}

func failedBranch(target string, err error) BranchResult {
	metrics.Get().PropagationUpdates.WithLabelValues(target, "error").Inc()
	return BranchResult{Target: target, Err: err, Error: err.Error()}
}
