package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/dedupe"
	"github.com/anonto42/dank-memes/backend/internal/delivery"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/metrics"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// NotifierConfig configures the Notifier
type NotifierConfig struct {
	// AdminTopic receives report alerts.
	AdminTopic string
}

// Notifier computes recipients for likes, comments and reports, stores one
// notification per recipient and requests push delivery.
type Notifier struct {
	users         repositories.UserRepository
	memes         repositories.MemeRepository
	comments      repositories.CommentRepository
	notifications repositories.NotificationRepository
	dedupe        dedupe.Deduper
	sender        delivery.Sender
	cfg           NotifierConfig
	now           func() time.Time
}

// NewNotifier creates a new Notifier
func NewNotifier(
	userRepo repositories.UserRepository,
	memeRepo repositories.MemeRepository,
	commentRepo repositories.CommentRepository,
	notificationRepo repositories.NotificationRepository,
	deduper dedupe.Deduper,
	sender delivery.Sender,
	cfg NotifierConfig,
) *Notifier {
	if cfg.AdminTopic == "" {
		cfg.AdminTopic = "admin"
	}
	return &Notifier{
		users:         userRepo,
		memes:         memeRepo,
		comments:      commentRepo,
		notifications: notificationRepo,
		dedupe:        deduper,
		sender:        sender,
		cfg:           cfg,
		now:           time.Now,
	}
}

// OnMemeUpdated notifies the meme's owner about each newly added like.
// eventID identifies the triggering change; when empty the previous like set
// stands in for it.
func (n *Notifier) OnMemeUpdated(ctx context.Context, eventID string, before *models.Meme, after models.Meme) FanOutReport {
	report := FanOutReport{Type: models.NotificationTypeLike}
	log := logger.Log.With(logger.WithMemeID(after.ID))

	if before == nil {
		log.Debug("Meme updated without a previous snapshot")
		report.NoOp = "no previous snapshot"
		return report
	}
	if len(after.Likes) <= len(before.Likes) {
		log.Debug("Meme updated without new likes")
		report.NoOp = "likes did not increase"
		return report
	}

	trigger := eventID
	if trigger == "" {
		trigger = likeSetDigest(before.Likes)
	}

	owner := after.MemePosterID
	var likers []string
	for _, id := range models.AddedLikers(before.Likes, after.Likes) {
		if id != owner {
			likers = append(likers, id)
		}
	}
	if len(likers) == 0 {
		log.Info("Like from the meme owner, nothing to notify", logger.WithUserID(owner))
		report.NoOp = "no liker other than the owner"
		return report
	}

	report.Outcomes = make([]Outcome, len(likers))
	tasks := make([]func() error, len(likers))
	for i, liker := range likers {
		tasks[i] = func() error {
			report.Outcomes[i] = n.notifyLike(ctx, after, liker, trigger)
			return nil
		}
	}
	runAll(0, tasks...)
	report.sortOutcomes()
	return report
}

func (n *Notifier) notifyLike(ctx context.Context, meme models.Meme, likerID, trigger string) Outcome {
	owner := meme.MemePosterID

	var recipient, liker *models.User
	errs := runAll(0,
		func() (err error) {
			recipient, err = n.users.GetUser(ctx, owner)
			return err
		},
		func() (err error) {
			liker, err = n.users.GetUser(ctx, likerID)
			return err
		},
	)
	if err := errors.Join(errs...); err != nil {
		return n.resolutionFailure(owner, models.NotificationTypeLike, err)
	}

	return n.notify(ctx, *recipient, *liker, meme, models.LikeInteraction{MemeID: meme.ID, LikerID: likerID, Trigger: trigger})
}

// likeSetDigest fingerprints a like set independent of map order.
func likeSetDigest(likes map[string]interface{}) string {
	ids := make([]string, 0, len(likes))
	for id := range likes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "s" + strconv.FormatUint(xxhash.Sum64String(strings.Join(ids, "\x00")), 16)
}

// OnCommentCreated notifies the meme owner and every other distinct commenter.
// The comment's author is never a recipient.
func (n *Notifier) OnCommentCreated(ctx context.Context, comment models.Comment) FanOutReport {
	report := FanOutReport{Type: models.NotificationTypeComment}
	log := logger.Log.With(logger.WithMemeID(comment.MemeID), zap.String("comment_id", comment.CommentID))

	meme, err := n.memes.GetMeme(ctx, comment.MemeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Info("Comment on a missing meme, nothing to notify")
			report.NoOp = "meme not found"
			return report
		}
		log.Error("Error loading meme for comment notification", zap.Error(err))
		report.setErr(fmt.Errorf("load meme %s: %w", comment.MemeID, err))
		return report
	}

	actor := models.User{UserID: comment.UserID, UserName: comment.UserName, UserAvatar: comment.UserAvatar}
	interaction := models.CommentInteraction{MemeID: comment.MemeID, CommentID: comment.CommentID, Text: comment.Comment}
	owner := meme.MemePosterID

	var ownerOutcomes, otherOutcomes []Outcome
	errs := runAll(0,
		func() error {
			if owner == comment.UserID {
				log.Debug("Owner commented on own meme, owner not notified")
				return nil
			}
			ownerOutcomes = []Outcome{n.notifyCommentRecipient(ctx, owner, actor, *meme, interaction)}
			return nil
		},
		func() error {
			existing, err := n.comments.GetCommentsByMeme(ctx, comment.MemeID)
			if err != nil {
				return fmt.Errorf("load comments of meme %s: %w", comment.MemeID, err)
			}
			others := models.DistinctAuthors(existing, owner, comment.UserID)
			otherOutcomes = make([]Outcome, len(others))
			tasks := make([]func() error, len(others))
			for i, uid := range others {
				tasks[i] = func() error {
					otherOutcomes[i] = n.notifyCommentRecipient(ctx, uid, actor, *meme, interaction)
					return nil
				}
			}
			runAll(0, tasks...)
			return nil
		},
	)
	if err := errors.Join(errs...); err != nil {
		log.Error("Error sending notifications to other commenters", zap.Error(err))
		report.setErr(err)
	}

	report.Outcomes = append(ownerOutcomes, otherOutcomes...)
	report.sortOutcomes()
	if len(report.Outcomes) == 0 && report.Err == nil {
		report.NoOp = "no recipients"
	}
	return report
}

func (n *Notifier) notifyCommentRecipient(ctx context.Context, recipientID string, actor models.User, meme models.Meme, in models.CommentInteraction) Outcome {
	recipient, err := n.users.GetUser(ctx, recipientID)
	if err != nil {
		return n.resolutionFailure(recipientID, in.Type(), err)
	}
	return n.notify(ctx, *recipient, actor, meme, in)
}

// OnReportCreated alerts the admin topic. Nothing is persisted.
func (n *Notifier) OnReportCreated(ctx context.Context, report models.Report) error {
	err := n.sender.SendToTopic(ctx, n.cfg.AdminTopic, delivery.Message{Title: "New report", Body: report.Reason})
	metrics.Get().Broadcasts.WithLabelValues(n.cfg.AdminTopic, metrics.Result(err)).Inc()
	if err != nil {
		logger.Log.Error("Error sending report notification", zap.String("report_id", report.ID), zap.Error(err))
		return err
	}
	return nil
}

func (n *Notifier) resolutionFailure(recipientID string, t models.NotificationType, err error) Outcome {
	status := StatusFailed
	if errors.Is(err, repositories.ErrNotFound) {
		status = StatusSkipped
		logger.Log.Info("Notification recipient or actor missing", logger.WithRecipient(recipientID), zap.Error(err))
	} else {
		logger.Log.Error("Error resolving notification recipient", logger.WithRecipient(recipientID), zap.Error(err))
	}
	metrics.Get().Notifications.WithLabelValues(t.String(), string(status)).Inc()
	return newOutcome(recipientID, status, err)
}

// notify persists and delivers one notification. The dedupe claim is taken
// before writing and released again if the write fails.
func (n *Notifier) notify(ctx context.Context, recipient, actor models.User, meme models.Meme, in models.Interaction) Outcome {
	outcome := n.persistAndDeliver(ctx, recipient, actor, meme, in)
	metrics.Get().Notifications.WithLabelValues(in.Type().String(), string(outcome.Status)).Inc()
	return outcome
}

func (n *Notifier) persistAndDeliver(ctx context.Context, recipient, actor models.User, meme models.Meme, in models.Interaction) Outcome {
	log := logger.Log.With(logger.WithRecipient(recipient.UserID), logger.WithMemeID(meme.ID), zap.Stringer("type", in.Type()))
	key := in.DedupeKey(recipient.UserID)

	claimed := true
	if n.dedupe != nil {
		ok, err := n.dedupe.Claim(ctx, key)
		switch {
		case err != nil:
			// Dedupe store unavailable: notify anyway, a rare duplicate beats a lost notification.
			log.Warn("Dedupe claim failed, continuing without it", zap.Error(err))
			claimed = false
		case !ok:
			log.Info("Notification already sent for this event")
			return newOutcome(recipient.UserID, StatusDuplicate, nil)
		}
	}

	record, err := buildNotification(n.notifications.NewID(), actor, recipient.UserID, meme, in, n.now().UnixMilli())
	if err != nil {
		n.release(ctx, claimed, key)
		return newOutcome(recipient.UserID, StatusFailed, err)
	}
	if err := n.notifications.CreateNotification(ctx, &record); err != nil {
		log.Error("Error saving notification", zap.Error(err))
		n.release(ctx, claimed, key)
		return newOutcome(recipient.UserID, StatusFailed, fmt.Errorf("save notification: %w", err))
	}

	outcome := newOutcome(recipient.UserID, StatusDelivered, nil)
	outcome.NotificationID = record.ID

	msg, err := renderPush(actor.UserName, in)
	if err == nil {
		if recipient.UserToken == "" {
			err = fmt.Errorf("recipient %s has no device token", recipient.UserID)
		} else {
			err = n.sender.SendToDevice(ctx, recipient.UserToken, msg)
		}
	}
	if err != nil {
		log.Warn("Push delivery failed", zap.Error(err))
		outcome.Status = StatusPersisted
		outcome.Err = err
		outcome.Error = err.Error()
	}
	return outcome
}

func (n *Notifier) release(ctx context.Context, claimed bool, key string) {
	if !claimed || n.dedupe == nil {
		return
	}
	if err := n.dedupe.Release(ctx, key); err != nil {
		logger.Log.Warn("Could not release dedupe key", zap.String("key", key), zap.Error(err))
	}
}
