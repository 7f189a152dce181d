package services

import (
	"sort"

	"github.com/anonto42/dank-memes/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// runAll runs every task concurrently and waits for all of them. Each task's
// error is kept at its index; a failing task never cancels its siblings.
// limit <= 0 means no bound.
func runAll(limit int, tasks ...func() error) []error {
	errs := make([]error, len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			errs[i] = task()
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// OutcomeStatus is the result of notifying one recipient.
type OutcomeStatus string

const (
	// StatusDelivered: notification persisted and push accepted by the delivery service.
	StatusDelivered OutcomeStatus = "delivered"
	// StatusPersisted: notification persisted, push not sent or rejected.
	StatusPersisted OutcomeStatus = "persisted"
	// StatusDuplicate: this (recipient, event) pair was already handled.
	StatusDuplicate OutcomeStatus = "duplicate"
	// StatusSkipped: the recipient or actor record is missing.
	StatusSkipped OutcomeStatus = "skipped"
	// StatusFailed: a store error aborted this recipient.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is the result for a single recipient.
type Outcome struct {
	RecipientID    string        `json:"recipientId"`
	NotificationID string        `json:"notificationId,omitempty"`
	Status         OutcomeStatus `json:"status"`
	Error          string        `json:"error,omitempty"`
	Err            error         `json:"-"`
}

func newOutcome(recipient string, status OutcomeStatus, err error) Outcome {
	o := Outcome{RecipientID: recipient, Status: status, Err: err}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

// FanOutReport collects per-recipient outcomes of one social action.
type FanOutReport struct {
	Type     models.NotificationType `json:"type"`
	NoOp     string                  `json:"noop,omitempty"`
	Outcomes []Outcome               `json:"outcomes"`
	Error    string                  `json:"error,omitempty"`
	// Err holds failures that happened before any recipient was known.
	Err error `json:"-"`
}

func (r *FanOutReport) setErr(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *FanOutReport) sortOutcomes() {
	sort.Slice(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].RecipientID < r.Outcomes[j].RecipientID
	})
}

// Recipients returns the recipients whose outcome has one of the given statuses.
func (r FanOutReport) Recipients(statuses ...OutcomeStatus) []string {
	var out []string
	for _, o := range r.Outcomes {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, o.RecipientID)
				break
			}
		}
	}
	return out
}

// Count returns how many outcomes have status s.
func (r FanOutReport) Count(s OutcomeStatus) int {
	return len(r.Recipients(s))
}
