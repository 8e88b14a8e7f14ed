package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"plant-care/internal/model"
	"plant-care/internal/push"
)

// SettingsStore is the part of the user-settings store the dispatcher writes.
type SettingsStore interface {
	ClearFCMToken(ctx context.Context, userID uint) error
}

// NotificationLogStore is the append-only audit log used for de-duplication.
type NotificationLogStore interface {
	Append(ctx context.Context, entry *model.NotificationLog) error
	FindRecentContaining(ctx context.Context, userID uint, since time.Time, substring string) (*model.NotificationLog, error)
	FindSentSince(ctx context.Context, userID uint, since time.Time) ([]model.NotificationLog, error)
}

// DispatchResult describes what happened for one user in one cycle.
type DispatchResult struct {
	UserID    uint
	TaskID    uint
	Success   bool
	Skipped   bool
	Reason    string
	Error     string
	MessageID string
}

const (
	skipReasonNothingEligible = "no eligible task: already notified or overdue before opt-in"
)

type DispatcherOptions struct {
	// SendSpacing is the minimum gap between two push sends.
	SendSpacing time.Duration
	Labels      LabelLookup
	Clock       Clock
}

// Dispatcher sends at most one notification per user per cycle, rotating
// through each user's overdue tasks with a shared round-robin index.
type Dispatcher struct {
	settings SettingsStore
	logs     NotificationLogStore
	sender   push.Sender
	labels   LabelLookup
	limiter  *rate.Limiter
	now      Clock
	log      zerolog.Logger

	index atomic.Uint64
}

func NewDispatcher(settings SettingsStore, logs NotificationLogStore, sender push.Sender, opts DispatcherOptions, log zerolog.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("dispatcher: push sender is required")
	}
	if settings == nil || logs == nil {
		return nil, errors.New("dispatcher: settings and notification log stores are required")
	}
	if opts.Labels == nil {
		opts.Labels = DefaultLabels{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.SendSpacing > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.SendSpacing), 1)
	}
	return &Dispatcher{
		settings: settings,
		logs:     logs,
		sender:   sender,
		labels:   opts.Labels,
		limiter:  limiter,
		now:      opts.Clock,
		log:      log,
	}, nil
}

// NotificationIndex is the current round-robin position.
func (d *Dispatcher) NotificationIndex() uint64 { return d.index.Load() }

// Advance moves the round-robin index; called once per scheduling cycle.
func (d *Dispatcher) Advance() uint64 { return d.index.Add(1) }

// SelectRoundRobin picks tasks[index mod len(tasks)].
func SelectRoundRobin(tasks []OverdueTask, index uint64) OverdueTask {
	return tasks[index%uint64(len(tasks))]
}

// SendNotificationsToUsers dispatches sequentially, one result per user in
// group order. A failure for one user never stops the others.
func (d *Dispatcher) SendNotificationsToUsers(ctx context.Context, groups OverdueGroups) []DispatchResult {
	index := d.index.Load()
	results := make([]DispatchResult, 0, groups.Len())
	for _, userID := range groups.Users() {
		results = append(results, d.dispatchUser(ctx, userID, groups.Tasks(userID), index))
	}
	return results
}

func (d *Dispatcher) dispatchUser(ctx context.Context, userID uint, tasks []OverdueTask, index uint64) (res DispatchResult) {
	res.UserID = userID
	log := d.log.With().Uint("user_id", userID).Logger()

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
			log.Error().Interface("panic", r).Msg("dispatch panicked")
		}
	}()

	eligible, err := d.eligibleTasks(ctx, userID, tasks)
	if err != nil {
		res.Error = err.Error()
		log.Error().Err(err).Msg("de-duplication check failed")
		return res
	}
	if len(eligible) == 0 {
		res.Success = true
		res.Skipped = true
		res.Reason = skipReasonNothingEligible
		log.Debug().Int("overdue", len(tasks)).Msg("nothing to notify")
		return res
	}

	task := SelectRoundRobin(eligible, index)
	res.TaskID = task.TaskID
	log = log.With().Uint("task_id", task.TaskID).Str("task_key", task.TaskKey.String()).Logger()

	payload := BuildPayload(task, d.labels)
	body, err := payload.JSON()
	if err != nil {
		res.Error = fmt.Sprintf("encode payload: %v", err)
		return res
	}

	if err := d.limiter.Wait(ctx); err != nil {
		res.Error = fmt.Sprintf("wait for send slot: %v", err)
		return res
	}

	msgID, err := d.sender.Send(ctx, push.Message{
		Token: task.PushToken,
		Title: payload.Title,
		Body:  payload.Body,
		Data:  payload.Data(),
	})
	if err != nil {
		res.Error = err.Error()
		if push.IsTokenError(err) {
			if cerr := d.settings.ClearFCMToken(ctx, userID); cerr != nil {
				log.Error().Err(cerr).Msg("clear rejected push token")
			} else {
				log.Warn().Err(err).Msg("push token rejected; cleared")
			}
			return res
		}
		log.Error().Err(err).Msg("push send failed")
		return res
	}

	entry := &model.NotificationLog{
		UserID:  userID,
		Payload: datatypes.JSON(body),
		Channel: d.sender.Channel(),
		SentAt:  d.now(),
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		res.Error = err.Error()
		log.Error().Err(err).Msg("notification sent but audit log write failed")
		return res
	}

	res.Success = true
	res.MessageID = msgID
	log.Info().Str("message_id", msgID).Msg("notification sent")
	return res
}

// eligibleTasks drops tasks that were already overdue when the user opted
// in, and tasks already notified for their current due occurrence. It makes
// one log lookup per user however many tasks are overdue.
func (d *Dispatcher) eligibleTasks(ctx context.Context, userID uint, tasks []OverdueTask) ([]OverdueTask, error) {
	candidates := make([]OverdueTask, 0, len(tasks))
	for _, task := range tasks {
		if task.NotificationsEnabledAt != nil && task.NextDueOn.Before(*task.NotificationsEnabledAt) {
			continue
		}
		candidates = append(candidates, task)
	}

	switch len(candidates) {
	case 0:
		return candidates, nil
	case 1:
		task := candidates[0]
		entry, err := d.logs.FindRecentContaining(ctx, userID, dedupReference(task), DedupFragment(task.TaskID))
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return candidates[:0], nil
		}
		return candidates, nil
	}

	since := dedupReference(candidates[0])
	for _, task := range candidates[1:] {
		if ref := dedupReference(task); ref.Before(since) {
			since = ref
		}
	}
	sent, err := d.logs.FindSentSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	eligible := candidates[:0]
	for _, task := range candidates {
		if !notifiedSince(sent, task) {
			eligible = append(eligible, task)
		}
	}
	return eligible, nil
}

func notifiedSince(sent []model.NotificationLog, task OverdueTask) bool {
	ref := dedupReference(task)
	fragment := DedupFragment(task.TaskID)
	for _, entry := range sent {
		if !entry.SentAt.Before(ref) && strings.Contains(string(entry.Payload), fragment) {
			return true
		}
	}
	return false
}

// dedupReference is the later of last completion and plant creation: a log
// entry at or after it belongs to the current due occurrence.
func dedupReference(task OverdueTask) time.Time {
	ref := task.PlantCreatedAt
	if task.LastCompletedOn != nil && task.LastCompletedOn.After(ref) {
		ref = *task.LastCompletedOn
	}
	return ref
}
