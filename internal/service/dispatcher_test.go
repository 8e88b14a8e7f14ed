package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"plant-care/internal/model"
	"plant-care/internal/push"
)

func TestSelectRoundRobinWraps(t *testing.T) {
	t.Parallel()

	tasks := []OverdueTask{{TaskID: 1}, {TaskID: 2}, {TaskID: 3}}
	for index, want := range map[uint64]uint{0: 1, 1: 2, 2: 3, 3: 1, 4: 2, 1<<63 + 1: 1} {
		if got := SelectRoundRobin(tasks, index).TaskID; got != want {
			t.Fatalf("SelectRoundRobin(index %d) = %d, want %d", index, got, want)
		}
	}
}

func TestNewDispatcherRequiresSender(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(&memSettings{}, &memLogStore{}, nil, DispatcherOptions{}, nopLogger()); err == nil {
		t.Fatal("expected error without a sender")
	}
}

func TestRoundRobinNotifiesEachTaskOnceOverNCycles(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("%d tasks", n), func(t *testing.T) {
			sender := &fakeSender{}
			logs := &memLogStore{}
			d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))

			var tasks []OverdueTask
			for i := 1; i <= n; i++ {
				tasks = append(tasks, overdue(1, uint(i), model.TaskWatering, day(10-i)))
			}
			groups := GroupByUser(tasks)

			for cycle := 0; cycle < n; cycle++ {
				results := d.SendNotificationsToUsers(context.Background(), groups)
				if len(results) != 1 || !results[0].Success || results[0].Skipped {
					t.Fatalf("cycle %d: results = %+v", cycle, results)
				}
				d.Advance()
			}

			seen := map[string]int{}
			for _, msg := range sender.Sent() {
				seen[msg.Data["taskId"]]++
			}
			if len(seen) != n {
				t.Fatalf("notified %d distinct tasks, want %d: %v", len(seen), n, seen)
			}
			for id, count := range seen {
				if count != 1 {
					t.Fatalf("task %s notified %d times", id, count)
				}
			}

			results := d.SendNotificationsToUsers(context.Background(), groups)
			if !results[0].Skipped {
				t.Fatalf("cycle after all tasks were notified should skip: %+v", results[0])
			}
		})
	}
}

func TestConsecutiveIndexesPickDifferentTasks(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := newDispatcher(t, &memSettings{}, &memLogStore{}, sender, fixedClock(day(10)))
	groups := GroupByUser([]OverdueTask{
		overdue(1, 1, model.TaskWatering, day(5)),
		overdue(1, 2, model.TaskPruning, day(6)),
	})

	first := d.SendNotificationsToUsers(context.Background(), groups)[0]
	d.Advance()
	second := d.SendNotificationsToUsers(context.Background(), groups)[0]

	if first.TaskID == second.TaskID {
		t.Fatalf("both cycles picked task %d", first.TaskID)
	}
}

func TestDeduplicationSuppressesRepeatSend(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))
	groups := GroupByUser([]OverdueTask{overdue(1, 42, model.TaskWatering, day(9))})

	for i := 0; i < 3; i++ {
		d.SendNotificationsToUsers(context.Background(), groups)
		d.Advance()
	}
	if got := len(sender.Sent()); got != 1 {
		t.Fatalf("sent %d times, want 1", got)
	}
	if got := logs.Len(); got != 1 {
		t.Fatalf("logged %d entries, want 1", got)
	}
}

func TestNewOccurrenceIsNotifiedAgain(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &memLogStore{}
	clock := &movableClock{now: day(10)}
	d := newDispatcher(t, &memSettings{}, logs, sender, clock.Now)

	task := overdue(1, 42, model.TaskWatering, day(9))
	d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{task}))

	// Completed on day 11, due again on day 18.
	clock.Set(day(18))
	task.LastCompletedOn = timePtr(day(11))
	task.NextDueOn = day(18)
	d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{task}))

	if got := len(sender.Sent()); got != 2 {
		t.Fatalf("sent %d times, want 2 (one per occurrence)", got)
	}
}

func TestDedupMatchesWholeTaskID(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))

	d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{overdue(1, 12, model.TaskWatering, day(9))}))
	d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{overdue(1, 1, model.TaskWatering, day(9))}))

	if got := len(sender.Sent()); got != 2 {
		t.Fatalf("task 1 was suppressed by the log entry of task 12")
	}
}

func TestTasksOverdueBeforeOptInAreSkipped(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := newDispatcher(t, &memSettings{}, &memLogStore{}, sender, fixedClock(day(12)))

	before := overdue(1, 1, model.TaskWatering, day(5))
	before.NotificationsEnabledAt = timePtr(day(10))
	after := overdue(1, 2, model.TaskPruning, day(11))
	after.NotificationsEnabledAt = timePtr(day(10))

	res := d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{before}))[0]
	if !res.Skipped || len(sender.Sent()) != 0 {
		t.Fatalf("task overdue before opt-in was sent: %+v", res)
	}

	res = d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{before, after}))[0]
	if !res.Success || res.TaskID != 2 {
		t.Fatalf("expected task 2 to be sent, got %+v", res)
	}
}

func TestRejectedTokenIsCleared(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantClear bool
	}{
		{name: "unregistered", err: fmt.Errorf("fcm: %w", push.ErrTokenNotRegistered), wantClear: true},
		{name: "invalid", err: push.ErrInvalidToken, wantClear: true},
		{name: "transient", err: errors.New("503 unavailable"), wantClear: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &memSettings{}
			logs := &memLogStore{}
			sender := &fakeSender{errFor: map[string]error{"tok-1": tt.err}}
			d := newDispatcher(t, settings, logs, sender, fixedClock(day(10)))

			res := d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{overdue(1, 5, model.TaskWatering, day(9))}))[0]
			if res.Success || res.Error == "" {
				t.Fatalf("result = %+v, want failure", res)
			}
			if cleared := len(settings.cleared) == 1 && settings.cleared[0] == 1; cleared != tt.wantClear {
				t.Fatalf("cleared = %v, want %v", settings.cleared, tt.wantClear)
			}
			if logs.Len() != 0 {
				t.Fatal("failed send must not be logged")
			}
		})
	}
}

func TestOneUserFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{
		errFor: map[string]error{"tok-1": errors.New("boom")},
		panics: map[string]bool{"tok-2": true},
	}
	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))

	groups := GroupByUser([]OverdueTask{
		overdue(1, 1, model.TaskWatering, day(9)),
		overdue(2, 2, model.TaskWatering, day(9)),
		overdue(3, 3, model.TaskWatering, day(9)),
	})
	results := d.SendNotificationsToUsers(context.Background(), groups)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Success || results[1].Success || !strings.Contains(results[1].Error, "panic") {
		t.Fatalf("first two users should fail: %+v", results[:2])
	}
	if !results[2].Success || results[2].UserID != 3 {
		t.Fatalf("third user should succeed: %+v", results[2])
	}
	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
}

func TestDedupLookupFailureIsPerUser(t *testing.T) {
	t.Parallel()

	logs := &memLogStore{findErr: errStoreDown}
	d := newDispatcher(t, &memSettings{}, logs, &fakeSender{}, fixedClock(day(10)))

	res := d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{overdue(1, 1, model.TaskWatering, day(9))}))
	if len(res) != 1 || res[0].Success || !strings.Contains(res[0].Error, "store down") {
		t.Fatalf("results = %+v", res)
	}
}

func TestDedupQueriesLogOncePerUser(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))
	groups := GroupByUser([]OverdueTask{
		overdue(1, 1, model.TaskWatering, day(5)),
		overdue(1, 2, model.TaskPruning, day(6)),
		overdue(1, 3, model.TaskSpraying, day(7)),
	})

	for cycle := 1; cycle <= 3; cycle++ {
		d.SendNotificationsToUsers(context.Background(), groups)
		d.Advance()
		if got := logs.Lookups(); got != cycle {
			t.Fatalf("after cycle %d: %d log lookups, want %d", cycle, got, cycle)
		}
	}
	if got := len(sender.Sent()); got != 3 {
		t.Fatalf("sent %d, want one per task", got)
	}
}

func TestBatchedDedupUsesEachTaskReference(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, sender, fixedClock(day(10)))

	stale := overdue(1, 1, model.TaskWatering, day(5))
	fresh := overdue(1, 2, model.TaskPruning, day(6))
	for _, task := range []OverdueTask{stale, fresh} {
		body, err := BuildPayload(task, DefaultLabels{}).JSON()
		if err != nil {
			t.Fatalf("JSON: %v", err)
		}
		_ = logs.Append(context.Background(), &model.NotificationLog{UserID: 1, Payload: body, SentAt: day(8)})
	}
	// Completed after its last notification, so that entry belongs to an older occurrence.
	fresh.LastCompletedOn = timePtr(day(8).Add(time.Hour))

	res := d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{stale, fresh}))[0]
	if !res.Success || res.Skipped || res.TaskID != fresh.TaskID {
		t.Fatalf("result = %+v, want task %d sent", res, fresh.TaskID)
	}
}

func TestLoggedPayloadCarriesTaskFragment(t *testing.T) {
	t.Parallel()

	logs := &memLogStore{}
	d := newDispatcher(t, &memSettings{}, logs, &fakeSender{}, fixedClock(day(10)))
	d.SendNotificationsToUsers(context.Background(), GroupByUser([]OverdueTask{overdue(1, 77, model.TaskWatering, day(9))}))

	if logs.Len() != 1 {
		t.Fatalf("logged %d entries", logs.Len())
	}
	entry := logs.entries[0]
	if !strings.Contains(string(entry.Payload), DedupFragment(77)) {
		t.Fatalf("payload %s lacks %s", entry.Payload, DedupFragment(77))
	}
	if entry.Channel != "fake" || !entry.SentAt.Equal(day(10)) {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestSendSpacingWaitsBetweenSends(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d, err := NewDispatcher(&memSettings{}, &memLogStore{}, sender, DispatcherOptions{
		SendSpacing: 30 * time.Millisecond,
		Clock:       fixedClock(day(10)),
	}, nopLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	groups := GroupByUser([]OverdueTask{
		overdue(1, 1, model.TaskWatering, day(9)),
		overdue(2, 2, model.TaskWatering, day(9)),
		overdue(3, 3, model.TaskWatering, day(9)),
	})
	start := time.Now()
	d.SendNotificationsToUsers(context.Background(), groups)
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("three sends took %v, want at least two spacing intervals", elapsed)
	}
	if len(sender.Sent()) != 3 {
		t.Fatalf("sent %d", len(sender.Sent()))
	}
}
