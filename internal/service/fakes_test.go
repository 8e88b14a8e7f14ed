package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"plant-care/internal/model"
	"plant-care/internal/push"
	"plant-care/internal/repository"
)

var day0 = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

// movableClock is a clock tests can advance between cycles.
type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

type fakeSender struct {
	mu     sync.Mutex
	sent   []push.Message
	errFor map[string]error
	panics map[string]bool
}

func (s *fakeSender) Channel() string { return "fake" }

func (s *fakeSender) Send(_ context.Context, msg push.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics[msg.Token] {
		panic("sender exploded")
	}
	if err := s.errFor[msg.Token]; err != nil {
		return "", err
	}
	s.sent = append(s.sent, msg)
	return "msg-" + msg.Data["taskId"], nil
}

func (s *fakeSender) Sent() []push.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]push.Message(nil), s.sent...)
}

type memLogStore struct {
	mu      sync.Mutex
	entries []model.NotificationLog
	findErr error
	lookups int
}

func (s *memLogStore) Append(_ context.Context, entry *model.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memLogStore) FindRecentContaining(_ context.Context, userID uint, since time.Time, substring string) (*model.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.UserID == userID && !e.SentAt.Before(since) && strings.Contains(string(e.Payload), substring) {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *memLogStore) FindSentSince(_ context.Context, userID uint, since time.Time) ([]model.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []model.NotificationLog
	for i := len(s.entries) - 1; i >= 0; i-- {
		if e := s.entries[i]; e.UserID == userID && !e.SentAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLogStore) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func (s *memLogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type memSettings struct {
	mu      sync.Mutex
	cleared []uint
}

func (s *memSettings) ClearFCMToken(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, userID)
	return nil
}

type stubOverdueStore struct {
	rows []model.OverdueRow
	err  error
}

func (s stubOverdueStore) FindActiveOverdue(_ context.Context, now time.Time, userID *uint) ([]model.OverdueRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.OverdueRow
	for _, r := range s.rows {
		if r.NextDueOn.After(now) {
			continue
		}
		if userID != nil && r.UserID != *userID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

var errStoreDown = errors.New("store down")

func newDispatcher(t *testing.T, settings SettingsStore, logs NotificationLogStore, sender push.Sender, clock Clock) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(settings, logs, sender, DispatcherOptions{Clock: clock}, nopLogger())
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d
}

func overdue(userID, taskID uint, key model.TaskKey, due time.Time) OverdueTask {
	return OverdueTask{
		TaskID:         taskID,
		TaskKey:        key,
		FrequencyDays:  7,
		NextDueOn:      due,
		PlantID:        100 + taskID,
		PlantName:      "Fern",
		PlantCreatedAt: day0,
		UserID:         userID,
		PushToken:      fmt.Sprintf("tok-%d", userID),
	}
}

// store wires real repositories over a temporary SQLite file.
type store struct {
	db       *gorm.DB
	users    *repository.UserRepository
	plants   *repository.PlantRepository
	tasks    *repository.TaskRepository
	settings *repository.SettingsRepository
	logs     *repository.NotificationLogRepository
}

func newStore(t *testing.T) *store {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "plants.db"), nil)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &store{
		db:       db,
		users:    repository.NewUserRepository(db),
		plants:   repository.NewPlantRepository(db),
		tasks:    repository.NewTaskRepository(db),
		settings: repository.NewSettingsRepository(db),
		logs:     repository.NewNotificationLogRepository(db),
	}
}

func (s *store) addUser(t *testing.T, email, token string, enabledAt *time.Time) *model.User {
	t.Helper()
	settings := &model.UserSettings{
		NotificationsEnabled:   enabledAt != nil,
		NotificationsEnabledAt: enabledAt,
	}
	if token != "" {
		settings.FCMToken = &token
	}
	user := &model.User{Email: email, Settings: settings}
	if err := s.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (s *store) addPlant(t *testing.T, userID uint, name string, createdAt time.Time) *model.Plant {
	t.Helper()
	plant := &model.Plant{UserID: userID, PetName: name, CreatedAt: createdAt}
	if err := s.plants.Create(context.Background(), plant); err != nil {
		t.Fatalf("create plant: %v", err)
	}
	return plant
}

func (s *store) addTask(t *testing.T, plantID uint, key model.TaskKey, freq int, due time.Time) *model.Task {
	t.Helper()
	task := &model.Task{PlantID: plantID, TaskKey: key, FrequencyDays: freq, NextDueOn: due, Active: true}
	if err := s.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func timePtr(t time.Time) *time.Time { return &t }
