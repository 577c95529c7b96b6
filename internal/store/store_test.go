package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bowerhall/bubble/internal/mood"
)

func openTest(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	s.cost = bcrypt.MinCost
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndClose(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if !s.columnExists("users", "avatar_url") {
		t.Error("expected avatar_url column after migrate")
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestOpenFileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bubble.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	s.cost = bcrypt.MinCost
	if _, err := s.CreateUser(ctx, NewUser{Username: "kai", Password: "pw"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	if _, err := s.UserByUsername(ctx, "kai"); err != nil {
		t.Errorf("expected user to survive reopen: %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, NewUser{Username: "kai", Password: "secret", Email: "kai@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 || user.AuthProvider != "local" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.PasswordHash == "secret" {
		t.Error("password must be stored hashed")
	}

	if _, err := s.CreateUser(ctx, NewUser{Username: "kai", Password: "other"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}

	got, err := s.Authenticate(ctx, "kai", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}

	if _, err := s.Authenticate(ctx, "kai", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	var ve *ValidationError
	if _, err := s.CreateUser(ctx, NewUser{Username: " ", Password: "x"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for empty username, got %v", err)
	}
}

func TestSocialLogin(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	first, err := s.SocialLogin(ctx, "google", "river@example.com", "")
	if err != nil {
		t.Fatalf("social login: %v", err)
	}
	if first.Username != "river" || first.AuthProvider != "google" {
		t.Errorf("unexpected user %+v", first)
	}

	again, err := s.SocialLogin(ctx, "google", "river@example.com", "")
	if err != nil {
		t.Fatalf("second social login: %v", err)
	}
	if again.ID != first.ID {
		t.Error("expected the same account on repeat login")
	}

	if _, err := s.SocialLogin(ctx, "apple", "river@example.com", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken across providers, got %v", err)
	}
}

func TestJournal(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	old, err := s.AddJournalEntry(ctx, JournalEntry{UserID: 1, Title: "Work Stress", Content: "Deadline", Mood: "Stressed", CreatedAt: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if old.Mood != mood.Stressed {
		t.Errorf("expected normalized mood, got %s", old.Mood)
	}

	recent, err := s.AddJournalEntry(ctx, JournalEntry{UserID: 1, Title: "Better day", Content: "Breathing helped"})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if recent.Mood != mood.Neutral {
		t.Errorf("expected neutral default, got %s", recent.Mood)
	}

	s.AddJournalEntry(ctx, JournalEntry{UserID: 2, Title: "Other", Content: "x"})

	entries, err := s.JournalEntries(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != recent.ID {
		t.Fatalf("expected 2 entries newest first, got %+v", entries)
	}

	if _, err := s.AddJournalEntry(ctx, JournalEntry{UserID: 1, Title: "x", Content: "y", Mood: "hangry"}); err == nil {
		t.Error("expected error for unknown mood")
	}

	if err := s.DeleteJournalEntry(ctx, old.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteJournalEntry(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMoodHistory(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	s.RecordMood(ctx, "a", mood.Anxious, 30)
	s.RecordMood(ctx, "a", mood.Calm, 170)
	s.RecordMood(ctx, "b", mood.Happy, 80)

	records, err := s.MoodHistory(ctx, "a", 0)
	if err != nil {
		t.Fatalf("mood history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Mood != mood.Anxious || records[1].Mood != mood.Calm {
		t.Errorf("expected oldest first, got %+v", records)
	}
	if records[1].Value != 100 {
		t.Errorf("expected value clamped to 100, got %d", records[1].Value)
	}

	all, _ := s.MoodHistory(ctx, "", 0)
	if len(all) != 3 {
		t.Errorf("expected 3 records across sessions, got %d", len(all))
	}

	if err := s.RecordMood(ctx, "a", mood.Mood("bogus"), 10); err == nil {
		t.Error("expected error for unknown mood")
	}
}

func TestDailySchedule(t *testing.T) {
	sched, err := DailySchedule("08:30")
	if err != nil {
		t.Fatalf("DailySchedule: %v", err)
	}

	from := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	want := time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, next)
	}

	for _, bad := range []string{"8:30", "25:00", "12:60", "noon", "12-30"} {
		if _, err := DailySchedule(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestAffirmations(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a, err := s.CreateAffirmation(ctx, Affirmation{UserID: 1, Text: "I am worthy of good things", ReminderTime: "08:00", IsActive: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var ve *ValidationError
	if _, err := s.CreateAffirmation(ctx, Affirmation{UserID: 1, Text: "x", ReminderTime: "8am"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for bad time, got %v", err)
	}
	if _, err := s.CreateAffirmation(ctx, Affirmation{Text: "x"}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for missing user, got %v", err)
	}

	list, err := s.Affirmations(ctx, 1)
	if err != nil || len(list) != 1 || !list[0].IsActive {
		t.Fatalf("expected 1 active affirmation, got %+v (%v)", list, err)
	}

	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.Local)
	due, err := s.AffirmationsAt(ctx, at)
	if err != nil || len(due) != 1 {
		t.Fatalf("expected affirmation due at 08:00, got %+v (%v)", due, err)
	}

	inactive := false
	text := "I choose what I can control"
	updated, err := s.UpdateAffirmation(ctx, a.ID, AffirmationPatch{Text: &text, IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Text != text || updated.IsActive || updated.ReminderTime != "08:00" {
		t.Errorf("unexpected update result %+v", updated)
	}

	due, _ = s.AffirmationsAt(ctx, at)
	if len(due) != 0 {
		t.Error("expected inactive affirmation not due")
	}

	if _, err := s.UpdateAffirmation(ctx, 999, AffirmationPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteAffirmation(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteAffirmation(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReminders(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Now()

	past, err := s.CreateReminder(ctx, Reminder{UserID: 1, Title: "Deep Breathing Exercise", ScheduledTime: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	future, err := s.CreateReminder(ctx, Reminder{UserID: 1, Title: "Journal Reflection", ScheduledTime: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.CreateReminder(ctx, Reminder{UserID: 1, Title: "no time"}); err == nil {
		t.Error("expected error for missing time")
	}

	list, _ := s.Reminders(ctx, 1)
	if len(list) != 2 || list[0].ID != past.ID {
		t.Fatalf("expected reminders by time, got %+v", list)
	}

	due, err := s.DueReminders(ctx, now)
	if err != nil || len(due) != 1 || due[0].ID != past.ID {
		t.Fatalf("expected only the past reminder due, got %+v (%v)", due, err)
	}

	if err := s.CompleteReminder(ctx, past.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	due, _ = s.DueReminders(ctx, now)
	if len(due) != 0 {
		t.Errorf("expected no due reminders after completion, got %d", len(due))
	}

	// rescheduling re-arms
	when := now.Add(-time.Second)
	updated, err := s.UpdateReminder(ctx, past.ID, ReminderPatch{ScheduledTime: &when})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.IsComplete {
		t.Error("expected rescheduled reminder to be incomplete")
	}

	if err := s.DeleteReminder(ctx, future.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Reminder(ctx, future.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.CompleteReminder(ctx, future.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	s.CreateUser(ctx, NewUser{Username: "kai", Password: "pw"})

	path := filepath.Join(t.TempDir(), "snap.db")
	if err := s.Snapshot(ctx, path); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty snapshot, got %v", err)
	}

	restored, err := Open(path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer restored.Close()

	if _, err := restored.UserByUsername(ctx, "kai"); err != nil {
		t.Errorf("expected user in snapshot: %v", err)
	}
}
