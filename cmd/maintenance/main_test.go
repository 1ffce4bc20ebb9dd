package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"agendamento-backend/internal/auth"
	"agendamento-backend/internal/db"
	"agendamento-backend/internal/store"
)

func TestSeedAdminsSkipsMissingPasswords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory("")
	env := map[string]string{"PW_1": "segredo"}
	users := []seedUser{
		{Username: "Admin", PasswordEnv: "PW_1"},
		{Username: "admin2", PasswordEnv: "PW_2"},
	}

	report, err := seedAdmins(ctx, st, users, func(k string) string { return env[k] }, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Seeded) != 1 || report.Seeded[0] != "admin" || len(report.Skipped) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	u, err := st.Users.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("expected seeded user: %v", err)
	}
	if err := auth.ComparePassword(u.PasswordHash, "segredo"); err != nil {
		t.Fatalf("password hash mismatch: %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	st := store.NewMemory("")
	if err := run(context.Background(), "drop-everything", st, nil, time.UTC); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCheckIndexesToleratesDuplicates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dup := fmt.Errorf("index appointments.confirmed_slot_unique: %w: E11000", db.ErrDuplicateKeys)
	if err := checkIndexes(dup, logger); err != nil {
		t.Fatalf("duplicates must not stop the jobs, got %v", err)
	}
	if err := checkIndexes(nil, logger); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	other := errors.New("server selection timeout")
	if err := checkIndexes(other, logger); !errors.Is(err, other) {
		t.Fatalf("expected %v, got %v", other, err)
	}
}
