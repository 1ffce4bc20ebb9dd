package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TZ", "America/Sao_Paulo")
	t.Setenv("MONGO_URI", "mongodb://db:27017/salao?retryWrites=true")
	t.Setenv("PORT", "3001")
	t.Setenv("FRONTEND_ORIGINS", "https://salao.example, http://localhost:5173/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MongoDB != "salao" {
		t.Fatalf("expected db from uri, got %q", cfg.MongoDB)
	}
	if cfg.ServerAddr != ":3001" {
		t.Fatalf("expected :3001, got %q", cfg.ServerAddr)
	}
	if len(cfg.FrontendOrigins) != 2 || cfg.FrontendOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", cfg.FrontendOrigins)
	}
	if !cfg.StoreEnabled || cfg.AllowReset {
		t.Fatalf("unexpected flags store=%v reset=%v", cfg.StoreEnabled, cfg.AllowReset)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Fatalf("unexpected reconcile interval %v", cfg.ReconcileInterval)
	}
	if cfg.PlaceholderEmail != "sem-email@agendamento.local" {
		t.Fatalf("unexpected placeholder %q", cfg.PlaceholderEmail)
	}
}

func TestLoadFlagsAndHours(t *testing.T) {
	t.Setenv("STORE_ENABLED", "false")
	t.Setenv("ALLOW_RESET", "true")
	t.Setenv("SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("OPEN_TIME", "08:00")
	t.Setenv("SLOT_MINUTES", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreEnabled || !cfg.AllowReset {
		t.Fatalf("flags not applied")
	}
	if cfg.ServerAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.ServerAddr)
	}
	if cfg.Hours.Open != "08:00" || cfg.Hours.SlotMinutes != 30 {
		t.Fatalf("unexpected hours %#v", cfg.Hours)
	}
}

func TestLoadRejectsBadHours(t *testing.T) {
	t.Setenv("OPEN_TIME", "19:00")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when opening after closing")
	}
}
