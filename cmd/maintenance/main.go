// Command maintenance runs the bulk admin jobs against the configured store:
//
//	maintenance clean-duplicates
//	maintenance normalize
//	maintenance reset        (requires ALLOW_RESET=true)
//	maintenance seed-admin   (reads ADMIN_USER/ADMIN_PASSWORD and ADMIN_USER_2/ADMIN_PASSWORD_2)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"agendamento-backend/internal/auth"
	"agendamento-backend/internal/cache"
	"agendamento-backend/internal/config"
	"agendamento-backend/internal/db"
	"agendamento-backend/internal/maintenance"
	"agendamento-backend/internal/models"
	"agendamento-backend/internal/store"
)

type seedUser struct {
	Username    string
	Email       string
	PasswordEnv string
}

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-timeout 5m] clean-duplicates|normalize|reset|seed-admin\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	ensureIndexes := func() error { return db.EnsureIndexes(ctx, cols) }
	if err := checkIndexes(ensureIndexes(), logger); err != nil {
		log.Fatal(err)
	}
	st := store.NewMongo(cols, cfg.PlaceholderEmail)

	var c cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" {
		if rc, err := cache.NewRedisFromURL(cfg.RedisURL); err == nil {
			defer rc.Close()
			c = rc
		} else {
			logger.Warn("redis unavailable, cache not flushed", slog.String("error", err.Error()))
		}
	} else if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rc.Close()
		c = rc
	}

	if err := run(ctx, flag.Arg(0), st, maintenance.New(st, c, logger, cfg.AllowReset), cfg.Timezone); err != nil {
		log.Fatal(err)
	}
	if flag.Arg(0) == "clean-duplicates" || flag.Arg(0) == "normalize" {
		if err := checkIndexes(ensureIndexes(), logger); err != nil {
			log.Fatal(err)
		}
	}
}

// checkIndexes tolerates ErrDuplicateKeys so clean-duplicates can run over the data that
// blocks the unique index. Any other index failure is returned.
func checkIndexes(err error, logger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrDuplicateKeys) {
		logger.Warn("index creation incomplete, run clean-duplicates", slog.String("error", err.Error()))
		return nil
	}
	return err
}

func run(ctx context.Context, cmd string, st *store.Store, svc *maintenance.Service, loc *time.Location) error {
	var (
		report interface{}
		err    error
	)
	switch cmd {
	case "clean-duplicates":
		report, err = svc.CleanDuplicates(ctx)
	case "normalize":
		report, err = svc.NormalizeDates(ctx)
	case "reset":
		report, err = svc.Reset(ctx)
	case "seed-admin":
		report, err = seedAdmins(ctx, st, defaultSeedUsers(), os.Getenv, loc)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}

func defaultSeedUsers() []seedUser {
	return []seedUser{
		{
			Username:    envOrDefault("ADMIN_USER", "admin"),
			Email:       envOrDefault("ADMIN_EMAIL", ""),
			PasswordEnv: "ADMIN_PASSWORD",
		},
		{
			Username:    envOrDefault("ADMIN_USER_2", "admin2"),
			Email:       envOrDefault("ADMIN_EMAIL_2", ""),
			PasswordEnv: "ADMIN_PASSWORD_2",
		},
	}
}

type seedReport struct {
	Seeded  []string `json:"seeded"`
	Skipped []string `json:"skipped,omitempty"`
}

// seedAdmins upserts each admin whose password variable is set.
func seedAdmins(ctx context.Context, st *store.Store, users []seedUser, getenv func(string) string, loc *time.Location) (seedReport, error) {
	report := seedReport{Seeded: []string{}}
	for _, u := range users {
		username := strings.ToLower(strings.TrimSpace(u.Username))
		password := getenv(u.PasswordEnv)
		if username == "" || password == "" {
			log.Printf("seed admin: %s missing, skipping (%s)", u.Username, u.PasswordEnv)
			report.Skipped = append(report.Skipped, u.Username)
			continue
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return report, fmt.Errorf("seed admin %s: %w", username, err)
		}
		now := time.Now().In(loc)
		err = st.Users.Upsert(ctx, models.User{
			ID:           primitive.NewObjectID().Hex(),
			Username:     username,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         models.UserRoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return report, fmt.Errorf("seed admin %s: %w", username, err)
		}
		report.Seeded = append(report.Seeded, username)
	}
	return report, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
