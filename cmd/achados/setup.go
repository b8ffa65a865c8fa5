package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/erazemk/achados/internal/auth"
	"github.com/erazemk/achados/internal/cache"
	"github.com/erazemk/achados/internal/config"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/realtime"
	"github.com/erazemk/achados/internal/store"
)

// ensureAdmin creates the admin account when the database has no users and
// prints its generated password once.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	printInitResult(username, password)
	return nil
}

// printInitResult prints the first-run admin credentials to stdout.
func printInitResult(username, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// newItemCache builds the configured list cache. The returned close func is
// never nil.
func newItemCache(ctx context.Context, cfg config.CacheConfig) (cache.ItemCache, func(), error) {
	switch cfg.Backend {
	case "redis":
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("item cache ready", "backend", "redis", "addr", cfg.RedisAddr)
		return cache.NewRedis(client, cfg.KeyPrefix, cfg.TTL), func() { client.Close() }, nil
	case "none":
		return cache.Nop{}, func() {}, nil
	default:
		return cache.NewMemory(cfg.TTL), func() {}, nil
	}
}

// newBroker builds the configured new-item channel.
func newBroker(cfg config.RealtimeConfig, log *slog.Logger) (realtime.Broker, error) {
	if cfg.Backend == "nats" {
		nc, err := realtime.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, log)
		if err != nil {
			return nil, err
		}
		slog.Info("realtime ready", "backend", "nats", "url", cfg.NATSURL)
		return nc, nil
	}
	return realtime.NewHub(log, realtime.DefaultBuffer), nil
}

// purgeRevokedTokens drops expired revocations every interval until ctx is
// done.
func purgeRevokedTokens(ctx context.Context, database *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("purging revoked tokens failed", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}
