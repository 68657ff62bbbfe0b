package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table from the init migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downSQL, err := os.ReadFile(filepath.Join(root, "migrations", "000001_init.down.sql"))
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(filepath.Join(root, "migrations", "000001_init.up.sql"))
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// NewDBPool connects to DATABASE_URL, takes the test lock and resets the
// schema. Everything is released on cleanup.
func NewDBPool(t testing.TB) (context.Context, *pgxpool.Pool) {
	t.Helper()

	dsn := RequireEnv(t, "DATABASE_URL")
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect database: %v", err)
	}

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		pool.Close()
		t.Fatalf("lock database: %v", err)
	}

	if err := ResetSchema(ctx, pool); err != nil {
		_ = unlock()
		pool.Close()
		t.Fatalf("reset schema: %v", err)
	}

	t.Cleanup(func() {
		_ = unlock()
		pool.Close()
	})

	return ctx, pool
}

// NewRedisClient connects to REDIS_URL and flushes the database.
func NewRedisClient(t testing.TB) (context.Context, *redis.Client) {
	t.Helper()

	redisURL := RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	if err := FlushRedis(ctx, client); err != nil {
		_ = client.Close()
		t.Fatalf("flush redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return ctx, client
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile creates an active member profile with a unique email.
func NewTestProfile(t testing.TB, fullName string) *model.Profile {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	return &model.Profile{
		ID:        id,
		Email:     fmt.Sprintf("%s@example.test", id[:8]),
		FullName:  fullName,
		Role:      model.RoleMember,
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InsertProfile writes p directly, bypassing the repository.
func InsertProfile(ctx context.Context, t testing.TB, pool *pgxpool.Pool, p *model.Profile) {
	t.Helper()
	_, err := pool.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Email, p.FullName, string(p.Role), string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}
}

// NewTestApplication creates a pending application with sensible defaults.
func NewTestApplication(t testing.TB, email string) *model.Application {
	t.Helper()
	now := time.Now().UTC()
	return &model.Application{
		ID:        UniqueID("app"),
		FullName:  "Test Applicant",
		Email:     email,
		Phone:     "+1 555 0100",
		Company:   "Acme",
		Message:   "I would like to join.",
		Interests: []string{"events", "mentoring"},
		Status:    model.ApplicationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
