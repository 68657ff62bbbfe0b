//go:build ignore

// grant-role creates or updates the profile row of an auth service user,
// which is how the first admin is provisioned.
//
//	go run ./scripts/grant-role.go -id <auth user uuid> -email admin@example.com -role admin
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/repository"
)

type output struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		id          = flag.String("id", "", "Auth service user id (uuid)")
		email       = flag.String("email", "", "Profile email")
		fullName    = flag.String("name", "", "Profile full name")
		role        = flag.String("role", string(model.RoleAdmin), "Role: admin or member")
		status      = flag.String("status", string(model.StatusActive), "Status: active, pending or suspended")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	profile, err := buildProfile(*id, *email, *fullName, *role, *status)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL, repository.PoolOptions{MaxConns: 1})
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.UpsertProfile(ctx, profile); err != nil {
		fmt.Fprintln(os.Stderr, "upsert profile:", err)
		os.Exit(1)
	}

	out := output{
		ID:     profile.ID,
		Email:  profile.Email,
		Role:   string(profile.Role),
		Status: string(profile.Status),
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("%s %s role=%s status=%s\n", out.ID, out.Email, out.Role, out.Status)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func buildProfile(id, email, fullName, role, status string) (*model.Profile, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", id, err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	r := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if r != model.RoleAdmin && r != model.RoleMember {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	s := model.Status(strings.ToLower(strings.TrimSpace(status)))
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	return &model.Profile{
		ID:       parsed.String(),
		Email:    email,
		FullName: strings.TrimSpace(fullName),
		Role:     r,
		Status:   s,
	}, nil
}
