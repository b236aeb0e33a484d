package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/database"
	"github.com/learnhub/learnhub-backend/internal/logger"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/repository"
	"github.com/learnhub/learnhub-backend/internal/service"
)

func main() {
	var tenant, role string
	flag.StringVar(&tenant, "tenant", "", "Tenant the account belongs to")
	flag.StringVar(&role, "role", string(model.RoleAdmin), "STUDENT, TEACHER, MANAGER or ADMIN")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Account creation touches neither sessions nor the audit queue, so the
	// service runs without Redis here.
	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool), nil, nil, log)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== Create New User ===")

	if tenant == "" {
		tenant = prompt(reader, "Enter Tenant: ")
	}
	name := prompt(reader, "Enter Name: ")
	email := prompt(reader, "Enter Email: ")
	if tenant == "" || name == "" || email == "" {
		fmt.Println("Error: tenant, name and email are required")
		os.Exit(1)
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	password := string(bytePassword)
	if len(password) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	u, err := authService.CreateUser(ctx, tenant, name, email, password, model.Role(strings.ToUpper(role)))
	if errors.Is(err, service.ErrEmailTaken) {
		fmt.Printf("Error: %s is already registered\n", email)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created in tenant %s with ID: %s\n", u.Role, u.Name, u.Email, u.TenantID, u.ID)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
