// ABOUTME: Runs the fake identity API for local development of the gateway
// ABOUTME: Seeds a demo account and serves the upstream contract on MOCK_IDENTITY_ADDR

package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/markalston/portal-gateway/logger"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/services/identitytest"
)

func main() {
	logger.Init()

	addr := os.Getenv("MOCK_IDENTITY_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	fake := identitytest.New()
	fake.AddUser("demo@example.com", "demo-password", models.UserProfile{
		FirstName:  "Demo",
		LastName:   "User",
		Username:   "demo",
		Role:       "user",
		IsVerified: true,
		IsActive:   true,
	})

	slog.Info("Mock identity API listening", "addr", addr, "account", "demo@example.com")
	if err := http.ListenAndServe(addr, fake.Handler()); err != nil {
		slog.Error("Mock identity API failed", "error", err)
		os.Exit(1)
	}
}
