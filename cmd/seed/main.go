package main

import (
	"log"
	"log/slog"

	"stream-service/internal/config"
	"stream-service/internal/database"
	"stream-service/internal/models"
	"stream-service/internal/repositories/postgres"
)

// Demo projects and their members for local development
var seedProjects = []struct {
	id      string
	title   string
	owner   string
	members []string
}{
	{"proj-launch", "Launch plan", "admin", []string{"alice", "bob"}},
	{"proj-roadmap", "Roadmap", "alice", []string{"charlie"}},
	{"proj-support", "Support queue", "bob", nil},
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	projectRepo := postgres.NewProjectRepository(db)

	for _, p := range seedProjects {
		if err := projectRepo.Create(&models.Project{ID: p.id, Title: p.title}); err != nil {
			slog.Info("Project already exists, reconciling members", "projectID", p.id)
		}

		roles := map[string]string{p.owner: "owner"}
		for _, userID := range p.members {
			roles[userID] = "member"
		}
		if err := projectRepo.SyncMembers(p.id, roles); err != nil {
			slog.Warn("Failed to seed members", "projectID", p.id, "error", err)
			continue
		}
		slog.Info("Seeded project", "projectID", p.id, "members", len(roles))
	}

	slog.Info("Database seeding completed successfully!")
}

