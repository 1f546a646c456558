package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"compliancedesk-backend/config"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(seed.Categories) == 0 {
		return nil, fmt.Errorf("%s defines no categories", path)
	}
	return &seed, nil
}

func main() {
	file := flag.String("file", "cmd/seed-categories/categories.yaml", "YAML file with categories")
	email := flag.String("email", "test@example.com", "owner of the seeded categories")
	flag.Parse()

	if !config.LoadDotEnv() {
		log.Println("Warning: No .env file found, using environment variables")
	}
	cfg := config.Load()

	seed, err := loadSeed(*file)
	if err != nil {
		log.Fatalf("Failed to load seed file: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	user, err := repository.NewUserRepository(pool).GetByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("Failed to find user %s: %v", *email, err)
	}

	categories := service.NewCategoryService(repository.NewCategoryRepository(pool))
	created, skipped := 0, 0
	for _, c := range seed.Categories {
		in := service.CategoryInput{Name: c.Name, Keywords: c.Keywords}
		if c.Description != "" {
			desc := c.Description
			in.Description = &desc
		}
		if _, err := categories.Create(ctx, user.ID, in); err != nil {
			if errors.Is(err, service.ErrDuplicateCategory) {
				skipped++
				continue
			}
			log.Fatalf("Failed to create category %q: %v", c.Name, err)
		}
		created++
		log.Printf("✓ Created category: %s", c.Name)
	}

	fmt.Printf("\n✅ Categories seeded for %s: %d created, %d already present\n", user.Email, created, skipped)
}
