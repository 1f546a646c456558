package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"compliancedesk-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if !config.LoadDotEnv() {
		log.Println("Warning: No .env file found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Drop tables first when RESET_SCHEMA=true (development only)
	if os.Getenv("RESET_SCHEMA") == "true" {
		_, err = pool.Exec(ctx, "DROP TABLE IF EXISTS findings, analysis_jobs, contracts, categories, users CASCADE")
		if err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✓ Dropped existing tables")
	}

	tables := []struct {
		name string
		sql  string
	}{
		{
			name: "users",
			sql: `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "categories",
			sql: `
CREATE TABLE IF NOT EXISTS categories (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    -- order matters: the first best-scoring category wins classification ties
    keywords TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			name: "contracts",
			sql: `
CREATE TABLE IF NOT EXISTS contracts (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name VARCHAR(512) NOT NULL,
    storage_path TEXT NOT NULL UNIQUE,
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL CHECK (size >= 0),
    status VARCHAR(32) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'analyzing', 'reviewed', 'approved', 'needs_attention')),
    risk_score INTEGER CHECK (risk_score BETWEEN 0 AND 100),
    compliance_score INTEGER CHECK (compliance_score BETWEEN 0 AND 100),
    category VARCHAR(255),
    content_hash CHAR(64),
    extracted_text TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    analyzed_at TIMESTAMPTZ
);`,
		},
		{
			name: "analysis_jobs",
			sql: `
CREATE TABLE IF NOT EXISTS analysis_jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status VARCHAR(32) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'running', 'succeeded', 'failed')),
    source VARCHAR(32),
    error_message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMPTZ
);`,
		},
		{
			name: "findings",
			sql: `
CREATE TABLE IF NOT EXISTS findings (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
    job_id UUID NOT NULL REFERENCES analysis_jobs(id) ON DELETE CASCADE,
    analysis_type VARCHAR(100) NOT NULL,
    issue_description TEXT NOT NULL,
    section_reference TEXT,
    severity VARCHAR(16) NOT NULL CHECK (severity IN ('high', 'medium', 'low')),
    regulation_citation TEXT,
    recommendation TEXT,
    suggested_text TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
	}

	for _, table := range tables {
		if _, err := pool.Exec(ctx, table.sql); err != nil {
			log.Fatalf("Failed to create table %s: %v", table.name, err)
		}
		log.Printf("✓ Created table: %s", table.name)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Category name unique per user",
			sql:  "CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_user_name ON categories(user_id, lower(name));",
		},
		{
			name: "Contracts by owner",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_user_created ON contracts(user_id, created_at DESC);",
		},
		{
			name: "Contracts by owner and status",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_user_status ON contracts(user_id, status);",
		},
		{
			name: "Duplicate lookup by fingerprint",
			sql:  "CREATE INDEX IF NOT EXISTS idx_contracts_user_hash ON contracts(user_id, content_hash) WHERE content_hash IS NOT NULL;",
		},
		{
			name: "Jobs by contract",
			sql:  "CREATE INDEX IF NOT EXISTS idx_analysis_jobs_contract ON analysis_jobs(contract_id, created_at DESC);",
		},
		{
			name: "Unfinished jobs",
			sql:  "CREATE INDEX IF NOT EXISTS idx_analysis_jobs_unfinished ON analysis_jobs(created_at) WHERE status IN ('pending', 'running');",
		},
		{
			name: "Findings by contract",
			sql:  "CREATE INDEX IF NOT EXISTS idx_findings_contract ON findings(contract_id);",
		},
	}

	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d\n", len(tables))
	fmt.Printf("   Indexes: %d\n", len(indexes))
}
