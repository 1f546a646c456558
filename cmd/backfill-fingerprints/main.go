// Command backfill-fingerprints fills in extracted text and the content fingerprint
// for contracts stored before fingerprinting existed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"compliancedesk-backend/config"
	"compliancedesk-backend/extract"
	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	batchSize := flag.Int("batch", 50, "contracts per batch")
	pause := flag.Duration("pause", 500*time.Millisecond, "pause between batches")
	flag.Parse()

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

	blobs, err := storage.NewStorageFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	contracts := repository.NewContractRepository(pool)

	processed, failed := 0, 0
	seen := make(map[string]bool)
	for {
		batch, err := contracts.ListMissingFingerprint(ctx, *batchSize)
		if err != nil {
			log.Fatalf("Failed to list contracts: %v", err)
		}
		pending := 0
		for _, c := range batch {
			if seen[c.ID.String()] {
				continue
			}
			seen[c.ID.String()] = true
			pending++

			log.Printf("\n📄 Processing: %s (%s)", c.Name, c.ID)
			doc, err := fingerprint(ctx, blobs, c)
			if err != nil {
				log.Printf("   ❌ %v", err)
				failed++
				continue
			}
			if err := contracts.UpdateExtraction(ctx, c.ID, doc.Text, doc.Fingerprint); err != nil {
				log.Printf("   ❌ Error storing extraction: %v", err)
				failed++
				continue
			}
			log.Printf("   ✅ %d pages, %d chars, fingerprint %s", doc.Pages, len(doc.Text), doc.Fingerprint[:12])
			processed++
		}
		// Failed contracts keep a NULL fingerprint and come back in the next page
		if pending == 0 {
			break
		}
		time.Sleep(*pause)
	}

	fmt.Printf("\n✅ Backfill finished: %d updated, %d failed\n", processed, failed)
}

func fingerprint(ctx context.Context, blobs storage.Storage, c *models.Contract) (extract.Result, error) {
	rc, err := blobs.Download(ctx, c.StoragePath)
	if err != nil {
		return extract.Result{}, fmt.Errorf("download %s: %w", c.StoragePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return extract.Result{}, fmt.Errorf("read %s: %w", c.StoragePath, err)
	}
	return extract.Document(data), nil
}
