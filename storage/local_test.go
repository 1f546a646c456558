package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()
	key := ObjectKey(uuid.New(), time.Now(), ".pdf")

	if err := s.Upload(ctx, key, strings.NewReader("%PDF-1.4 body"), 13, "application/pdf"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rc, err := s.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "%PDF-1.4 body" {
		t.Fatalf("body: got=%q", body)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Download(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("download after delete: want ErrNotFound got=%v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing object should succeed: %v", err)
	}
}

func TestLocalStorageStaysInsideBase(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	full, err := s.resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(full, s.basePath) {
		t.Fatalf("resolved path escaped base: %s", full)
	}
}

func TestObjectKey(t *testing.T) {
	owner := uuid.MustParse("7f0c7d2e-3b1a-4c55-9b7e-1f2a3b4c5d6e")
	at := time.Unix(0, 1700000000123456789)

	got := ObjectKey(owner, at, "PDF")
	want := "7f0c7d2e-3b1a-4c55-9b7e-1f2a3b4c5d6e/1700000000123456789.pdf"
	if got != want {
		t.Fatalf("ObjectKey: want=%q got=%q", want, got)
	}
}
