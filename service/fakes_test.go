package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"compliancedesk-backend/llm"
	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"

	"github.com/google/uuid"
)

// eventLog records the order of side effects across fakes
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeContractStore struct {
	mu        sync.Mutex
	log       *eventLog
	contracts map[uuid.UUID]*models.Contract
	findings  map[uuid.UUID][]*models.Finding

	createErr   error
	deleteErr   error
	createCalls int
	deleteCalls int
	hashCalls   int
}

func newFakeContractStore(log *eventLog) *fakeContractStore {
	return &fakeContractStore{
		log:       log,
		contracts: make(map[uuid.UUID]*models.Contract),
		findings:  make(map[uuid.UUID][]*models.Finding),
	}
}

func (f *fakeContractStore) put(c *models.Contract) *models.Contract {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	f.contracts[c.ID] = c
	return c
}

func (f *fakeContractStore) get(id uuid.UUID) *models.Contract {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (f *fakeContractStore) Create(ctx context.Context, c *models.Contract) error {
	f.mu.Lock()
	f.createCalls++
	err := f.createErr
	f.mu.Unlock()
	f.log.add("contract.create")
	if err != nil {
		return err
	}
	f.put(c)
	return nil
}

func (f *fakeContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	if c := f.get(id); c != nil {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContractStore) ListByUserID(ctx context.Context, userID uuid.UUID, status *models.ContractStatus) ([]*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Contract
	for _, c := range f.contracts {
		if c.UserID == userID && (status == nil || c.Status == *status) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeContractStore) FindByHash(ctx context.Context, userID uuid.UUID, hash string) (*models.Contract, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashCalls++
	for _, c := range f.contracts {
		if c.UserID == userID && c.ContentHash != nil && *c.ContentHash == hash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeContractStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ContractStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[id]
	if !ok || c.Status != from {
		return repository.ErrStatusConflict
	}
	c.Status = to
	return nil
}

func (f *fakeContractStore) CompleteAnalysis(ctx context.Context, contractID uuid.UUID, findings []*models.Finding, riskScore, complianceScore int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contracts[contractID]
	if !ok || c.Status != models.ContractAnalyzing {
		return repository.ErrStatusConflict
	}
	for _, fd := range findings {
		fd.ID = uuid.New()
		fd.CreatedAt = time.Now()
	}
	f.findings[contractID] = append(f.findings[contractID], findings...)
	now := time.Now()
	c.Status = models.ContractReviewed
	c.RiskScore = &riskScore
	c.ComplianceScore = &complianceScore
	c.AnalyzedAt = &now
	return nil
}

func (f *fakeContractStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.log != nil {
		f.log.add("contract.delete")
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.contracts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.contracts, id)
	delete(f.findings, id)
	return nil
}

func (f *fakeContractStore) ListByContractID(ctx context.Context, contractID uuid.UUID) ([]*models.Finding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Finding{}, f.findings[contractID]...), nil
}

type fakeBlobStore struct {
	mu        sync.Mutex
	log       *eventLog
	objects   map[string][]byte
	uploadErr error
	deleteErr error

	uploadCalls int
	deleteCalls int
}

func newFakeBlobStore(log *eventLog) *fakeBlobStore {
	return &fakeBlobStore{log: log, objects: make(map[string][]byte)}
}

func (b *fakeBlobStore) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	b.mu.Lock()
	b.uploadCalls++
	err := b.uploadErr
	b.mu.Unlock()
	b.log.add("blob.upload")
	if err != nil {
		return err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[key] = body
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls++
	b.log.add("blob.delete")
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobStore) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

type fakeCategoryStore struct {
	mu         sync.Mutex
	categories []models.Category
	listCalls  int
}

func (f *fakeCategoryStore) Create(ctx context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.UserID == c.UserID && strings.EqualFold(existing.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	f.categories = append(f.categories, *c)
	return nil
}

func (f *fakeCategoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCategoryStore) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []models.Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategoryStore) Update(ctx context.Context, c *models.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, existing := range f.categories {
		if existing.ID == c.ID {
			idx = i
			continue
		}
		if existing.UserID == c.UserID && strings.EqualFold(existing.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	if idx < 0 {
		return repository.ErrNotFound
	}
	f.categories[idx] = *c
	return nil
}

func (f *fakeCategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.categories {
		if c.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeJobStore struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*models.AnalysisJob
	createErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*models.AnalysisJob)}
}

func (f *fakeJobStore) Create(ctx context.Context, job *models.AnalysisJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	job.ID = uuid.New()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return repository.ErrStatusConflict
	}
	job.Status = models.JobStatusRunning
	return nil
}

func (f *fakeJobStore) Complete(ctx context.Context, id uuid.UUID, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	now := time.Now()
	job.Status = models.JobStatusSucceeded
	job.Source = &source
	job.CompletedAt = &now
	return nil
}

func (f *fakeJobStore) ListUnfinished(ctx context.Context, olderThan time.Time) ([]*models.AnalysisJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AnalysisJob
	for _, job := range f.jobs {
		if job.Status.Terminal() || !job.CreatedAt.Before(olderThan) {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeJobStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &errorMessage
	job.CompletedAt = &now
	return nil
}

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

// testPDF builds a one-page PDF showing text, padded with a comment line to at least minSize bytes.
func testPDF(text string, minSize int) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 6)
	obj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	if pad := minSize - 1024; pad > 0 {
		buf.WriteString("%")
		buf.WriteString(strings.Repeat("x", pad))
		buf.WriteString("\n")
	}

	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [4 0 R] /Count 1 >>")
	obj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	obj(4, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents 5 0 R >>")
	obj(5, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}
