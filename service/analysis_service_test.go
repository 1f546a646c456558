package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"compliancedesk-backend/analysis"
	"compliancedesk-backend/lease"
	"compliancedesk-backend/llm"
	"compliancedesk-backend/models"

	"github.com/google/uuid"
)

const structuredReply = `{
  "risk_score": 64.4,
  "compliance_score": 71.6,
  "findings": [
    {"analysis_type": "gst_compliance", "issue_description": "GSTIN missing", "severity": "critical",
     "regulation_citation": "CGST Act, 2017", "recommendation": "Add GSTIN"},
    {"analysis_type": "tds_compliance", "issue_description": "TDS clause absent", "severity": "medium"}
  ]
}`

type analysisFixture struct {
	contracts *fakeContractStore
	jobs      *fakeJobStore
	blobs     *fakeBlobStore
	model     *fakeLLM
	locker    *lease.MemoryLocker
	svc       *AnalysisService
	userID    uuid.UUID
	contract  *models.Contract
}

func newAnalysisFixture(reply string, offline bool) *analysisFixture {
	f := &analysisFixture{
		contracts: newFakeContractStore(nil),
		jobs:      newFakeJobStore(),
		blobs:     newFakeBlobStore(nil),
		model:     &fakeLLM{reply: reply},
		locker:    lease.NewMemoryLocker(),
		userID:    uuid.New(),
	}
	text := "Vendor agreement. Payment within 30 days."
	f.contract = f.contracts.put(&models.Contract{
		UserID:        f.userID,
		Name:          "vendor.pdf",
		StoragePath:   "owner/1.pdf",
		MimeType:      PDFMimeType,
		Status:        models.ContractPending,
		ExtractedText: &text,
	})
	f.svc = NewAnalysisService(
		AnalysisWithContractStore(f.contracts),
		AnalysisWithFindingStore(f.contracts),
		AnalysisWithJobStore(f.jobs),
		AnalysisWithStorage(f.blobs),
		AnalysisWithClient(f.model, offline),
		AnalysisWithLocker(f.locker),
		AnalysisWithTiming(5*time.Millisecond, time.Second),
	)
	return f
}

func TestAnalysisLifecycle(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if got := f.contracts.get(f.contract.ID).Status; got != models.ContractAnalyzing {
		t.Fatalf("status right after start: want=analyzing got=%s", got)
	}

	if err := f.svc.ProcessAnalysis(ctx, jobID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	c := f.contracts.get(f.contract.ID)
	if c.Status != models.ContractReviewed {
		t.Fatalf("status: want=reviewed got=%s", c.Status)
	}
	if c.RiskScore == nil || c.ComplianceScore == nil {
		t.Fatalf("scores not populated")
	}
	if *c.RiskScore != 64 || *c.ComplianceScore != 72 {
		t.Fatalf("scores: want=64/72 got=%d/%d", *c.RiskScore, *c.ComplianceScore)
	}
	if c.AnalyzedAt == nil {
		t.Fatalf("analyzed_at not set")
	}

	job, err := f.svc.AwaitJob(ctx, jobID, f.userID)
	if err != nil {
		t.Fatalf("AwaitJob: %v", err)
	}
	if job.Status != models.JobStatusSucceeded || job.Source == nil || *job.Source != analysis.SourceStructured {
		t.Fatalf("job: %+v", job)
	}

	findings, err := f.svc.ListFindings(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("ListFindings: %v", err)
	}
	if len(findings) != 2 || findings[0].Severity != models.SeverityHigh || findings[0].JobID != jobID {
		t.Fatalf("findings: %+v", findings)
	}

	if len(f.model.requests) != 1 || !f.model.requests[0].JSON {
		t.Fatalf("model should be asked once for JSON output")
	}

	if _, ok, _ := f.locker.Acquire(ctx, lease.ContractKey(f.contract.ID.String()), time.Minute); !ok {
		t.Fatalf("lease should be released after the job")
	}
}

func TestAnalysisRejectsConcurrentStart(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	ctx := context.Background()

	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("second start: want ErrAnalysisInProgress got=%v", err)
	}
}

func TestAnalysisStatusGuardWithoutLease(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	ctx := context.Background()

	// A second server instance would not share the in-memory lease; the status check still holds.
	f.contracts.UpdateStatus(ctx, f.contract.ID, models.ContractPending, models.ContractAnalyzing)
	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("want ErrAnalysisInProgress got=%v", err)
	}

	f.contracts.UpdateStatus(ctx, f.contract.ID, models.ContractAnalyzing, models.ContractApproved)
	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approved contract: want ErrInvalidTransition got=%v", err)
	}
}

func TestAnalysisFailureFlagsContract(t *testing.T) {
	f := newAnalysisFixture("", false)
	f.model.err = errors.New("quota exceeded")
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if err := f.svc.ProcessAnalysis(ctx, jobID); err == nil {
		t.Fatalf("expected error")
	}

	if got := f.contracts.get(f.contract.ID).Status; got != models.ContractNeedsAttention {
		t.Fatalf("status: want=needs_attention got=%s", got)
	}
	job, _ := f.svc.GetJob(ctx, jobID, f.userID)
	if job.Status != models.JobStatusFailed || job.ErrorMessage == nil {
		t.Fatalf("job should be failed with a message: %+v", job)
	}
	if len(f.model.requests) != 1 {
		t.Fatalf("failed analysis must not be retried, requests=%d", len(f.model.requests))
	}
	if _, ok, _ := f.locker.Acquire(ctx, lease.ContractKey(f.contract.ID.String()), time.Minute); !ok {
		t.Fatalf("lease should be released after a failure")
	}
}

func TestAnalysisJobCreateFailure(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	f.jobs.createErr = errors.New("insert failed")
	ctx := context.Background()

	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID); err == nil {
		t.Fatalf("expected error")
	}
	if got := f.contracts.get(f.contract.ID).Status; got != models.ContractNeedsAttention {
		t.Fatalf("status: want=needs_attention got=%s", got)
	}
}

func TestAnalysisOfflineUsesHeuristic(t *testing.T) {
	f := newAnalysisFixture("", true)
	f.svc.client = llm.NewOfflineClient()
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if err := f.svc.ProcessAnalysis(ctx, jobID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	job, _ := f.svc.GetJob(ctx, jobID, f.userID)
	if job.Source == nil || *job.Source != SourceOffline {
		t.Fatalf("source: want=offline got=%v", job.Source)
	}
	c := f.contracts.get(f.contract.ID)
	if *c.RiskScore < 0 || *c.RiskScore > 100 || *c.ComplianceScore < 0 || *c.ComplianceScore > 100 {
		t.Fatalf("scores out of range: %d/%d", *c.RiskScore, *c.ComplianceScore)
	}
	findings, _ := f.svc.ListFindings(ctx, f.contract.ID, f.userID)
	if len(findings) == 0 {
		t.Fatalf("expected heuristic findings")
	}
}

func TestAnalysisFallsBackToBlobText(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	f.contracts.mu.Lock()
	f.contracts.contracts[f.contract.ID].ExtractedText = nil
	f.contracts.mu.Unlock()
	f.blobs.objects["owner/1.pdf"] = testPDF("Reextracted clause text", 0)
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if err := f.svc.ProcessAnalysis(ctx, jobID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	if len(f.model.requests) != 1 {
		t.Fatalf("expected one model request")
	}
}

func TestAwaitJobTimesOut(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	f.svc.timeout = 20 * time.Millisecond
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	job, err := f.svc.AwaitJob(ctx, jobID, f.userID)
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("want ErrJobTimeout got=%v", err)
	}
	if job == nil || job.Status != models.JobStatusPending {
		t.Fatalf("last seen job should be pending: %+v", job)
	}
}

func TestAnalysisHidesOtherUsersData(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	ctx := context.Background()
	stranger := uuid.New()

	if _, err := f.svc.StartAnalysis(ctx, f.contract.ID, stranger); !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("start: want ErrContractNotFound got=%v", err)
	}
	jobID, _ := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if _, err := f.svc.GetJob(ctx, jobID, stranger); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("job: want ErrJobNotFound got=%v", err)
	}
	if _, err := f.svc.ListFindings(ctx, f.contract.ID, stranger); !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("findings: want ErrContractNotFound got=%v", err)
	}
}

// recordingLocker wraps a MemoryLocker and keeps the TTLs and tokens it saw
type recordingLocker struct {
	*lease.MemoryLocker
	ttls     []time.Duration
	acquired []string
	released []string
}

func (r *recordingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token, ok, err := r.MemoryLocker.Acquire(ctx, key, ttl)
	r.ttls = append(r.ttls, ttl)
	if ok {
		r.acquired = append(r.acquired, token)
	}
	return token, ok, err
}

func (r *recordingLocker) Release(ctx context.Context, key, token string) error {
	r.released = append(r.released, token)
	return r.MemoryLocker.Release(ctx, key, token)
}

func TestAnalysisLeaseOutlivesProcessingDeadline(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	rec := &recordingLocker{MemoryLocker: lease.NewMemoryLocker()}
	f.svc.locker = rec
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	if len(rec.ttls) != 1 || rec.ttls[0] <= f.svc.timeout {
		t.Fatalf("lease ttl must exceed timeout=%s got=%v", f.svc.timeout, rec.ttls)
	}
	if err := f.svc.ProcessAnalysis(ctx, jobID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}
	if len(rec.released) != 1 || rec.released[0] != rec.acquired[0] {
		t.Fatalf("release must use the acquired token: acquired=%v released=%v", rec.acquired, rec.released)
	}
}

// blockingLLM answers only when the request context ends
type blockingLLM struct{}

func (blockingLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestProcessAnalysisDeadlineCountsFromJobCreation(t *testing.T) {
	f := newAnalysisFixture("", false)
	f.svc.client = blockingLLM{}
	f.svc.timeout = time.Second
	ctx := context.Background()

	jobID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}
	// The job waited in the queue for most of its budget
	f.jobs.mu.Lock()
	f.jobs.jobs[jobID].CreatedAt = time.Now().Add(-900 * time.Millisecond)
	f.jobs.mu.Unlock()

	start := time.Now()
	err = f.svc.ProcessAnalysis(ctx, jobID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded got=%v", err)
	}
	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Fatalf("processing ran past the job deadline: %s", elapsed)
	}
	if got := f.contracts.get(f.contract.ID).Status; got != models.ContractNeedsAttention {
		t.Fatalf("status: want=needs_attention got=%s", got)
	}
}

func TestRecoverInterruptedJobs(t *testing.T) {
	f := newAnalysisFixture(structuredReply, false)
	ctx := context.Background()

	staleID, err := f.svc.StartAnalysis(ctx, f.contract.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis: %v", err)
	}

	text := "Second agreement."
	fresh := f.contracts.put(&models.Contract{
		UserID:        f.userID,
		Name:          "fresh.pdf",
		StoragePath:   "owner/2.pdf",
		MimeType:      PDFMimeType,
		Status:        models.ContractPending,
		ExtractedText: &text,
	})
	freshID, err := f.svc.StartAnalysis(ctx, fresh.ID, f.userID)
	if err != nil {
		t.Fatalf("StartAnalysis fresh: %v", err)
	}

	// Simulate a process that died mid-job long ago
	f.jobs.mu.Lock()
	f.jobs.jobs[staleID].Status = models.JobStatusRunning
	f.jobs.jobs[staleID].CreatedAt = time.Now().Add(-time.Hour)
	f.jobs.mu.Unlock()

	n, err := f.svc.RecoverInterrupted(ctx)
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if n != 1 {
		t.Fatalf("recovered: want=1 got=%d", n)
	}

	stale, _ := f.svc.GetJob(ctx, staleID, f.userID)
	if stale.Status != models.JobStatusFailed || stale.ErrorMessage == nil || *stale.ErrorMessage != interruptedMessage {
		t.Fatalf("stale job: %+v", stale)
	}
	if got := f.contracts.get(f.contract.ID).Status; got != models.ContractNeedsAttention {
		t.Fatalf("stale contract: want=needs_attention got=%s", got)
	}

	live, _ := f.svc.GetJob(ctx, freshID, f.userID)
	if live.Status != models.JobStatusPending {
		t.Fatalf("live job must be untouched: %+v", live)
	}
	if got := f.contracts.get(fresh.ID).Status; got != models.ContractAnalyzing {
		t.Fatalf("live contract: want=analyzing got=%s", got)
	}
}
