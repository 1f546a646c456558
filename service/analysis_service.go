package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"compliancedesk-backend/analysis"
	"compliancedesk-backend/extract"
	"compliancedesk-backend/lease"
	"compliancedesk-backend/llm"
	"compliancedesk-backend/logger"
	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"
	"compliancedesk-backend/storage"

	"github.com/google/uuid"
)

const (
	// SourceOffline marks jobs analysed by the canned offline client
	SourceOffline = "offline"

	defaultPollInterval = 3 * time.Second
	defaultTimeout      = 2 * time.Minute
	analysisTemperature = 0.2

	// leaseGrace is how long the lease outlives the processing deadline
	leaseGrace = 30 * time.Second

	interruptedMessage = "analysis interrupted before completion"
)

// AnalysisService runs compliance analysis for contracts as background jobs
type AnalysisService struct {
	contracts    ContractStore
	findings     FindingStore
	jobs         AnalysisJobStore
	blobs        storage.Storage
	client       llm.Client
	locker       lease.Locker
	log          *logger.Logger
	offline      bool
	pollInterval time.Duration
	timeout      time.Duration

	mu     sync.Mutex
	tokens map[uuid.UUID]string // job ID -> lease token
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithContractStore sets the contract store
func AnalysisWithContractStore(store ContractStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.contracts = store
	}
}

// AnalysisWithFindingStore sets the finding store
func AnalysisWithFindingStore(store FindingStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.findings = store
	}
}

// AnalysisWithJobStore sets the analysis job store
func AnalysisWithJobStore(store AnalysisJobStore) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.jobs = store
	}
}

// AnalysisWithStorage sets the blob storage used when no extracted text is stored
func AnalysisWithStorage(blobs storage.Storage) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.blobs = blobs
	}
}

// AnalysisWithClient sets the model client. offline marks canned output.
func AnalysisWithClient(client llm.Client, offline bool) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.client = client
		s.offline = offline
	}
}

// AnalysisWithLocker sets the per-contract lease
func AnalysisWithLocker(locker lease.Locker) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.locker = locker
	}
}

// AnalysisWithLogger sets the logger
func AnalysisWithLogger(log *logger.Logger) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.log = log
	}
}

// AnalysisWithTiming sets the job poll interval and overall timeout
func AnalysisWithTiming(pollInterval, timeout time.Duration) AnalysisServiceOption {
	return func(s *AnalysisService) {
		if pollInterval > 0 {
			s.pollInterval = pollInterval
		}
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	s := &AnalysisService{
		log:          logger.Nop(),
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
		tokens:       make(map[uuid.UUID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lease.NewMemoryLocker()
	}
	return s
}

// StartAnalysis takes the contract lease, moves the contract from pending to analyzing
// and creates a pending job. The caller runs ProcessAnalysis for the returned job.
func (s *AnalysisService) StartAnalysis(ctx context.Context, contractID, userID uuid.UUID) (uuid.UUID, error) {
	if s.contracts == nil || s.jobs == nil {
		return uuid.Nil, errors.New("analysis stores not set")
	}

	contract, err := ownedContract(ctx, s.contracts, contractID, userID)
	if err != nil {
		return uuid.Nil, err
	}

	key := lease.ContractKey(contractID.String())
	token, ok, err := s.locker.Acquire(ctx, key, s.timeout+leaseGrace)
	if err != nil {
		return uuid.Nil, fmt.Errorf("acquire analysis lease: %w", err)
	}
	if !ok {
		return uuid.Nil, ErrAnalysisInProgress
	}

	if err := s.contracts.UpdateStatus(ctx, contractID, models.ContractPending, models.ContractAnalyzing); err != nil {
		s.releaseLease(contractID, token)
		if errors.Is(err, repository.ErrStatusConflict) {
			if current, getErr := s.contracts.GetByID(ctx, contractID); getErr == nil && current.Status == models.ContractAnalyzing {
				return uuid.Nil, ErrAnalysisInProgress
			}
			return uuid.Nil, ErrInvalidTransition
		}
		return uuid.Nil, err
	}

	job := &models.AnalysisJob{
		ContractID: contractID,
		UserID:     contract.UserID,
		Status:     models.JobStatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.markContractFailed(contractID)
		s.releaseLease(contractID, token)
		return uuid.Nil, fmt.Errorf("create analysis job: %w", err)
	}

	s.mu.Lock()
	s.tokens[job.ID] = token
	s.mu.Unlock()

	s.log.Info("analysis.started", "contract_id", contractID, "job_id", job.ID)
	return job.ID, nil
}

// ProcessAnalysis performs the analysis for one job. It is meant to run in its own goroutine
// with a background context. Any failure marks the job failed and the contract needs_attention.
// The job must finish within the analysis timeout counted from its creation.
func (s *AnalysisService) ProcessAnalysis(ctx context.Context, jobID uuid.UUID) error {
	defer s.releaseJobLease(jobID)

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load analysis job: %w", err)
	}

	ctx, cancel := s.jobContext(ctx, job)
	defer cancel()

	if err := s.jobs.MarkRunning(ctx, jobID); err != nil {
		return s.fail(job, fmt.Errorf("mark job running: %w", err))
	}

	contract, err := s.contracts.GetByID(ctx, job.ContractID)
	if err != nil {
		return s.fail(job, fmt.Errorf("load contract: %w", err))
	}

	text, err := s.contractText(ctx, contract)
	if err != nil {
		return s.fail(job, err)
	}

	if s.client == nil {
		return s.fail(job, errors.New("analysis client not set"))
	}

	category := ""
	if contract.Category != nil {
		category = *contract.Category
	}
	raw, err := s.client.Generate(ctx, llm.Request{
		System:      analysis.SystemPrompt,
		Prompt:      analysis.BuildPrompt(contract.Name, category, text),
		JSON:        true,
		Temperature: analysisTemperature,
	})
	if err != nil {
		return s.fail(job, fmt.Errorf("analysis request: %w", err))
	}

	report := analysis.ParseReport(raw)
	findings := make([]*models.Finding, 0, len(report.Items))
	for _, item := range report.Items {
		findings = append(findings, &models.Finding{
			ContractID:         contract.ID,
			JobID:              job.ID,
			AnalysisType:       item.AnalysisType,
			IssueDescription:   item.Description,
			SectionReference:   optional(item.SectionReference),
			Severity:           item.Severity,
			RegulationCitation: optional(item.Citation),
			Recommendation:     optional(item.Recommendation),
			SuggestedText:      optional(item.SuggestedText),
		})
	}

	if err := s.contracts.CompleteAnalysis(ctx, contract.ID, findings, report.RiskScore, report.ComplianceScore); err != nil {
		return s.fail(job, fmt.Errorf("store analysis results: %w", err))
	}

	source := report.Source
	if s.offline {
		source = SourceOffline
	}
	if err := s.jobs.Complete(ctx, jobID, source); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	s.log.Info("analysis.succeeded",
		"contract_id", contract.ID,
		"job_id", jobID,
		"findings", len(findings),
		"risk_score", report.RiskScore,
		"compliance_score", report.ComplianceScore,
		"source", source,
	)
	return nil
}

// contractText prefers the text stored at upload and falls back to re-extracting the blob
func (s *AnalysisService) contractText(ctx context.Context, contract *models.Contract) (string, error) {
	if contract.ExtractedText != nil && *contract.ExtractedText != "" {
		return *contract.ExtractedText, nil
	}
	if s.blobs == nil {
		return "", nil
	}
	rc, err := s.blobs.Download(ctx, contract.StoragePath)
	if err != nil {
		return "", fmt.Errorf("download contract: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read contract: %w", err)
	}
	return extract.Text(data), nil
}

// fail records the failure on the job and moves the contract to needs_attention
func (s *AnalysisService) fail(job *models.AnalysisJob, cause error) error {
	ctx := context.Background()
	if err := s.jobs.Fail(ctx, job.ID, cause.Error()); err != nil {
		s.log.Error("analysis.job.fail_update_failed", "job_id", job.ID, "error", err)
	}
	s.markContractFailed(job.ContractID)
	s.log.Error("analysis.failed", "contract_id", job.ContractID, "job_id", job.ID, "error", cause)
	return cause
}

func (s *AnalysisService) markContractFailed(contractID uuid.UUID) {
	err := s.contracts.UpdateStatus(context.Background(), contractID, models.ContractAnalyzing, models.ContractNeedsAttention)
	if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
		s.log.Error("analysis.contract.flag_failed", "contract_id", contractID, "error", err)
	}
}

// jobContext bounds processing by the job's own deadline, which always falls inside the lease
func (s *AnalysisService) jobContext(ctx context.Context, job *models.AnalysisJob) (context.Context, context.CancelFunc) {
	if job.CreatedAt.IsZero() {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithDeadline(ctx, job.CreatedAt.Add(s.timeout))
}

func (s *AnalysisService) releaseJobLease(jobID uuid.UUID) {
	s.mu.Lock()
	token, ok := s.tokens[jobID]
	delete(s.tokens, jobID)
	s.mu.Unlock()
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(context.Background(), jobID)
	if err != nil {
		s.log.Warn("analysis.lease.release_failed", "job_id", jobID, "error", err)
		return
	}
	s.releaseLease(job.ContractID, token)
}

func (s *AnalysisService) releaseLease(contractID uuid.UUID, token string) {
	if err := s.locker.Release(context.Background(), lease.ContractKey(contractID.String()), token); err != nil {
		s.log.Warn("analysis.lease.release_failed", "contract_id", contractID, "error", err)
	}
}

// RecoverInterrupted fails jobs left pending or running by a previous process and flags
// their contracts needs_attention. Only jobs whose processing deadline and lease have
// both expired are touched.
func (s *AnalysisService) RecoverInterrupted(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-(s.timeout + leaseGrace))
	stale, err := s.jobs.ListUnfinished(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list unfinished jobs: %w", err)
	}

	recovered := 0
	for _, job := range stale {
		if err := s.jobs.Fail(ctx, job.ID, interruptedMessage); err != nil {
			s.log.Error("analysis.recover.fail_update_failed", "job_id", job.ID, "error", err)
			continue
		}
		s.markContractFailed(job.ContractID)
		s.log.Warn("analysis.recovered", "contract_id", job.ContractID, "job_id", job.ID, "status", job.Status)
		recovered++
	}
	return recovered, nil
}

// GetJob returns a job of the user
func (s *AnalysisService) GetJob(ctx context.Context, jobID, userID uuid.UUID) (*models.AnalysisJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// AwaitJob polls the job until it reaches a terminal status or the analysis timeout elapses
func (s *AnalysisService) AwaitJob(ctx context.Context, jobID, userID uuid.UUID) (*models.AnalysisJob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		job, err := s.GetJob(ctx, jobID, userID)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return job, ErrJobTimeout
			}
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListFindings returns the stored findings of a contract of the user
func (s *AnalysisService) ListFindings(ctx context.Context, contractID, userID uuid.UUID) ([]*models.Finding, error) {
	if _, err := ownedContract(ctx, s.contracts, contractID, userID); err != nil {
		return nil, err
	}
	return s.findings.ListByContractID(ctx, contractID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
