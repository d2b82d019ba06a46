package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/input"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/repository"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/service"
)

// maxUploadBytes bounds the accepted upload payload size.
const maxUploadBytes = 10 << 20

// progressState reports where a running batch phase is.
type progressState struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Label string `json:"label"`
}

// studioRun holds the in-memory state of one wizard run. Runs never persist
// across process restarts; only the PipelineRun audit row does.
type studioRun struct {
	id     string
	wizard *service.Wizard
	record *domain.PipelineRun

	mu       sync.Mutex
	busy     bool
	progress progressState
	cancel   context.CancelFunc
}

func (r *studioRun) setProgress(index, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progressState{Index: index, Total: total, Label: label}
}

func (r *studioRun) tryStart(cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return false
	}
	r.busy = true
	r.cancel = cancel
	r.progress = progressState{}
	return true
}

func (r *studioRun) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	r.cancel = nil
}

func (r *studioRun) isBusy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// StudioHandler manages pipeline runs: creation, input load, stage
// execution, review decisions, and the final commit. Active runs live in a
// mutex-guarded map keyed by run ID.
type StudioHandler struct {
	registry  *schema.Registry
	validator *schema.Validator
	enricher  *service.EnrichmentService
	sourced   *service.SourcedEnrichmentService
	fixer     *service.AutoFixService
	committer *service.CommitService
	archive   *service.ArchiveService
	runRepo   *repository.RunRepository
	maxBatch  int
	logger    *logger.Logger

	mu   sync.RWMutex
	runs map[string]*studioRun
}

// StudioDeps bundles the dependencies of the studio handler.
type StudioDeps struct {
	Registry  *schema.Registry
	Validator *schema.Validator
	Enricher  *service.EnrichmentService
	Sourced   *service.SourcedEnrichmentService
	Fixer     *service.AutoFixService
	Committer *service.CommitService
	Archive   *service.ArchiveService
	RunRepo   *repository.RunRepository
	MaxBatch  int
	Logger    *logger.Logger
}

// NewStudioHandler creates a new studio handler.
// Parameters:
//   - deps: handler dependencies.
// Returns:
//   - *StudioHandler: initialized handler.
func NewStudioHandler(deps StudioDeps) *StudioHandler {
	return &StudioHandler{
		registry:  deps.Registry,
		validator: deps.Validator,
		enricher:  deps.Enricher,
		sourced:   deps.Sourced,
		fixer:     deps.Fixer,
		committer: deps.Committer,
		archive:   deps.Archive,
		runRepo:   deps.RunRepo,
		maxBatch:  deps.MaxBatch,
		runs:      make(map[string]*studioRun),
		logger:    deps.Logger,
	}
}

func (h *StudioHandler) getRun(c *gin.Context) (*studioRun, bool) {
	h.mu.RLock()
	run, ok := h.runs[c.Param("id")]
	h.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found: " + c.Param("id")})
		return nil, false
	}
	return run, true
}

// CreateRunRequest starts a pipeline run.
type CreateRunRequest struct {
	Mode    domain.IngestMode `json:"mode" binding:"required"`
	IndexID string            `json:"index_id" binding:"required"`
}

// CreateRun starts a new wizard run with a fixed mode and destination index.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) CreateRun(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.LoadCustom(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to load custom indexes: error=%v", err)
	}
	if _, ok := h.registry.Get(req.IndexID); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown index: " + req.IndexID})
		return
	}

	wizard := service.NewWizard(service.WizardDeps{
		Validator: h.validator,
		Enricher:  h.enricher,
		Sourced:   h.sourced,
		Fixer:     h.fixer,
		Committer: h.committer,
		MaxBatch:  h.maxBatch,
		Logger:    h.logger,
	})
	if err := wizard.SelectMode(req.Mode, req.IndexID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record := &domain.PipelineRun{
		ID:      uuid.New().String(),
		IndexID: req.IndexID,
		Mode:    req.Mode,
		Status:  domain.RunStatusPending,
	}
	if err := h.runRepo.Create(ctx, record); err != nil {
		logger.CtxError(ctx, "Failed to persist run record: error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	}

	run := &studioRun{id: record.ID, wizard: wizard, record: record}
	h.mu.Lock()
	h.runs[record.ID] = run
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Run created: run_id=%s, mode=%s, index_id=%s", record.ID, req.Mode, req.IndexID)
	c.JSON(http.StatusCreated, gin.H{
		"run_id": record.ID,
		"step":   wizard.Step(),
	})
}

// GetRun reports the run's current step and progress.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) GetRun(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	run.mu.Lock()
	busy := run.busy
	progress := run.progress
	run.mu.Unlock()

	resp := gin.H{
		"run_id":   run.id,
		"mode":     run.wizard.Mode(),
		"step":     run.wizard.Step(),
		"busy":     busy,
		"progress": progress,
	}
	if gate := run.wizard.Gate(); gate != nil {
		resp["review"] = gate.Counts()
	}
	if summary := run.wizard.Summary(); summary != nil {
		resp["summary"] = summary
	}
	c.JSON(http.StatusOK, resp)
}

// UploadBatch accepts the run's raw records, either as a multipart file
// (JSON or CSV) or as a raw JSON body.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) UploadBatch(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	var records []domain.Record
	if file, err := c.FormFile("file"); err == nil {
		reader, err := input.ForFilename(file.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
			return
		}
		defer src.Close()
		records, err = reader.ReadRecords(src, h.maxBatch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
		var err error
		records, err = (&input.JSONReader{}).ReadRecords(c.Request.Body, h.maxBatch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := run.wizard.LoadRecords(records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.archiveInput(ctx, run, func(archiveCtx context.Context) (string, error) {
		return h.archive.ArchiveRecords(archiveCtx, run.id, records)
	})

	c.JSON(http.StatusOK, gin.H{
		"run_id": run.id,
		"count":  len(records),
		"step":   run.wizard.Step(),
	})
}

// NamesRequest is the natural-language input payload.
type NamesRequest struct {
	Text string `json:"text" binding:"required"`
}

// LoadNames accepts the natural-language mode input, one product name per
// line.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) LoadNames(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	var req NamesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	names, err := input.ReadNames(strings.NewReader(req.Text), h.maxBatch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := run.wizard.LoadNames(names); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.archiveInput(ctx, run, func(archiveCtx context.Context) (string, error) {
		return h.archive.ArchiveNames(archiveCtx, run.id, names)
	})

	c.JSON(http.StatusOK, gin.H{
		"run_id": run.id,
		"count":  len(names),
		"step":   run.wizard.Step(),
	})
}

// archiveInput snapshots the raw input into object storage. Archival failure
// is logged, never fatal to the run.
func (h *StudioHandler) archiveInput(ctx context.Context, run *studioRun, put func(context.Context) (string, error)) {
	if !h.archive.Enabled() {
		return
	}

	key, err := put(ctx)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to archive run input: run_id=%s, error=%v", run.id, err)
		return
	}

	run.record.ArchiveKey = key
	if err := h.runRepo.Update(ctx, run.record); err != nil {
		logger.CtxWarn(ctx, "Failed to record archive key: run_id=%s, error=%v", run.id, err)
	}
}

// GetArchive returns the run's archived raw input. Without a query parameter
// it reports the object key and storage URL; with ?download=1 it streams the
// archived payload itself.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) GetArchive(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	if !h.archive.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "archival is not configured"})
		return
	}
	key := run.record.ArchiveKey
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no archived input"})
		return
	}

	if c.Query("download") != "" {
		data, err := h.archive.Fetch(ctx, key)
		if err != nil {
			logger.CtxWarn(ctx, "Failed to fetch archive: run_id=%s, error=%v", run.id, err)
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", data)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": run.id,
		"key":    key,
		"url":    h.archive.URL(key),
	})
}

// Validate runs schema validation over the uploaded batch.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Validate(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	docs, err := run.wizard.Validate(ctx)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    run.id,
		"documents": docs,
	})
}

// AutoFix runs the AI fix pass over documents with blocking errors and
// returns the re-validated document list. Synchronous but paced; large
// batches take proportional time.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) AutoFix(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if !run.tryStart(cancel) {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "a batch phase is already running"})
		return
	}
	defer run.finish()

	docs, err := run.wizard.AutoFix(runCtx, run.setProgress)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    run.id,
		"documents": docs,
	})
}

// Enrich starts the run's enrichment batch in the background. Progress and
// completion are observed through GetRun and the review endpoints.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Enrich(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	step := run.wizard.Step()
	if step != service.StepAIEnrich && step != service.StepNLEnrich {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not at an enrichment step"})
		return
	}

	// Background context: the batch outlives this request
	runCtx, cancel := context.WithCancel(context.Background())
	if !run.tryStart(cancel) {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "a batch phase is already running"})
		return
	}

	logger.CtxInfo(ctx, "Enrichment started: run_id=%s, mode=%s", run.id, run.wizard.Mode())

	go func() {
		defer run.finish()
		runCtx = logger.WithFields(runCtx, logger.Fields{
			logger.FieldRunID:     run.id,
			logger.FieldComponent: "studio",
		})
		if _, err := run.wizard.RunEnrichment(runCtx, run.setProgress); err != nil {
			logger.CtxError(runCtx, "Enrichment batch failed: run_id=%s, error=%v", run.id, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.id, "message": "enrichment started"})
}

// Cancel aborts the running batch phase after the current item completes.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Cancel(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	run.mu.Lock()
	cancel := run.cancel
	run.mu.Unlock()

	if cancel == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no batch phase is running"})
		return
	}
	cancel()
	c.JSON(http.StatusOK, gin.H{"run_id": run.id, "message": "cancellation requested"})
}

// Review lists the enriched documents awaiting decision.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Review(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	gate := run.wizard.Gate()
	if gate == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "enrichment has not run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    run.id,
		"counts":    gate.Counts(),
		"documents": gate.Documents(),
	})
}

// Approve approves one pending enriched document.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Approve(c *gin.Context) {
	h.decide(c, func(gate *service.ReviewGate, docID string) error {
		return gate.Approve(docID)
	})
}

// Reject rejects one pending enriched document.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Reject(c *gin.Context) {
	h.decide(c, func(gate *service.ReviewGate, docID string) error {
		return gate.Reject(docID)
	})
}

func (h *StudioHandler) decide(c *gin.Context, apply func(*service.ReviewGate, string) error) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	gate := run.wizard.Gate()
	if gate == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "enrichment has not run"})
		return
	}

	if err := apply(gate, c.Param("docId")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.id, "counts": gate.Counts()})
}

// ApproveAll approves every still-pending document.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) ApproveAll(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	gate := run.wizard.Gate()
	if gate == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "enrichment has not run"})
		return
	}

	approved := gate.ApproveAllPending()
	c.JSON(http.StatusOK, gin.H{
		"run_id":   run.id,
		"approved": approved,
		"counts":   gate.Counts(),
	})
}

// Continue advances the run to the ingest step.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Continue(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	if err := run.wizard.ContinueToIngest(ctx); err != nil {
		resp := gin.H{"error": err.Error()}
		if gate := run.wizard.Gate(); gate != nil {
			if held := gate.ValidationFailures(); len(held) > 0 {
				resp["held_back"] = held
			}
		}
		c.JSON(http.StatusConflict, resp)
		return
	}

	resp := gin.H{"run_id": run.id, "step": run.wizard.Step()}
	if gate := run.wizard.Gate(); gate != nil {
		if held := gate.ValidationFailures(); len(held) > 0 {
			resp["held_back"] = held
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Ingest starts the run's final commit in the background and updates the
// persisted audit record as it progresses.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	if run.wizard.Step() != service.StepIngest {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not at the ingest step"})
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if !run.tryStart(cancel) {
		cancel()
		c.JSON(http.StatusConflict, gin.H{"error": "a batch phase is already running"})
		return
	}

	if err := h.runRepo.MarkRunning(ctx, run.id); err != nil {
		logger.CtxWarn(ctx, "Failed to mark run running: run_id=%s, error=%v", run.id, err)
	}

	go func() {
		defer run.finish()
		runCtx = logger.WithFields(runCtx, logger.Fields{
			logger.FieldRunID:     run.id,
			logger.FieldComponent: "studio",
		})

		start := time.Now()
		summary, err := run.wizard.Ingest(runCtx, run.setProgress)
		if err != nil {
			logger.CtxError(runCtx, "Ingestion failed to start: run_id=%s, error=%v", run.id, err)
			_ = h.runRepo.MarkFinished(runCtx, run.id, domain.RunStatusFailed, 0, 0, err.Error())
			return
		}

		status := domain.RunStatusCompleted
		var errorLog string
		if summary.Phase == domain.IngestionError {
			status = domain.RunStatusFailed
			var lines []string
			for _, failure := range summary.Failures() {
				lines = append(lines, failure.ProductName+": "+failure.Error)
			}
			errorLog = strings.Join(lines, "\n")
		}
		if err := h.runRepo.MarkFinished(runCtx, run.id, status, summary.Succeeded, summary.Failed, errorLog); err != nil {
			logger.CtxWarn(runCtx, "Failed to finalize run record: run_id=%s, error=%v", run.id, err)
		}

		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldCount:      summary.Succeeded,
		}).Info(runCtx, "Ingestion finished: run_id=%s, total=%d, succeeded=%d, failed=%d",
			run.id, summary.Total, summary.Succeeded, summary.Failed)
	}()

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.id, "message": "ingestion started"})
}

// Back returns the run exactly one step.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Back(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	if run.isBusy() {
		c.JSON(http.StatusConflict, gin.H{"error": "a batch phase is running, cancel it first"})
		return
	}

	if err := run.wizard.Back(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.id, "step": run.wizard.Step()})
}

// Reset clears the run back to mode selection.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) Reset(c *gin.Context) {
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	if run.isBusy() {
		c.JSON(http.StatusConflict, gin.H{"error": "a batch phase is running, cancel it first"})
		return
	}

	run.wizard.Reset()
	c.JSON(http.StatusOK, gin.H{"run_id": run.id, "step": run.wizard.Step()})
}

// DeleteRun discards an in-memory run. The persisted audit record remains;
// with ?purge=1 the archived raw input is deleted as well.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) DeleteRun(c *gin.Context) {
	ctx := c.Request.Context()
	run, ok := h.getRun(c)
	if !ok {
		return
	}

	run.mu.Lock()
	if run.cancel != nil {
		run.cancel()
	}
	run.mu.Unlock()

	if c.Query("purge") != "" && run.record.ArchiveKey != "" {
		if err := h.archive.Remove(ctx, run.record.ArchiveKey); err != nil {
			logger.CtxWarn(ctx, "Failed to purge archive: run_id=%s, error=%v", run.id, err)
		} else {
			run.record.ArchiveKey = ""
			if err := h.runRepo.Update(ctx, run.record); err != nil {
				logger.CtxWarn(ctx, "Failed to clear archive key: run_id=%s, error=%v", run.id, err)
			}
		}
	}

	h.mu.Lock()
	delete(h.runs, run.id)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "run deleted"})
}

// ListRuns returns recent persisted run records for auditing.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *StudioHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	runs, err := h.runRepo.ListRecent(ctx, c.Query("index_id"), 50)
	if err != nil {
		logger.CtxError(ctx, "Failed to list runs: error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
