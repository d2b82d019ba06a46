package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
)

// WizardStep is a stage of the ingestion pipeline.
type WizardStep string

const (
	StepMode     WizardStep = "mode"
	StepUpload   WizardStep = "upload"
	StepNLInput  WizardStep = "nl_input"
	StepValidate WizardStep = "validate"
	StepAIEnrich WizardStep = "ai_enrich"
	StepNLEnrich WizardStep = "nl_enrich"
	StepIngest   WizardStep = "ingest"
)

var (
	// ErrInvalidTransition is returned when an operation is called outside
	// its step.
	ErrInvalidTransition = fmt.Errorf("operation not allowed in current step")
	// ErrBatchTooLarge is returned when a load exceeds the configured
	// maximum batch size.
	ErrBatchTooLarge = fmt.Errorf("batch exceeds maximum size")
)

// backSteps maps each step to the exactly-one step Back returns to. Ingest
// is absent: once reached, only a full Reset leaves it.
var backSteps = map[WizardStep]WizardStep{
	StepUpload:   StepMode,
	StepNLInput:  StepMode,
	StepValidate: StepUpload,
	StepAIEnrich: StepUpload,
	StepNLEnrich: StepNLInput,
}

// Wizard sequences the ingestion pipeline: mode selection, input load,
// validation or enrichment, review, and the final commit. The mode chosen at
// the start is fixed for the run; all run-scoped document state lives here
// and is dropped on Reset.
type Wizard struct {
	mu sync.Mutex

	step    WizardStep
	mode    domain.IngestMode
	indexID string
	// epoch increments whenever Back or Reset discards run state, so a
	// batch phase finishing late can tell its run was abandoned.
	epoch int

	records []domain.Record
	names   []string
	docs    []*domain.ProcessedDocument
	gate    *ReviewGate
	summary *domain.IngestionSummary

	maxBatch  int
	validator *schema.Validator
	enricher  *EnrichmentService
	sourced   *SourcedEnrichmentService
	fixer     *AutoFixService
	committer *CommitService
	logger    *logger.Logger
}

// WizardDeps bundles the pipeline components a wizard run drives.
type WizardDeps struct {
	Validator *schema.Validator
	Enricher  *EnrichmentService
	Sourced   *SourcedEnrichmentService
	Fixer     *AutoFixService
	Committer *CommitService
	MaxBatch  int
	Logger    *logger.Logger
}

// NewWizard creates a wizard at the mode-selection step.
func NewWizard(deps WizardDeps) *Wizard {
	maxBatch := deps.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 200
	}
	return &Wizard{
		step:      StepMode,
		maxBatch:  maxBatch,
		validator: deps.Validator,
		enricher:  deps.Enricher,
		sourced:   deps.Sourced,
		fixer:     deps.Fixer,
		committer: deps.Committer,
		logger:    deps.Logger,
	}
}

func (w *Wizard) log(ctx context.Context) *logger.Logger {
	return logger.FromContextOr(ctx, w.logger)
}

// Step returns the current step.
func (w *Wizard) Step() WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Mode returns the mode fixed at selection time.
func (w *Wizard) Mode() domain.IngestMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// SelectMode fixes the ingestion mode and destination index for the run and
// advances to the matching input step.
func (w *Wizard) SelectMode(mode domain.IngestMode, indexID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepMode {
		return fmt.Errorf("%w: mode already selected", ErrInvalidTransition)
	}

	switch mode {
	case domain.ModeStructured, domain.ModeAIEnriched:
		w.step = StepUpload
	case domain.ModeNaturalLanguage:
		w.step = StepNLInput
	default:
		return fmt.Errorf("unknown ingestion mode %q", mode)
	}

	w.mode = mode
	w.indexID = indexID
	return nil
}

// LoadRecords accepts the uploaded records for a structured or AI-enriched
// run and advances to the mode's processing step.
func (w *Wizard) LoadRecords(records []domain.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepUpload {
		return fmt.Errorf("%w: not at upload step", ErrInvalidTransition)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records to load")
	}
	if len(records) > w.maxBatch {
		return fmt.Errorf("%w: %d records, maximum %d", ErrBatchTooLarge, len(records), w.maxBatch)
	}

	w.records = records
	if w.mode == domain.ModeStructured {
		w.step = StepValidate
	} else {
		w.step = StepAIEnrich
	}
	return nil
}

// LoadNames accepts the typed product names for a natural-language run.
func (w *Wizard) LoadNames(names []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepNLInput {
		return fmt.Errorf("%w: not at input step", ErrInvalidTransition)
	}
	if len(names) == 0 {
		return fmt.Errorf("no product names to load")
	}
	if len(names) > w.maxBatch {
		return fmt.Errorf("%w: %d names, maximum %d", ErrBatchTooLarge, len(names), w.maxBatch)
	}

	w.names = names
	w.step = StepNLEnrich
	return nil
}

// Validate runs schema validation over the loaded records. Re-entrant within
// the validate step: each call replaces the document list wholesale.
func (w *Wizard) Validate(ctx context.Context) ([]*domain.ProcessedDocument, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepValidate {
		return nil, fmt.Errorf("%w: not at validate step", ErrInvalidTransition)
	}

	w.docs = w.validator.ValidateBatch(w.records, w.indexID)
	w.log(ctx).WithFields(logger.Fields{
		logger.FieldIndexID: w.indexID,
		logger.FieldCount:   len(w.docs),
	}).Info("Batch validated")
	return w.docs, nil
}

// AutoFix asks the fix client to correct every document with blocking
// errors, re-validates each corrected record, and splices the results back
// into the run's document list. Documents the fixer could not correct keep
// their previous data and findings.
func (w *Wizard) AutoFix(ctx context.Context, onProgress ProgressFunc) ([]*domain.ProcessedDocument, error) {
	w.mu.Lock()
	if w.step != StepValidate {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: not at validate step", ErrInvalidTransition)
	}
	docs := w.docs
	w.mu.Unlock()

	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing validated yet")
	}

	results := w.fixer.FixBatch(ctx, docs, onProgress)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range results {
		if r.Err != nil || r.Fixed == nil {
			continue
		}
		doc := w.docs[r.Index]
		doc.ProcessedData = r.Fixed
		doc.ValidationErrors = w.validator.Validate(r.Fixed, w.indexID)
		doc.HumanReviewRequired = doc.HasWarnings() && !doc.HasErrors()
		if doc.HasErrors() {
			doc.SearchableText = ""
		} else {
			doc.SearchableText = schema.SearchableText(r.Fixed)
		}
	}
	return w.docs, nil
}

// RunEnrichment drives the mode's enrichment batch and opens the review
// gate over its output.
func (w *Wizard) RunEnrichment(ctx context.Context, onProgress ProgressFunc) ([]*domain.EnrichedDocument, error) {
	w.mu.Lock()
	step := w.step
	records := w.records
	names := w.names
	epoch := w.epoch
	w.mu.Unlock()

	var enriched []*domain.EnrichedDocument
	switch step {
	case StepAIEnrich:
		enriched = w.enricher.EnrichBatch(ctx, records, onProgress)
	case StepNLEnrich:
		enriched = w.sourced.EnrichNames(ctx, names, onProgress)
	default:
		return nil, fmt.Errorf("%w: not at an enrichment step", ErrInvalidTransition)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	// The run may have been reset or stepped back while the batch was
	// in flight; its output must not resurrect discarded state.
	if w.epoch != epoch || w.step != step {
		return nil, fmt.Errorf("run state changed during enrichment, batch discarded")
	}
	w.gate = NewReviewGate(enriched, w.validator, w.indexID, w.logger)
	return enriched, nil
}

// Gate exposes the review gate opened by RunEnrichment.
func (w *Wizard) Gate() *ReviewGate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gate
}

// ContinueToIngest advances to the ingest step. Structured runs carry their
// ingestable validated documents forward directly; enrichment runs pass
// through the review gate, which requires at least one approval.
func (w *Wizard) ContinueToIngest(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepValidate:
		var ready []*domain.ProcessedDocument
		for _, doc := range w.docs {
			if doc.Ingestable() {
				ready = append(ready, doc)
			}
		}
		if len(ready) == 0 {
			return fmt.Errorf("no ingestable document: every record has blocking errors")
		}
		w.docs = ready
	case StepAIEnrich, StepNLEnrich:
		if w.gate == nil {
			return fmt.Errorf("enrichment has not run")
		}
		approved, err := w.gate.Continue(ctx)
		if err != nil {
			return err
		}
		w.docs = approved
	default:
		return fmt.Errorf("%w: cannot continue to ingest from %s", ErrInvalidTransition, w.step)
	}

	w.step = StepIngest
	return nil
}

// Ingest commits the run's documents and records the summary. Only reachable
// through ContinueToIngest; a second run requires a full Reset.
func (w *Wizard) Ingest(ctx context.Context, onProgress ProgressFunc) (*domain.IngestionSummary, error) {
	w.mu.Lock()
	if w.step != StepIngest {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: not at ingest step", ErrInvalidTransition)
	}
	if w.summary != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: run already ingested, reset to start over", ErrInvalidTransition)
	}
	docs := w.docs
	indexID := w.indexID
	w.mu.Unlock()

	summary := w.committer.IngestBatch(ctx, docs, indexID, onProgress)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.summary = summary
	return summary, nil
}

// Summary returns the ingestion outcome, nil until Ingest has run.
func (w *Wizard) Summary() *domain.IngestionSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

// Back returns exactly one step, discarding the state produced by the step
// being left. There is no back from ingest.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := backSteps[w.step]
	if !ok {
		return fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, w.step)
	}
	w.epoch++

	switch w.step {
	case StepUpload, StepNLInput:
		w.mode = ""
		w.indexID = ""
	case StepValidate, StepAIEnrich:
		w.records = nil
		w.docs = nil
		w.gate = nil
	case StepNLEnrich:
		w.names = nil
		w.gate = nil
	}

	w.step = prev
	return nil
}

// Reset drops all run-scoped state and returns to mode selection.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	w.step = StepMode
	w.mode = ""
	w.indexID = ""
	w.records = nil
	w.names = nil
	w.docs = nil
	w.gate = nil
	w.summary = nil
}
