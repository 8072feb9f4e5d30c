package transfer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pansave/internal"
	"pansave/utils"
)

// Orchestrator pulls pending links from the store and drives each one
// through its platform adapter, recording every transition before acting
// on it so an interrupted run never loses an outcome it already reached.
type Orchestrator struct {
	store    internal.LinkStore
	registry *Registry
	pacer    internal.Pacer
	parser   *utils.ShareURLParser

	destDirID     string
	auditDir      string
	showProgress  bool
	statsInterval time.Duration

	processed atomic.Int64
}

// OrchestratorOptions tunes a transfer run
type OrchestratorOptions struct {
	DestDirID     string
	AuditDir      string
	ShowProgress  bool
	StatsInterval time.Duration
}

// NewOrchestrator creates an orchestrator over the given store, adapter
// registry and pacing policy
func NewOrchestrator(store internal.LinkStore, registry *Registry, pacer internal.Pacer, opts OrchestratorOptions) *Orchestrator {
	if opts.DestDirID == "" {
		opts.DestDirID = "0"
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = 30 * time.Second
	}
	return &Orchestrator{
		store:         store,
		registry:      registry,
		pacer:         pacer,
		parser:        utils.NewShareURLParser(),
		destDirID:     opts.DestDirID,
		auditDir:      opts.AuditDir,
		showProgress:  opts.ShowProgress,
		statsInterval: opts.StatsInterval,
	}
}

// Run processes up to limit pending links, optionally restricted to one
// platform. It returns a tally of every item it touched; the error is
// non-nil only when the run aborted on a store failure or cancellation.
func (o *Orchestrator) Run(ctx context.Context, limit int, platform internal.Platform) (*internal.TransferTally, error) {
	runID := uuid.NewString()
	start := time.Now()
	o.processed.Store(0)

	tally := &internal.TransferTally{RunID: runID}

	records, err := o.store.PullPending(limit, platform)
	if err != nil {
		return tally, err
	}
	tally.Total = len(records)

	if len(records) == 0 {
		internal.LogInfo("No pending links to transfer")
		return tally, nil
	}
	internal.LogInfo("Run %s: transferring %d pending link(s)", runID, len(records))

	var audit *AuditLog
	if o.auditDir != "" {
		audit, err = OpenAuditLog(o.auditDir, runID)
		if err != nil {
			internal.LogWarn("Audit log unavailable, continuing without it: %v", err)
			audit = nil
		} else {
			defer audit.Close()
		}
	}

	progress := NewBatchProgress(len(records), !o.showProgress)
	defer progress.Finish()

	statsDone := make(chan struct{})
	go o.reportStats(statsDone, len(records))
	defer close(statsDone)

	var runErr error

loop:
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		adapter, registered := o.registry.Lookup(record.Platform)
		if !registered {
			// No adapter: the item is skipped and stays pending for a
			// future run with broader platform support
			tally.Skipped++
			o.recordOutcome(audit, runID, &record, "skipped", fmt.Sprintf("no adapter for platform %s", record.Platform))
			progress.Increment()
			o.processed.Add(1)
			continue
		}

		if err := o.store.SetStatus(record.ID, internal.StatusProcessing); err != nil {
			runErr = err
			break
		}

		transferErr := o.transferOne(ctx, adapter, &record)
		if transferErr != nil {
			tally.Failed++
			internal.LogWarn("Transfer failed for %s: %v", record.URL, transferErr)
			if err := o.store.SetStatus(record.ID, internal.StatusFailed); err != nil {
				runErr = err
				break
			}
			o.recordOutcome(audit, runID, &record, "failed", transferErr.Error())
			if internal.IsPersistenceError(transferErr) {
				runErr = transferErr
				break
			}
		} else {
			tally.Succeeded++
			if err := o.store.SetStatus(record.ID, internal.StatusCompleted); err != nil {
				runErr = err
				break
			}
			o.recordOutcome(audit, runID, &record, "completed", "")
		}

		progress.Increment()
		o.processed.Add(1)

		// Pacing applies after every transferred item, the last included,
		// so back-to-back batches keep their distance too
		if err := o.pacer.AfterItem(ctx, i); err != nil {
			runErr = err
			break loop
		}
	}

	tally.Elapsed = time.Since(start)
	o.logSummary(tally, audit)
	return tally, runErr
}

// transferOne runs the three-step adapter protocol for a single record.
// A panic inside an adapter is contained here so one misbehaving item
// cannot take down the batch.
func (o *Orchestrator) transferOne(ctx context.Context, adapter internal.ProviderAdapter, record *internal.LinkRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic while processing %s: %v", record.URL, r)
		}
	}()

	info, err := o.parser.Parse(record.URL)
	if err != nil {
		return err
	}

	session, err := adapter.ResolveShare(ctx, info.PwdID, record.Password)
	if err != nil {
		return err
	}

	listing, err := adapter.ListContents(ctx, session)
	if err != nil {
		return err
	}

	if err := adapter.CopyToAccount(ctx, session, listing.Files, o.destDirID); err != nil {
		return err
	}

	title := listing.Title
	if title == "" {
		title = record.Title
	}
	internal.LogInfo("Transferred %q (%d entries)", title, len(listing.Files))
	return nil
}

// recordOutcome appends an audit entry; audit failures are logged, never
// propagated
func (o *Orchestrator) recordOutcome(audit *AuditLog, runID string, record *internal.LinkRecord, outcome, errMsg string) {
	if audit == nil {
		return
	}
	entry := internal.AuditEntry{
		RunID:     runID,
		LinkID:    record.ID,
		Platform:  record.Platform,
		URL:       record.URL,
		Title:     record.Title,
		Outcome:   outcome,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
	if err := audit.Record(entry); err != nil {
		internal.LogWarn("Failed to write audit entry for link %d: %v", record.ID, err)
	}
}

// reportStats periodically logs batch progress until the run finishes
func (o *Orchestrator) reportStats(done <-chan struct{}, total int) {
	ticker := time.NewTicker(o.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			internal.LogInfo("Progress: %d/%d items processed", o.processed.Load(), total)
		}
	}
}

func (o *Orchestrator) logSummary(tally *internal.TransferTally, audit *AuditLog) {
	internal.LogInfo("Run %s finished in %s: %d succeeded, %d failed, %d skipped (of %d)",
		tally.RunID, tally.Elapsed.Round(time.Second), tally.Succeeded, tally.Failed, tally.Skipped, tally.Total)
	if audit != nil {
		internal.LogInfo("Audit log: %s", audit.Path())
	}
}
