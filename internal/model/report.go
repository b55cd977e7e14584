package model

// UnitStatus is the outcome of processing one batch unit.
type UnitStatus string

const (
	// StatusArchived means the unit was packed (and encrypted if requested)
	// and its artifact was uploaded.
	StatusArchived UnitStatus = "archived"
	// StatusArchivedNotUploaded means the artifact was produced but uploading
	// was disabled for the run; the artifact is preserved locally.
	StatusArchivedNotUploaded UnitStatus = "archived_not_uploaded"
	// StatusFailed means a pipeline stage failed; Stage and Err say which.
	StatusFailed UnitStatus = "failed"
)

// Pipeline stage names, used in results, metrics labels and log events.
const (
	StagePack    = "pack"
	StageEncrypt = "encrypt"
	StageUpload  = "upload"
	StageCleanup = "cleanup"
)

// UnitResult is the per-unit outcome reported by the archive pipeline.
// It exists only for aggregation within a run and is never persisted.
type UnitResult struct {
	Supplier SupplierKey
	Date     BatchDate
	Status   UnitStatus
	Stage    string // failing stage when Status is StatusFailed
	Err      string // underlying error text when Status is StatusFailed

	// CleanupErr records a failed source deletion after a confirmed upload.
	// The unit still counts as archived: the remote copy exists.
	CleanupErr string
}

// Failed reports whether the unit's pipeline failed.
func (r UnitResult) Failed() bool { return r.Status == StatusFailed }

// RunReport aggregates the outcome of one orchestrator run.
type RunReport struct {
	RunID string

	Range DateRange
	Mode  string

	Archived         int
	NotUploaded      int
	Failed           int
	UnknownSuppliers int
	MalformedNames   int

	Failures []UnitResult

	// WorkDir is the preserved working area holding artifacts when uploading
	// was disabled; empty when the working area was transient and removed.
	WorkDir string

	// BoundaryAdvanced is true when an automatic run persisted its cutoff.
	BoundaryAdvanced bool
	// BoundaryErr records a boundary write failure. The run itself completed;
	// the same range will be re-processed on the next automatic run.
	BoundaryErr string
}

// Record folds one unit result into the report's counters.
func (rep *RunReport) Record(res UnitResult) {
	switch res.Status {
	case StatusArchived:
		rep.Archived++
	case StatusArchivedNotUploaded:
		rep.NotUploaded++
	case StatusFailed:
		rep.Failed++
		rep.Failures = append(rep.Failures, res)
	}
}

// Clean reports whether every processed unit succeeded and, for automatic
// runs, the boundary write did too.
func (rep *RunReport) Clean() bool {
	return rep.Failed == 0 && rep.BoundaryErr == ""
}
