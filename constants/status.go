package constants

// RunStatus is the canonical status for rows in import_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusSucceeded RunStatus = "SUCCEEDED" // committed
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure, nothing committed
)

// EntryStatus is the workflow status given to newly inserted cause-list entries.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusVerified EntryStatus = "VERIFIED"
)

// Provenance tags written to created_by / updated_by.
const (
	ProvenanceCauseListImport = "causelist-import"
	ProvenanceGazetteImport   = "gazette-import"
)
