// Package models defines the domain models for incremental stage execution.
package models

// RunInfoStatus is the outcome of comparing a runnable against its stored run record.
type RunInfoStatus string

const (
	RunInfoStatusNoDependencyManagement RunInfoStatus = "no_dependency_management" // Runnable opted out, always runs
	RunInfoStatusForcedRun              RunInfoStatus = "forced_run"               // Executor was asked to run unconditionally
	RunInfoStatusNoInfo                 RunInfoStatus = "no_info"                  // No usable record
	RunInfoStatusConfigChanged          RunInfoStatus = "config_changed"
	RunInfoStatusFileNotFound           RunInfoStatus = "file_not_found"
	RunInfoStatusFileChanged            RunInfoStatus = "file_changed"        // A recorded output changed
	RunInfoStatusInputFilesChanged      RunInfoStatus = "input_files_changed" // Input set or input content changed
	RunInfoStatusNothingToCheck         RunInfoStatus = "nothing_to_check"
	RunInfoStatusMatch                  RunInfoStatus = "match"
)

// ShouldRun reports whether a runnable with this status has to be executed.
func (s RunInfoStatus) ShouldRun() bool {
	return s != RunInfoStatusMatch && s != RunInfoStatusNothingToCheck
}

func (s RunInfoStatus) String() string {
	return string(s)
}

// RunRecord is the persisted snapshot of a runnable's last successful run.
type RunRecord struct {
	Inputs  map[string]PathFingerprint `json:"inputs"`
	Outputs map[string]PathFingerprint `json:"outputs"`
	Config  any                        `json:"config,omitempty"`
}

// NewRunRecord returns an empty record with initialized maps.
func NewRunRecord() *RunRecord {
	return &RunRecord{
		Inputs:  make(map[string]PathFingerprint),
		Outputs: make(map[string]PathFingerprint),
	}
}

// PathFingerprint is a lightweight change-detection signature for a filesystem path.
//
// Regular files carry size, modification time and a content digest. Directories
// carry existence only: content changes inside a directory are not tracked.
type PathFingerprint struct {
	Exists  bool   `json:"exists"`
	IsDir   bool   `json:"is_dir,omitempty"`
	Size    int64  `json:"size,omitempty"`
	ModTime int64  `json:"mod_time,omitempty"` // Unix nanoseconds
	Digest  string `json:"digest,omitempty"`
}

// Equal reports whether two fingerprints describe the same path state.
func (f PathFingerprint) Equal(other PathFingerprint) bool {
	return f == other
}
