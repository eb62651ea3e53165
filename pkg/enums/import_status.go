package enums

// ImportStatus tracks a catalog import job.
type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusSucceeded ImportStatus = "succeeded"
	ImportStatusFailed    ImportStatus = "failed"
)

var validImportStatuses = []ImportStatus{
	ImportStatusPending,
	ImportStatusRunning,
	ImportStatusSucceeded,
	ImportStatusFailed,
}

// String implements fmt.Stringer.
func (s ImportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ImportStatus.
func (s ImportStatus) IsValid() bool {
	return member(s, validImportStatuses)
}

// IsFinal reports whether the job has finished one way or another.
func (s ImportStatus) IsFinal() bool {
	return s == ImportStatusSucceeded || s == ImportStatusFailed
}

// ImportSource records where the feed document came from.
type ImportSource string

const (
	ImportSourceUpload     ImportSource = "upload"
	ImportSourceConfigured ImportSource = "configured"
)

// IsValid reports whether the value is a known ImportSource.
func (s ImportSource) IsValid() bool {
	return s == ImportSourceUpload || s == ImportSourceConfigured
}
