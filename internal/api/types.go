package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Group is one processed submission group.
type Group struct {
	HeadRow     int      `json:"headRow"`
	RowID       string   `json:"rowId,omitempty"`
	RaceName    string   `json:"raceName,omitempty"`
	VariantRows []int    `json:"variantRows,omitempty"`
	Outcome     string   `json:"outcome"`
	ProductID   int64    `json:"productId,omitempty"`
	Link        string   `json:"link,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	// WarningCount is set for journaled groups, which keep only the count.
	WarningCount int    `json:"warningCount"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"durationMs,omitempty"`
}

// Pass describes a single pass.
type Pass struct {
	ID               string  `json:"id"`
	Trigger          string  `json:"trigger"`
	Result           string  `json:"result"`
	StartedAt        string  `json:"startedAt,omitempty"`
	FinishedAt       string  `json:"finishedAt,omitempty"`
	DurationMS       int64   `json:"durationMs"`
	RowsLoaded       int     `json:"rowsLoaded"`
	Published        int     `json:"published"`
	Degraded         int     `json:"degraded"`
	Failed           int     `json:"failed"`
	ValidationFailed int     `json:"validationFailed"`
	Terminators      []int   `json:"terminators,omitempty"`
	Error            string  `json:"error,omitempty"`
	Groups           []Group `json:"groups"`
}

// SchedulerStatus summarizes the pass timetable.
type SchedulerStatus struct {
	Running   bool   `json:"running"`
	Passing   string `json:"passing,omitempty"`
	NextRun   string `json:"nextRun,omitempty"`
	LastError string `json:"lastError,omitempty"`
	LastPass  *Pass  `json:"lastPass,omitempty"`
}

// DaemonStatus captures aggregated daemon runtime information.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	StartedAt    string          `json:"startedAt,omitempty"`
	LockFilePath string          `json:"lockFilePath"`
	JournalPath  string          `json:"journalPath,omitempty"`
	Scheduler    SchedulerStatus `json:"scheduler"`
}

// RunResponse acknowledges POST /api/run.
type RunResponse struct {
	Accepted bool   `json:"accepted"`
	Trigger  string `json:"trigger"`
	Message  string `json:"message"`
}

// HistoryResponse wraps GET /api/history.
type HistoryResponse struct {
	Passes []Pass `json:"passes"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
