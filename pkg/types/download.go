// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DownloadStatus is the outcome of a single reference download.
type DownloadStatus string

const (
	StatusSuccess DownloadStatus = "success"
	StatusSkipped DownloadStatus = "skipped"
	StatusFailed  DownloadStatus = "failed"
)

// FileEntry is one file in a download manifest.
type FileEntry struct {
	// Name is the file name relative to the reference directory.
	Name string `json:"name" yaml:"name"`

	// Size is the number of bytes written.
	Size int64 `json:"size" yaml:"size"`

	// SHA256 is the hex content hash computed while streaming.
	SHA256 string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// StrategyAttempt records one strategy tried for a reference.
type StrategyAttempt struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Tries    int    `json:"tries" yaml:"tries"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DownloadResult is the per-reference outcome returned by the dispatcher.
type DownloadResult struct {
	Reference DatasetReference `json:"reference" yaml:"reference"`
	Status    DownloadStatus   `json:"status" yaml:"status"`

	// Error holds the last failure message when Status is failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Files     []FileEntry `json:"files,omitempty" yaml:"files,omitempty"`
	TotalSize int64       `json:"total_size" yaml:"total_size"`

	// Path is the directory the files were written to.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Strategy names the strategy that succeeded.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`

	// Attempts lists every strategy tried, in order.
	Attempts []StrategyAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the reference was downloaded in this run.
func (r DownloadResult) Succeeded() bool { return r.Status == StatusSuccess }

// BatchResult aggregates the outcome of a batch of references. Details is
// in input order.
type BatchResult struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Success    int              `json:"success" yaml:"success"`
	Failed     int              `json:"failed" yaml:"failed"`
	Skipped    int              `json:"skipped" yaml:"skipped"`
	Total      int              `json:"total" yaml:"total"`
	Details    []DownloadResult `json:"details" yaml:"details"`
}

// HasFailures reports whether any reference failed.
func (b BatchResult) HasFailures() bool {
	return b.Failed > 0
}

// TotalSize sums the bytes written by successful downloads.
func (b BatchResult) TotalSize() int64 {
	var n int64
	for _, d := range b.Details {
		n += d.TotalSize
	}
	return n
}

// Tally recomputes the counters from Details.
func (b *BatchResult) Tally() {
	b.Success, b.Failed, b.Skipped = 0, 0, 0
	for _, d := range b.Details {
		switch d.Status {
		case StatusSuccess:
			b.Success++
		case StatusSkipped:
			b.Skipped++
		default:
			b.Failed++
		}
	}
	b.Total = len(b.Details)
}

// HistoryStatus is the persisted status of a download attempt.
type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistoryFailed  HistoryStatus = "failed"
)

// HistoryRecord is one entry in the durable download history.
type HistoryRecord struct {
	Key        string        `json:"key" yaml:"key"`
	Status     HistoryStatus `json:"status" yaml:"status"`
	Timestamp  time.Time     `json:"timestamp" yaml:"timestamp"`
	Path       string        `json:"path" yaml:"path"`
	Files      []FileEntry   `json:"files" yaml:"files"`
	TotalSize  int64         `json:"total_size" yaml:"total_size"`
	Strategy   string        `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Name       string        `json:"name" yaml:"name"`
	Repository RepositoryTag `json:"repository" yaml:"repository"`
	URL        string        `json:"url,omitempty" yaml:"url,omitempty"`
	DOI        string        `json:"doi,omitempty" yaml:"doi,omitempty"`

	// SourceTitle and SourceURL identify the paper the dataset came from.
	SourceTitle string `json:"source_title,omitempty" yaml:"source_title,omitempty"`
	SourceURL   string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}
