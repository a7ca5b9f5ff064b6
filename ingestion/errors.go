package ingestion

import "errors"

var (
	// ErrRecordingRepositoryRequired is returned when a recording repository is not provided.
	ErrRecordingRepositoryRequired = errors.New("recording repository required")

	// ErrRegistryRequired is returned when a processed-file registry is not provided.
	ErrRegistryRequired = errors.New("processed file registry required")

	// ErrScannerRequired is returned when a folder scanner is not provided.
	ErrScannerRequired = errors.New("folder scanner required")

	// ErrAnalyserRequired is returned when a speaker analyser is not provided.
	ErrAnalyserRequired = errors.New("speaker analyser required")

	// ErrAlreadyAnalysing is returned when a run is triggered while another is active.
	ErrAlreadyAnalysing = errors.New("analysis already in progress")

	// ErrAnalyserPanic marks a file whose analysis panicked. The file is
	// recorded as failed and the run continues.
	ErrAnalyserPanic = errors.New("analyser panicked")

	// ErrPersistence wraps storage failures that abort a run.
	ErrPersistence = errors.New("persistence failure")

	// ErrPipelineReleased is returned when a run is triggered after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)
