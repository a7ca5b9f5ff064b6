package ingestion

// State is the lifecycle state of a Pipeline.
type State int32

const (
	// StateIdle means no run is active.
	StateIdle State = iota
	// StateScanning means the folder is being scanned.
	StateScanning
	// StateProcessing means files are being analysed.
	StateProcessing
	// StateCancelling means a cancel was requested and the current file is finishing.
	StateCancelling
	// StateExclusive means a maintenance task holds the pipeline.
	StateExclusive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	case StateCancelling:
		return "cancelling"
	case StateExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}
