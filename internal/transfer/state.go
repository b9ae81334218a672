package transfer

// State is the lifecycle state of a single stream.
type State uint8

const (
	StateNotStarted State = iota
	StateSizing
	StateAccumulating
	StateFlushing
	StateFinalizing
	StateTriggered
	StateSkippedEmpty
	StateFailed
)

var stateNames = [...]string{
	StateNotStarted:   "not_started",
	StateSizing:       "sizing",
	StateAccumulating: "accumulating",
	StateFlushing:     "flushing",
	StateFinalizing:   "finalizing",
	StateTriggered:    "triggered",
	StateSkippedEmpty: "skipped_empty",
	StateFailed:       "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateTriggered || s == StateSkippedEmpty || s == StateFailed
}

// Outcome is the result of the index creation trigger.
type Outcome uint8

const (
	// OutcomeSkipped means no index was created because nothing was transferred.
	OutcomeSkipped Outcome = iota
	// OutcomeBuilt means the index builder was invoked and succeeded.
	OutcomeBuilt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeBuilt:
		return "built"
	default:
		return "unknown"
	}
}
