package controller

// State is a conversation controller state.
type State int

const (
	AwaitingDecision State = iota
	ToolsPending
	Synthesizing
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingDecision:
		return "AWAITING_DECISION"
	case ToolsPending:
		return "TOOLS_PENDING"
	case Synthesizing:
		return "SYNTHESIZING"
	case Done:
		return "DONE"
	}
	return "UNKNOWN"
}

// Format selects the shape of the final model output.
type Format int

const (
	// FormatEnvelope yields a structured reply envelope.
	FormatEnvelope Format = iota
	// FormatLegacy yields prose followed by a {"protocols": [...]} block.
	FormatLegacy
)
