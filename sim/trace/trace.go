package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every assignment decision.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelFull adds per-task completion records.
	TraceLevelFull TraceLevel = "full"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelFull:      true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level           TraceLevel
	CounterfactualK int // number of ranked candidates kept per decision
}

// SimulationTrace collects records during one orchestrated run.
type SimulationTrace struct {
	Config      TraceConfig
	Assignments []AssignmentRecord
	Completions []CompletionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Assignments: make([]AssignmentRecord, 0),
		Completions: make([]CompletionRecord, 0),
	}
}

// RecordAssignment appends an assignment decision.
func (st *SimulationTrace) RecordAssignment(record AssignmentRecord) {
	st.Assignments = append(st.Assignments, record)
}

// RecordCompletion appends a completion record when the level is full.
func (st *SimulationTrace) RecordCompletion(record CompletionRecord) {
	if st.Config.Level != TraceLevelFull {
		return
	}
	st.Completions = append(st.Completions, record)
}
