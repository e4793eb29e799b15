// Package trace records scheduling decisions and task outcomes for offline
// policy analysis. It holds pure data types and has no dependency on sim/.
package trace

// CandidateScore is one node considered for a task, with its policy score.
type CandidateScore struct {
	NodeID string
	Score  float64
}

// AssignmentRecord captures one policy decision. ChosenNode is empty when the
// policy found no usable node.
type AssignmentRecord struct {
	TaskID      int
	ArrivalTime float64
	ChosenNode  string
	Reason      string
	Scores      map[string]float64 // higher is better; nil for score-free policies
	Candidates  []CandidateScore   // top-k by score, nil if k=0 or no scores
	Regret      float64            // best alternative score minus chosen score, >= 0
}

// CompletionRecord captures the terminal outcome of one task.
type CompletionRecord struct {
	TaskID     int
	NodeID     string
	Succeeded  bool
	StartTime  float64
	FinishTime float64
}
