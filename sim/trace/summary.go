package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int
	UnassignedCount    int
	MeanRegret         float64
	MaxRegret          float64
	UniqueTargets      int
	TargetDistribution map[string]int // node ID → tasks assigned
	FailedCount        int            // from completions; 0 below TraceLevelFull
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		TargetDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Assignments)
	if len(st.Assignments) > 0 {
		totalRegret := 0.0
		for _, a := range st.Assignments {
			if a.ChosenNode == "" {
				summary.UnassignedCount++
				continue
			}
			summary.TargetDistribution[a.ChosenNode]++
			totalRegret += a.Regret
			if a.Regret > summary.MaxRegret {
				summary.MaxRegret = a.Regret
			}
		}
		if assigned := len(st.Assignments) - summary.UnassignedCount; assigned > 0 {
			summary.MeanRegret = totalRegret / float64(assigned)
		}
	}
	summary.UniqueTargets = len(summary.TargetDistribution)

	for _, c := range st.Completions {
		if !c.Succeeded {
			summary.FailedCount++
		}
	}
	return summary
}
