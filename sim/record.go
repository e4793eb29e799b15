package sim

// Status is the outcome of one task.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Sentinel fills every timing and metric field of a task that never reached
// a node.
const Sentinel = -1.0

// ExecutionRecord is the single result of one task, created when its process
// terminates and never mutated afterwards.
//
// For a task that held a node, WaitingTime = StartTime - ArrivalTime and
// TurnaroundTime = FinishTime - ArrivalTime. The metric pointers are nil when
// compilation or estimation failed. For an unassigned task every timing field
// and every metric is Sentinel and Backend is empty.
type ExecutionRecord struct {
	TaskID         int      `json:"task_id"`
	Backend        string   `json:"backend"`
	Status         Status   `json:"status"`
	Message        string   `json:"message,omitempty"`
	ArrivalTime    float64  `json:"arrival_time"`
	StartTime      float64  `json:"start_time"`
	FinishTime     float64  `json:"finish_time"`
	WaitingTime    float64  `json:"waiting_time"`
	TurnaroundTime float64  `json:"turnaround_time"`
	Fidelity       *float64 `json:"fidelity"`
	ExecTimeEst    *float64 `json:"exec_time_est"`
	SwapCount      *int     `json:"swap_count"`
}

// Succeeded reports whether the task ran and produced metrics.
func (r ExecutionRecord) Succeeded() bool { return r.Status == StatusSuccess }

// Unassigned reports whether the task never reached a node.
func (r ExecutionRecord) Unassigned() bool {
	return r.Status == StatusFailed && r.Backend == "" && r.StartTime == Sentinel
}

func unassignedRecord(taskID int, message string) ExecutionRecord {
	swaps := int(Sentinel)
	return ExecutionRecord{
		TaskID:         taskID,
		Status:         StatusFailed,
		Message:        message,
		ArrivalTime:    Sentinel,
		StartTime:      Sentinel,
		FinishTime:     Sentinel,
		WaitingTime:    Sentinel,
		TurnaroundTime: Sentinel,
		Fidelity:       ptr(Sentinel),
		ExecTimeEst:    ptr(Sentinel),
		SwapCount:      &swaps,
	}
}

func ptr[T any](v T) *T { return &v }
