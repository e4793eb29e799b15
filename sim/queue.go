// Implements the WaitQueue, which holds processes waiting for a node.

package sim

import (
	"fmt"
	"strings"
)

// WaitQueue is a FIFO of processes that requested a busy node. Order is the
// order of request issuance. Priority is never consulted.
type WaitQueue struct {
	queue []*process
}

// Enqueue adds a process to the back of the wait queue.
func (wq *WaitQueue) Enqueue(p *process) {
	wq.queue = append(wq.queue, p)
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, p := range wq.queue {
		sb.WriteString(fmt.Sprint(p.task.ID))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of waiting processes.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Dequeue removes and returns the front process, or nil if empty.
func (wq *WaitQueue) Dequeue() *process {
	if len(wq.queue) == 0 {
		return nil
	}
	p := wq.queue[0]
	wq.queue[0] = nil
	wq.queue = wq.queue[1:]
	return p
}
