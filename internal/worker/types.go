package worker

import (
	"time"

	"github.com/mrafferty/forkmap/pkg/task"
)

// Func is the user-supplied worker function. It is assumed pure and
// CPU-bound; its argument tuple is whatever the task source produced.
type Func func(args []any) (any, error)

// Msg is the single type carried on the shared input channel: one Task
// to execute. Shutdown is signaled out-of-band through Handle's private
// poison channel rather than through this channel, so Msg carries
// nothing but the task.
type Msg struct {
	Task task.Task
}

// Config bundles the per-worker settings the pool hands to every spawned
// worker.
type Config struct {
	Timeout time.Duration // 0 or negative means wait forever
}
