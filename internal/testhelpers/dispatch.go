package testhelpers

import (
	"context"
	"sync"
)

// Task is one unit of work a SynchronousDispatch queued for later draining.
type Task struct {
	Stage string
	ID    string
	Kind  TaskKind
}

// TaskKind distinguishes a resource-pipeline task from a search-pipeline
// task, since both flow through the same queue but are keyed against
// different stores by the worker loop.
type TaskKind int

const (
	ResourceTask TaskKind = iota
	SearchTask
)

// SynchronousDispatch is an in-memory ports.TaskDispatch that queues tasks
// instead of publishing them to Kafka, grounded on the teacher's channel-
// backed job queues (agentd's run queue). Drain runs a handler against
// every queued task, including any tasks the handler itself enqueues, so a
// single Drain call walks an entire pipeline to completion — the same
// "ventilate/drain" shape dispatch.Consumer uses against a real broker.
type SynchronousDispatch struct {
	mu    sync.Mutex
	tasks []Task
}

func NewSynchronousDispatch() *SynchronousDispatch {
	return &SynchronousDispatch{}
}

func (d *SynchronousDispatch) Enqueue(ctx context.Context, stage string, resourceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, Task{Stage: stage, ID: resourceID, Kind: ResourceTask})
	return nil
}

func (d *SynchronousDispatch) EnqueueSearchStage(ctx context.Context, stage string, searchID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, Task{Stage: stage, ID: searchID, Kind: SearchTask})
	return nil
}

// pop removes and returns the oldest queued task, preserving FIFO order.
func (d *SynchronousDispatch) pop() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return Task{}, false
	}
	t := d.tasks[0]
	d.tasks = d.tasks[1:]
	return t, true
}

// Drain repeatedly pops the oldest queued task and invokes handle until the
// queue empties or maxSteps is exhausted (a safety bound against a handler
// bug that re-enqueues forever). It returns the number of tasks processed.
func (d *SynchronousDispatch) Drain(handle func(Task) error, maxSteps int) (int, error) {
	processed := 0
	for i := 0; i < maxSteps; i++ {
		task, ok := d.pop()
		if !ok {
			return processed, nil
		}
		if err := handle(task); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// Len reports how many tasks are currently queued.
func (d *SynchronousDispatch) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
