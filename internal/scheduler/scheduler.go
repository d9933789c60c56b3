// Package scheduler runs the periodic jobs — feed polls, resample runs,
// alert sweeps — that cron drove in earlier versions of this pipeline.
package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Job is a unit of work scheduled for future execution
type Job struct {
	ID       string
	RunAt    time.Time
	Callback func()
	index    int // index in the heap (for heap.Interface)
}

// jobHeap is a min-heap of Jobs ordered by RunAt
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	return h[i].RunAt.Before(h[j].RunAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	n := len(*h)
	job := x.(*Job)
	job.index = n
	*h = append(*h, job)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil  // avoid memory leak
	job.index = -1 // for safety
	*h = old[0 : n-1]
	return job
}

// Scheduler manages scheduled jobs using a min-heap
type Scheduler struct {
	heap     jobHeap
	mu       sync.Mutex
	wakeup   chan struct{}
	jobs     map[string]*Job // for O(1) lookup by ID
	workers  int
	workerWg sync.WaitGroup
	stopped  bool
	stopCh   chan struct{}
}

// New creates a new scheduler with a worker pool
func New(workers int) *Scheduler {
	s := &Scheduler{
		heap:    make(jobHeap, 0),
		wakeup:  make(chan struct{}, 1),
		jobs:    make(map[string]*Job),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start starts the scheduler and its worker pool
func (s *Scheduler) Start() {
	for i := 0; i < s.workers; i++ {
		s.workerWg.Add(1)
		go s.worker()
	}

	go s.run()
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.workerWg.Wait()
}

// Schedule adds a new job to be executed at the specified time. Scheduling
// an ID that already exists replaces the pending job.
func (s *Scheduler) Schedule(id string, runAt time.Time, callback func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.jobs[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.jobs, id)
	}

	job := &Job{
		ID:       id,
		RunAt:    runAt,
		Callback: callback,
	}

	heap.Push(&s.heap, job)
	s.jobs[id] = job

	// Wake up the run loop if this is now the earliest job
	if s.heap[0] == job {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a scheduled job
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, job.index)
	delete(s.jobs, id)
	return true
}

// run is the main scheduling loop
func (s *Scheduler) run() {
	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		var waitDuration time.Duration
		if s.heap.Len() == 0 {
			// No jobs, wait indefinitely
			waitDuration = 24 * time.Hour
		} else {
			nextJob := s.heap[0]
			waitDuration = time.Until(nextJob.RunAt)

			if waitDuration <= 0 {
				job := heap.Pop(&s.heap).(*Job)
				delete(s.jobs, job.ID)

				go job.Callback()

				s.mu.Unlock()
				continue
			}
		}

		s.mu.Unlock()

		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			// Time to check for due jobs
		case <-s.wakeup:
			// New job added or existing job updated
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// worker blocks until shutdown; job callbacks run in their own goroutines
func (s *Scheduler) worker() {
	defer s.workerWg.Done()

	<-s.stopCh
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ScheduledJobs: len(s.jobs),
		Workers:       s.workers,
	}
}

// Stats contains statistics about the scheduler
type Stats struct {
	ScheduledJobs int
	Workers       int
}

var (
	ErrSchedulerStopped = &Error{"scheduler is stopped"}
)

// Error represents a scheduler error
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// NextRunTime returns the next wall-clock time aligned to the given period,
// plus an offset into the period. A resample run every 15 minutes with a
// one-minute offset lands at :01, :16, :31, :46.
func NextRunTime(now time.Time, period, offset time.Duration) time.Time {
	next := now.Truncate(period).Add(offset)
	for !next.After(now) {
		next = next.Add(period)
	}
	return next
}
