// Package sched runs background work and hands follow-up jobs back to the
// authoritative thread.
package sched

import (
	"context"
	"log/slog"
	"sync"
)

// GameJob runs on the authoritative thread, the one that calls
// RunGameJobs or WaitGameJob.
type GameJob func()

// WorkJob runs on a worker goroutine. The GameJob it returns, if any, is
// queued for the authoritative thread once the work joins.
type WorkJob func() GameJob

// Scheduler is a fixed worker pool plus a queue of game jobs.
type Scheduler struct {
	work chan WorkJob
	game chan GameJob

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New starts workers goroutines. queue bounds the number of pending jobs of
// each kind before RunJob blocks.
func New(workers, queue int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 64
	}
	s := &Scheduler{
		work: make(chan WorkJob, queue),
		game: make(chan GameJob, queue),
	}
	s.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go s.worker(i)
	}
	return s
}

func (s *Scheduler) worker(n int) {
	defer s.wg.Done()
	for job := range s.work {
		next := s.run(n, job)
		if next != nil {
			s.game <- next
		}
	}
}

func (s *Scheduler) run(n int, job WorkJob) (next GameJob) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("work job panicked", "worker", n, "panic", r)
			next = nil
		}
	}()
	return job()
}

// RunJob queues job for a worker. It must not be called after Close.
func (s *Scheduler) RunJob(job WorkJob) {
	s.work <- job
}

// RunGameJobs runs every game job that is ready without blocking and
// returns how many ran.
func (s *Scheduler) RunGameJobs() int {
	n := 0
	for {
		select {
		case job := <-s.game:
			job()
			n++
		default:
			return n
		}
	}
}

// WaitGameJob blocks until one game job is ready, runs it, then drains the
// rest of the queue.
func (s *Scheduler) WaitGameJob(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case job := <-s.game:
		job()
	}
	s.RunGameJobs()
	return nil
}

// Close stops accepting work and waits for the workers to exit. Game jobs
// produced by the remaining work stay queued for RunGameJobs.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.work)
		s.wg.Wait()
	})
}
