package main

import "time"

// timerFired is posted to a room inbox when a scheduled task is due
type timerFired struct {
	id uint64
}

type scheduledTask struct {
	timer *time.Timer
	fn    func()
}

// Scheduler owns the one-shot tasks of a room. Timers only post a
// notification; the task itself runs on the room goroutine via Fire, so a
// cancelled task can never run even if its timer already expired.
type Scheduler struct {
	nextID uint64
	tasks  map[uint64]*scheduledTask
	post   func(msg any) bool
}

// NewScheduler creates a scheduler that delivers due tasks through post
func NewScheduler(post func(msg any) bool) *Scheduler {
	return &Scheduler{
		tasks: make(map[uint64]*scheduledTask),
		post:  post,
	}
}

// After schedules fn to run on the owning goroutine after d
func (s *Scheduler) After(d time.Duration, fn func()) uint64 {
	s.nextID++
	id := s.nextID
	task := &scheduledTask{fn: fn}
	task.timer = time.AfterFunc(d, func() {
		s.post(timerFired{id: id})
	})
	s.tasks[id] = task
	return id
}

// Cancel drops a pending task
func (s *Scheduler) Cancel(id uint64) {
	if task, ok := s.tasks[id]; ok {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}

// CancelAll drops every pending task
func (s *Scheduler) CancelAll() {
	for id, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, id)
	}
}

// Fire runs a due task if it is still pending
func (s *Scheduler) Fire(id uint64) {
	task, ok := s.tasks[id]
	if !ok {
		return
	}
	delete(s.tasks, id)
	task.fn()
}

// Pending returns the number of tasks still waiting to fire
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}
