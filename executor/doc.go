// Package executor provides the execution contexts stream stages schedule
// their asynchronous work on.
//
// An Executor runs at most one callback at a time. Stages never block: the
// random source schedules each generation with Schedule, and the pacer arms
// its jittered timer with ScheduleAfter. Independent pipelines may use
// different executors and so run in parallel.
//
// Two implementations are provided:
//
//   - Serial: a single worker goroutine draining a FIFO queue, with timers
//     backed by time.AfterFunc. It implements component.Component so an
//     application can start and stop it alongside everything else.
//   - Manual: a virtual clock driven by the caller through Advance and
//     RunPending, for deterministic tests of timer-driven stages.
//
// # Usage
//
//	exec := executor.NewSerial("pipeline")
//	_ = exec.Start(ctx)
//	defer exec.Stop(ctx)
//
//	cancel := exec.ScheduleAfter(time.Second, tick)
//	defer cancel()
package executor
