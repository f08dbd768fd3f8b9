// Package dispatch runs a batch of report jobs on a bounded worker pool.
//
// Jobs are handed to the pool in input order and picked up concurrently, but
// every job's extract-and-persist work runs inside one CriticalSection shared
// by the dispatcher, so at most one job touches a workbook or the database at
// any instant. Progress is published as a typed event stream: each job emits
// Started when it enters the critical section and exactly one terminal event,
// Completed or Failed. Per-job failures never stop the batch.
//
// An optional per-job timeout abandons a stuck job, reports it as failed, and
// releases the critical section so the rest of the batch can proceed.
package dispatch
