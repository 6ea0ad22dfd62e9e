// Package asynccore provides a multithreaded asynchronous core: a tree of
// executor-owning "contexts", a configurable set of worker goroutines per
// context, and a coroutine runtime integrated with the executors' completion
// callback convention.
//
// # Architecture
//
// Applications describe their structure as a tree using [Tree]: each node owns
// one [Executor] and zero or more worker slots, each slot configured via
// [WorkerParameters]. Constructing a [Core] from the plan allocates the
// executors, and starting it launches one worker goroutine per slot. A worker
// services its own node's executor and/or the executors of all enabled
// descendants, according to its poll policies. This allows segregating
// latency-sensitive work from blocking work, while "generalist" workers on an
// ancestor node absorb spill-over in both directions.
//
// Typical shape:
//   - one context + some workers for lightweight tasks only;
//   - one context + some workers for heavyweight tasks only;
//   - a parent context whose workers run tasks of both kinds.
//
// # Workers
//
// A worker's behavior is controlled by two [PollPolicy] values (one for the
// node's own executor, one for descendants) and a delay policy applied after
// rounds that executed nothing. When a worker ends up with a single target
// executor it switches to a blocking fast path using [Executor.Run] rather
// than spinning over poll calls.
//
// # Coroutines
//
// [Spawn] starts a stackful coroutine bound to a [Strand]. The coroutine body
// suspends by reading a rendezvous slot ([NewSlot], [NewErrSlot]) whose value
// is produced by an external completion callback ([Slot.Caller]). The
// future/promise layer ([NewPromise], [SpawnFuture]) bridges coroutine results
// to code outside the coroutine world, including [RunUntilComplete], which
// drives an executor from a blocking caller until a future becomes ready.
//
// # Thread safety
//
//   - Core: safe for concurrent use, including concurrent Start/Stop/Join.
//   - Tree, WorkerParameters: safe as distinct objects, unsafe shared.
//   - Group: safe, except it must not be copied.
//   - Slots and callers implement a lock-free rendezvous; each slot supports
//     one consumer and one effective producer.
package asynccore
