// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the bounded ring of pending payloads. tlog.go's own doc comment says
"we can add read and write locks here...for at least pretending to allow
some parallelism", this is that, generalized into a real mutex + condition
variable pair so a background flusher can block until there's something
to drain instead of busy polling the way the readiness monitor has to
poll the device. */

// package name must match directory name
package journal_src

import (
	"sync"
	"sync/atomic"

	journal_errors "github.com/nixomose/hurdjournal/journal_lib/journal_errors"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_interfaces "github.com/nixomose/hurdjournal/journal_lib/journal_interfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

type Journal_queue struct {
	log *tools.Nixomosetools_logger

	mu   sync.Mutex
	cond *sync.Cond

	slots [journal_format.QUEUE_CAPACITY]journal_format.Journal_payload
	head  int
	tail  int
	count int

	shutdown_flag bool

	dropped_events *uint64 // owned by Journal_core, which adds the raw writer's own count when queried
}

// verify Journal_queue implements the interface
var _ journal_interfaces.Queue_interface = &Journal_queue{}
var _ journal_interfaces.Queue_interface = (*Journal_queue)(nil)

func New_journal_queue(log *tools.Nixomosetools_logger, dropped_events *uint64) *Journal_queue {
	var q Journal_queue
	q.log = log
	q.dropped_events = dropped_events
	q.cond = sync.NewCond(&q.mu)
	return &q
}

// Enqueue implements the 4.3 enqueue contract: rejects after shutdown, rejects (and counts) when
// the queue is full, and never blocks. the payload is a fixed size struct, so there is no size check.
func (this *Journal_queue) Enqueue(payload journal_format.Journal_payload) (tools.Ret, bool) {

	this.mu.Lock()
	defer this.mu.Unlock()

	if this.shutdown_flag {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_shutting_down),
			"journal queue is shutting down, rejecting enqueue"), false
	}

	if this.count == journal_format.QUEUE_CAPACITY {
		atomic.AddUint64(this.dropped_events, 1)
		return nil, false
	}

	this.slots[this.tail] = payload
	this.tail = (this.tail + 1) % journal_format.QUEUE_CAPACITY
	this.count++
	this.cond.Signal()
	return nil, true
}

// Flush_now wakes the flusher immediately, without waiting for the batch accumulation deadline.
func (this *Journal_queue) Flush_now() {
	this.mu.Lock()
	this.cond.Signal()
	this.mu.Unlock()
}

// Shutdown flags the queue as shutting down and wakes any waiter so the flusher can drain what's
// left and exit.
func (this *Journal_queue) Shutdown() {
	this.mu.Lock()
	this.shutdown_flag = true
	this.cond.Broadcast()
	this.mu.Unlock()
}

func (this *Journal_queue) Is_shutdown() bool {
	this.mu.Lock()
	defer this.mu.Unlock()
	return this.shutdown_flag
}

// Dequeue_batch implements the flusher's batch accumulation step (4.3, steps 2-6): wait for at
// least one entry or shutdown, then coalesce a contiguous prefix of the queue up to
// FLUSH_DEADLINE or a full queue, whichever comes first, bailing out if the device stops being
// ready in the meantime.
func (this *Journal_queue) Dequeue_batch(device_ready func() bool) ([]journal_format.Journal_payload, bool) {

	this.mu.Lock()
	defer this.mu.Unlock()

	for this.count == 0 && !this.shutdown_flag {
		this.cond.Wait()
	}
	if this.shutdown_flag && this.count == 0 {
		return nil, false
	}

	var deadline = journal_now().Add(journal_format.FLUSH_DEADLINE)
	for this.count < journal_format.QUEUE_CAPACITY && !this.shutdown_flag && journal_now().Before(deadline) {
		wait_until(this.cond, deadline)
	}

	if !device_ready() {
		return nil, false
	}

	var batch_count = this.count
	var batch = make([]journal_format.Journal_payload, batch_count)
	for i := 0; i < batch_count; i++ {
		batch[i] = this.slots[this.head]
		this.head = (this.head + 1) % journal_format.QUEUE_CAPACITY
	}
	this.count = 0

	return batch, true
}
