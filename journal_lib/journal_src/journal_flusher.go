// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the flusher is the single background actor draining the queue into the raw
writer. it owns no lock of its own across the call to write_batch, it hands
off a snapshot and lets go, mirroring journal_flusher_thread's own
lock-drain-unlock-then-write shape from journal_queue.c. */

// package name must match directory name
package journal_src

import (
	"context"
	"sync/atomic"
	"time"

	journal_interfaces "github.com/nixomose/hurdjournal/journal_lib/journal_interfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

const flusher_not_ready_poll time.Duration = 100 * time.Millisecond

type journal_flusher struct {
	log          *tools.Nixomosetools_logger
	queue        journal_interfaces.Queue_interface
	writer       journal_interfaces.Raw_writer_interface
	device_ready *uint32
}

func new_journal_flusher(log *tools.Nixomosetools_logger, queue journal_interfaces.Queue_interface,
	writer journal_interfaces.Raw_writer_interface, device_ready *uint32) *journal_flusher {
	var f journal_flusher
	f.log = log
	f.queue = queue
	f.writer = writer
	f.device_ready = device_ready
	return &f
}

func (this *journal_flusher) is_device_ready() bool {
	return atomic.LoadUint32(this.device_ready) == 1
}

// run implements the 4.3 flusher loop until ctx is cancelled or the queue is shut down and
// drained.
func (this *journal_flusher) run(ctx context.Context) error {
	for {
		for !this.is_device_ready() {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(flusher_not_ready_poll):
			}
		}

		var batch, ok = this.queue.Dequeue_batch(this.is_device_ready)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if this.queue.Is_shutdown() {
				// shutdown requested and the queue had nothing left to drain.
				return nil
			}
			// the device went unready mid accumulation, loop around and recheck readiness.
			continue
		}
		if len(batch) == 0 {
			continue
		}

		if ret := this.writer.Write_batch(batch); ret != nil {
			this.log.Error("journal flusher: write_batch failed: ", ret.Get_errmsg())
		}
	}
}
