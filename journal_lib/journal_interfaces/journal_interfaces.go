// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* interfaces for the journal's components, the same way slookup_i splits its
backing store and transaction log into interfaces so the top level facade
doesn't have to know about the concrete implementation. here the split is
between the raw circular log writer, the in memory queue, and the replayer. */

// Package journal_interfaces name must match directory name
package journal_interfaces

import (
	"github.com/nixomose/nixomosegotools/tools"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
)

type Raw_writer_interface interface {

	/* write_batch writes every payload into the next slots in order, advancing indices and
	persisting the header once at the end. all or nothing at batch granularity. */
	Write_batch(payloads []journal_format.Journal_payload) tools.Ret

	/* write_sync writes and fsyncs a single payload then the header, and only succeeds if
	device_ready is true. */
	Write_sync(payload journal_format.Journal_payload, device_ready bool) tools.Ret

	Dropped_events() uint64

	Close() tools.Ret
}

type Queue_interface interface {
	Enqueue(payload journal_format.Journal_payload) (tools.Ret, bool)

	// Dequeue_batch blocks per the flush algorithm and returns the next batch to write, or
	// ok=false if the queue was shut down with nothing left to drain.
	Dequeue_batch(device_ready func() bool) (batch []journal_format.Journal_payload, ok bool)

	Flush_now()

	Shutdown()

	Is_shutdown() bool
}

type Replayer_interface interface {
	Replay(device_path string) (tools.Ret, []journal_format.Journal_payload)
}
