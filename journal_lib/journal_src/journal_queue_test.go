// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_src

import (
	"testing"

	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	"github.com/nixomose/nixomosegotools/tools"
)

func test_logger() *tools.Nixomosetools_logger {
	return tools.New_Nixomosetools_logger(tools.DEBUG)
}

func always_ready() bool { return true }

func Test_queue_enqueue_dequeue_round_trip(t *testing.T) {
	var dropped uint64
	var q = New_journal_queue(test_logger(), &dropped)

	var ret, ok = q.Enqueue(journal_format.Journal_payload{M_tx_id: 1})
	if ret != nil || !ok {
		t.Fatalf("enqueue failed: ret=%v ok=%v", ret, ok)
	}

	q.Shutdown() // makes Dequeue_batch return once the single entry is drained, for a bounded test

	var batch, got_ok = q.Dequeue_batch(always_ready)
	if !got_ok {
		t.Fatalf("expected a batch")
	}
	if len(batch) != 1 || batch[0].M_tx_id != 1 {
		t.Fatalf("unexpected batch contents: %+v", batch)
	}
}

func Test_queue_full_drops_and_counts(t *testing.T) {
	var dropped uint64
	var q = New_journal_queue(test_logger(), &dropped)

	for i := 0; i < journal_format.QUEUE_CAPACITY; i++ {
		var ret, ok = q.Enqueue(journal_format.Journal_payload{M_tx_id: uint64(i)})
		if ret != nil || !ok {
			t.Fatalf("enqueue %d unexpectedly failed", i)
		}
	}

	var ret, ok = q.Enqueue(journal_format.Journal_payload{M_tx_id: 9999})
	if ret != nil {
		t.Fatalf("overflow enqueue should not return an error, got %v", ret.Get_errmsg())
	}
	if ok {
		t.Fatalf("overflow enqueue should report ok=false")
	}
	if dropped != 1 {
		t.Fatalf("dropped count = %d, want 1", dropped)
	}
}

func Test_queue_rejects_enqueue_after_shutdown(t *testing.T) {
	var dropped uint64
	var q = New_journal_queue(test_logger(), &dropped)
	q.Shutdown()

	var ret, ok = q.Enqueue(journal_format.Journal_payload{})
	if ret == nil {
		t.Fatalf("expected enqueue after shutdown to fail")
	}
	if ok {
		t.Fatalf("expected ok=false for rejected enqueue")
	}
}

func Test_queue_dequeue_batch_returns_false_when_shutdown_and_empty(t *testing.T) {
	var dropped uint64
	var q = New_journal_queue(test_logger(), &dropped)
	q.Shutdown()

	var _, ok = q.Dequeue_batch(always_ready)
	if ok {
		t.Fatalf("expected Dequeue_batch to report ok=false on an empty, shut down queue")
	}
	if !q.Is_shutdown() {
		t.Fatalf("expected Is_shutdown to be true")
	}
}

func Test_queue_dequeue_batch_bails_when_device_not_ready(t *testing.T) {
	var dropped uint64
	var q = New_journal_queue(test_logger(), &dropped)

	var ret, ok = q.Enqueue(journal_format.Journal_payload{M_tx_id: 1})
	if ret != nil || !ok {
		t.Fatalf("enqueue failed: ret=%v ok=%v", ret, ok)
	}

	var never_ready = func() bool { return false }
	var _, got_ok = q.Dequeue_batch(never_ready)
	if got_ok {
		t.Fatalf("expected Dequeue_batch to report ok=false when the device is not ready")
	}
}
