// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal

import (
	"path/filepath"
	"testing"

	"github.com/nixomose/nixomosegotools/tools"
)

type fake_node struct {
	ino    uint32
	mode   uint32
	size   uint64
	nlink  uint64
	blocks uint64
	mtime  int64
	ctime  int64
}

func (n *fake_node) Ino() uint32    { return n.ino }
func (n *fake_node) Mode() uint32   { return n.mode }
func (n *fake_node) Size() uint64   { return n.size }
func (n *fake_node) Nlink() uint64  { return n.nlink }
func (n *fake_node) Blocks() uint64 { return n.blocks }
func (n *fake_node) Mtime() int64   { return n.mtime }
func (n *fake_node) Ctime() int64   { return n.ctime }

func new_test_journal(t *testing.T) *Journal {
	var device_path = filepath.Join(t.TempDir(), "journal.dat")
	var log = tools.New_Nixomosetools_logger(tools.DEBUG)
	return NewJournal(log, device_path, false, nil)
}

func Test_log_metadata_rejects_nil_node_without_action(t *testing.T) {
	var j = new_test_journal(t)
	if ret := j.LogMetadata(nil, EventInfo{}, ASYNC); ret == nil {
		t.Fatalf("expected LogMetadata to reject a nil node with no action")
	}
}

func Test_log_metadata_honors_ignore_list(t *testing.T) {
	var device_path = filepath.Join(t.TempDir(), "journal.dat")
	var log = tools.New_Nixomosetools_logger(tools.DEBUG)
	var j = NewJournal(log, device_path, false, map[uint32]struct{}{42: {}})

	var n = &fake_node{ino: 42, mtime: 1700000000, ctime: 1700000000}
	if ret := j.LogMetadata(n, EventInfo{Action: "create", Name: "f"}, ASYNC); ret != nil {
		t.Fatalf("LogMetadata for an ignored ino should be a silent no-op, got %v", ret.Get_errmsg())
	}
	if j.DroppedEvents() != 0 {
		t.Fatalf("ignored event should not count as dropped")
	}
}

func Test_log_metadata_sync_rejects_when_device_not_ready(t *testing.T) {
	var j = new_test_journal(t)
	var n = &fake_node{ino: 1, mtime: 1700000000, ctime: 1700000000}

	// Init was never called, so the readiness monitor never ran and device_ready stays false.
	if ret := j.LogMetadata(n, EventInfo{Action: "create", Name: "f"}, SYNC); ret == nil {
		t.Fatalf("expected sync LogMetadata to fail before the journal is initialized")
	}
}

func Test_log_metadata_async_enqueues_before_init(t *testing.T) {
	var j = new_test_journal(t)
	var n = &fake_node{ino: 1, mtime: 1700000000, ctime: 1700000000}

	// the queue itself doesn't require the background flusher to be running yet to accept work.
	if ret := j.LogMetadata(n, EventInfo{Action: "create", Name: "f"}, ASYNC); ret != nil {
		t.Fatalf("async LogMetadata failed: %v", ret.Get_errmsg())
	}
}

func Test_clamp_time_rejects_out_of_range(t *testing.T) {
	if got := clamp_time(0); got != -1 {
		t.Errorf("clamp_time(0) = %d, want -1", got)
	}
	if got := clamp_time(1 << 62); got != -1 {
		t.Errorf("clamp_time(huge) = %d, want -1", got)
	}
	if got := clamp_time(1700000000); got != 1700000000 {
		t.Errorf("clamp_time(reasonable) = %d, want 1700000000", got)
	}
}
