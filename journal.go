// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* Package journal is the facade a filesystem translator links against: one
type, NewJournal, wrapping the queue/writer/flusher/readiness-monitor
plumbing in journal_lib so callers never see those internals, the same
shape slookup_i_lib presents through slookup_i_src.Slookup_i rather than
handing out its backing store and transaction log separately. */
package journal

import (
	"time"

	journal_errors "github.com/nixomose/hurdjournal/journal_lib/journal_errors"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_src "github.com/nixomose/hurdjournal/journal_lib/journal_src"
	"github.com/nixomose/nixomosegotools/tools"
)

// min/max reasonable time bounds used to clamp mtime/ctime, per the 4.5 logging algorithm. a
// filesystem in-core clock or corrupted inode can hand back nonsense timestamps, and a bogus
// value doesn't belong in a durable audit log.
const min_reasonable_time = 315532800  // 1980-01-01
const max_reasonable_time = 4102444800 // 2100-01-01

// Node is the minimal view of an in-core inode a caller hands to LogMetadata. it exists so this
// package never has to import a concrete diskfs/inode type.
type Node interface {
	Ino() uint32
	Mode() uint32
	Size() uint64
	Nlink() uint64
	Blocks() uint64
	Mtime() int64
	Ctime() int64
}

// Durability selects between the async queued path and the synchronous write-and-fsync path.
type Durability int

const (
	ASYNC Durability = iota
	SYNC
)

/* EventInfo carries everything about a metadata event that isn't already on the Node: which
operation happened, the names involved, and optional overrides for fields the caller wants to
force (used for events, like unlink, where the node itself may already be gone by the time
LogMetadata is called). */
type EventInfo struct {
	Action string

	Name     string
	OldName  string
	NewName  string
	Target   string
	Extra    string

	ParentIno     uint32
	SrcParentIno  uint32
	DstParentIno  uint32

	OverrideUid  uint32
	HasUid       bool
	OverrideGid  uint32
	HasGid       bool
	OverrideMode uint32
	HasMode      bool
	OverrideSize uint64
	HasSize      bool
}

type Journal struct {
	log         *tools.Nixomosetools_logger
	core        *journal_src.Journal_core
	ignore_list map[uint32]struct{}
}

// NewJournal constructs a journal against device_path. ignore_list, if non-nil, names inodes
// LogMetadata silently drops events for, per the 4.5 ignore-list step (typically the journal's
// own backing inode, to avoid a self-referential log-the-log loop).
func NewJournal(log *tools.Nixomosetools_logger, device_path string, want_directio bool,
	ignore_list map[uint32]struct{}) *Journal {

	var j Journal
	j.log = log
	j.core = journal_src.New_journal_core(log, device_path, want_directio)
	j.ignore_list = ignore_list
	if j.ignore_list == nil {
		j.ignore_list = make(map[uint32]struct{})
	}
	return &j
}

// Init replays the existing log (if any, exactly once) and starts the background flusher and
// readiness monitor. the replayed events are returned so the caller can reconcile in-core state
// before accepting new writes, per 4.4's stated purpose for Replay.
func (this *Journal) Init() (tools.Ret, []journal_format.Journal_payload) {
	var ret, replayed = this.core.Replay_startup()
	if ret != nil {
		this.log.Debug("journal startup replay skipped or failed: ", ret.Get_errmsg())
	}
	if ret = this.core.Init(); ret != nil {
		return ret, replayed
	}
	return nil, replayed
}

func (this *Journal) Shutdown() tools.Ret {
	return this.core.Shutdown()
}

func (this *Journal) FlushNow() {
	this.core.FlushNow()
}

func (this *Journal) DroppedEvents() uint64 {
	return this.core.Dropped_events()
}

func clamp_time(t int64) int64 {
	if t < min_reasonable_time || t > max_reasonable_time {
		return -1
	}
	return t
}

func (this *Journal) build_payload(node Node, info EventInfo) journal_format.Journal_payload {

	var payload journal_format.Journal_payload
	payload.M_tx_id = this.core.Next_tx_id()
	payload.M_timestamp_ms = uint64(time.Now().UnixMilli())

	payload.M_action = info.Action
	payload.M_name = info.Name
	payload.M_old_name = info.OldName
	payload.M_new_name = info.NewName
	payload.M_target = info.Target
	payload.M_extra = info.Extra
	payload.M_parent_ino = info.ParentIno
	payload.M_src_parent_ino = info.SrcParentIno
	payload.M_dst_parent_ino = info.DstParentIno

	if node != nil {
		payload.M_ino = node.Ino()
		payload.M_st_mode = node.Mode()
		payload.M_st_size = node.Size()
		payload.M_st_nlink = node.Nlink()
		payload.M_st_blocks = node.Blocks()
		payload.M_mtime = clamp_time(node.Mtime())
		payload.M_ctime = clamp_time(node.Ctime())
	} else {
		payload.M_mtime = -1
		payload.M_ctime = -1
	}

	if info.HasMode {
		payload.M_has_mode = true
		payload.M_st_mode = info.OverrideMode
	}
	if info.HasSize {
		payload.M_has_size = true
		payload.M_st_size = info.OverrideSize
	}
	if info.HasUid {
		payload.M_has_uid = true
		payload.M_uid = info.OverrideUid
	}
	if info.HasGid {
		payload.M_has_gid = true
		payload.M_gid = info.OverrideGid
	}

	return payload
}

/* LogMetadata implements the 4.5 logging algorithm: a nil node with no action is rejected and
ignore-list events are dropped before any tx_id is spent, timestamps are stamped and clamped, then
the event is handed to the async queue or the sync write path depending on durability. a nil node
with an action is accepted, e.g. a post-unlink notification; its payload carries ino 0, no stat
fields and mtime/ctime of -1, so only EventInfo's names, parent inodes and overrides describe it. */
func (this *Journal) LogMetadata(node Node, info EventInfo, durability Durability) tools.Ret {

	if node == nil && info.Action == "" {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_payload_invalid),
			"LogMetadata: nil node and no action, nothing to log")
	}

	if node != nil {
		if _, ignored := this.ignore_list[node.Ino()]; ignored {
			return nil
		}
	}

	var payload = this.build_payload(node, info)

	if durability == SYNC {
		return this.core.Write_sync(payload)
	}

	var ret, enqueued = this.core.Enqueue(payload)
	if ret != nil {
		return ret
	}
	if !enqueued {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_queue_overflow),
			"journal queue is full, event for ino ", payload.M_ino, " dropped")
	}
	return nil
}
