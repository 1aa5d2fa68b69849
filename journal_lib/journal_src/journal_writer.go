// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the raw writer owns the single device handle and both the batched async
path and the single entry sync path, serialized on one mutex, the same way
slookup_i's interface_lock keeps only one thing happening against the
backing store at a time. unlike slookup_i, which trusts its caller to
sequence reads and writes, both write paths here have to independently
read-modify-write the shared header, so the algorithm from
journal_writer.c is followed step for step: validate/reset the header,
advance indices (evicting the oldest entry on wrap), write the slot, then
persist the header with bounded retry. */

// package name must match directory name
package journal_src

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	journal_errors "github.com/nixomose/hurdjournal/journal_lib/journal_errors"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_interfaces "github.com/nixomose/hurdjournal/journal_lib/journal_interfaces"
	"github.com/nixomose/nixomosegotools/tools"
)

const header_persist_retries = 3
const header_persist_retry_sleep = time.Millisecond

type Raw_writer struct {
	log *tools.Nixomosetools_logger

	writer_lock sync.Mutex
	handle      *journal_device_handle

	dropped_events uint64 // atomic, count of payloads this writer failed to persist
}

// verify Raw_writer implements the interface
var _ journal_interfaces.Raw_writer_interface = &Raw_writer{}
var _ journal_interfaces.Raw_writer_interface = (*Raw_writer)(nil)

func New_raw_writer(log *tools.Nixomosetools_logger, device_path string, want_directio bool) *Raw_writer {
	var w Raw_writer
	w.log = log
	w.handle = new_journal_device_handle(log, device_path, want_directio)
	return &w
}

func (this *Raw_writer) Dropped_events() uint64 {
	return atomic.LoadUint64(&this.dropped_events)
}

func (this *Raw_writer) add_dropped(n uint64) {
	atomic.AddUint64(&this.dropped_events, n)
}

func (this *Raw_writer) Close() tools.Ret {
	this.writer_lock.Lock()
	defer this.writer_lock.Unlock()
	return this.handle.close()
}

/* read_header_locked implements 4.2.1: read and validate the header, treating a short read, bad
magic/version, crc mismatch or out of range indices as empty-but-recoverable (reset to 0,0), and
an EIO on the read itself as a hard failure. the caller must hold writer_lock. */
func (this *Raw_writer) read_header_locked() (tools.Ret, journal_format.Journal_header) {

	var buf = make([]byte, journal_format.RESERVED)
	var ret, n = this.handle.pread(buf, 0)
	if ret != nil {
		if is_eio(ret) {
			return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
				"hard failure reading journal header: ", ret.Get_errmsg()), journal_format.Journal_header{}
		}
		// any other read failure is treated the same as a short/invalid header: start empty.
		return nil, journal_format.New_journal_header(0, 0)
	}
	if uint64(n) < journal_format.RESERVED {
		return nil, journal_format.New_journal_header(0, 0)
	}

	var header journal_format.Journal_header
	if ret = header.Deserialize(this.log, &buf, journal_format.NUM_ENTRIES); ret != nil {
		this.log.Debug("journal header invalid, treating device as empty: ", ret.Get_errmsg())
		return nil, journal_format.New_journal_header(0, 0)
	}
	return nil, header
}

/* persist_header_locked implements 4.2.2: build a fresh header for (start, end), write it at
offset 0 and fsync, making up to header_persist_retries attempts with a short sleep after each
failed one. the caller must hold writer_lock. */
func (this *Raw_writer) persist_header_locked(start_index uint64, end_index uint64) tools.Ret {

	var header = journal_format.New_journal_header(start_index, end_index)
	var ret, buf = header.Serialize(this.log)
	if ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"unable to serialize journal header: ", ret.Get_errmsg())
	}

	var last_err tools.Ret
	for attempt := 0; attempt < header_persist_retries; attempt++ {
		var n int
		if last_err, n = this.handle.pwrite(*buf, 0); last_err == nil && n == len(*buf) {
			if last_err = this.handle.fsync(); last_err == nil {
				return nil
			}
		}
		if last_err == nil {
			last_err = tools.Error(this.log, "short header write, wrote ", n, " expected ", len(*buf))
		}
		this.log.Debug("journal header persist attempt ", attempt, " failed: ", last_err.Get_errmsg())
		time.Sleep(header_persist_retry_sleep)
	}
	return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
		"failed to persist journal header after ", header_persist_retries, " attempts: ", last_err.Get_errmsg())
}

func index_to_offset(index uint64) int64 {
	return int64(journal_format.RESERVED + (index%journal_format.NUM_ENTRIES)*journal_format.ENTRY_SIZE)
}

/* append_one_locked implements the single slot append algorithm from 4.2: compute the next end
index, evict the oldest entry on wrap, serialize and write the entry, and advance end. it does
not persist the header, callers do that once per batch. the caller must hold writer_lock. */
func (this *Raw_writer) append_one_locked(payload journal_format.Journal_payload, start_index *uint64, end_index *uint64) tools.Ret {

	var ret, slot = journal_format.Serialize_entry(this.log, &payload)
	if ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_payload_invalid),
			"unable to serialize journal payload: ", ret.Get_errmsg())
	}

	var next = (*end_index + 1) % journal_format.NUM_ENTRIES
	if next == *start_index {
		*start_index = (*start_index + 1) % journal_format.NUM_ENTRIES
	}

	var offset = index_to_offset(*end_index)
	var n int
	if ret, n = this.handle.pwrite(*slot, offset); ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"unable to write journal entry at index ", *end_index, ": ", ret.Get_errmsg())
	}
	if uint64(n) != journal_format.ENTRY_SIZE {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"short write for journal entry at index ", *end_index, ": wrote ", n)
	}

	*end_index = next
	return nil
}

// Write_batch implements the 4.2 write_batch contract: all-or-nothing at batch granularity, on
// mid batch failure the whole batch is dropped and counted.
func (this *Raw_writer) Write_batch(payloads []journal_format.Journal_payload) tools.Ret {

	if len(payloads) == 0 {
		return nil
	}

	this.writer_lock.Lock()
	defer this.writer_lock.Unlock()

	if ret := this.handle.ensure_open(); ret != nil {
		this.add_dropped(uint64(len(payloads)))
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"unable to open journal device: ", ret.Get_errmsg())
	}

	var ret, header = this.read_header_locked()
	if ret != nil {
		this.add_dropped(uint64(len(payloads)))
		return ret
	}

	var start_index = header.M_start_index
	var end_index = header.M_end_index

	for i := range payloads {
		if ret = this.append_one_locked(payloads[i], &start_index, &end_index); ret != nil {
			this.add_dropped(uint64(len(payloads)))
			return ret
		}
	}

	if ret = this.persist_header_locked(start_index, end_index); ret != nil {
		/* the entries are already on device even though the header pointer lags, this is not
		re-reported as a batch failure, the replayer's next validation pass will sort it out. */
		this.log.Error("journal header persist failed after writing batch, data is on device: ", ret.Get_errmsg())
		return nil
	}

	return nil
}

// Write_sync implements the 4.2 write_sync contract: write and fsync a single entry, then
// write and fsync the header, only when device_ready is true.
func (this *Raw_writer) Write_sync(payload journal_format.Journal_payload, device_ready bool) tools.Ret {

	if !device_ready {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_not_ready),
			"journal device is not ready, refusing synchronous write")
	}

	this.writer_lock.Lock()
	defer this.writer_lock.Unlock()

	if ret := this.handle.ensure_open(); ret != nil {
		this.add_dropped(1)
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"unable to open journal device: ", ret.Get_errmsg())
	}

	var ret, header = this.read_header_locked()
	if ret != nil {
		this.add_dropped(1)
		return ret
	}

	var start_index = header.M_start_index
	var end_index = header.M_end_index

	if ret = this.append_one_locked(payload, &start_index, &end_index); ret != nil {
		this.add_dropped(1)
		return ret
	}
	if ret = this.handle.fsync(); ret != nil {
		this.add_dropped(1)
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"fsync of journal entry failed: ", ret.Get_errmsg())
	}

	if ret = this.persist_header_locked(start_index, end_index); ret != nil {
		this.add_dropped(1)
		return ret
	}
	return nil
}

func is_eio(ret tools.Ret) bool {
	// best effort: the underlying pread/pwrite error message from golang.org/x/sys/unix embeds
	// the errno string, "input/output error" for EIO.
	return ret != nil && strings.Contains(ret.Get_errmsg(), "input/output error")
}
