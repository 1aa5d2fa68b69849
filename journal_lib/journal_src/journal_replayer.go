// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the replayer scans the log from the header's start to end index, validates
each slot, and hands back a well ordered event stream. it's read only and
opens its own device handle, it never touches the writer's handle or lock,
the same separation slookup_i draws between its own direct backing store
access (used for init/wipe) and the transaction log's access (used for
reads and writes). */

// package name must match directory name
package journal_src

import (
	"context"
	"sort"
	"strings"

	journal_errors "github.com/nixomose/hurdjournal/journal_lib/journal_errors"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_interfaces "github.com/nixomose/hurdjournal/journal_lib/journal_interfaces"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sync/errgroup"
)

const monotonicity_skew_fatal_ms uint64 = 10000

type Journal_replayer struct {
	log           *tools.Nixomosetools_logger
	want_directio bool
}

// verify Journal_replayer implements the interface
var _ journal_interfaces.Replayer_interface = &Journal_replayer{}
var _ journal_interfaces.Replayer_interface = (*Journal_replayer)(nil)

func New_journal_replayer(log *tools.Nixomosetools_logger, want_directio bool) *Journal_replayer {
	var r Journal_replayer
	r.log = log
	r.want_directio = want_directio
	return &r
}

func abs_delta_ms(a uint64, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Replay implements the 4.4 contract: scans start_index..end_index in order, validating magic,
// version, crc and minimal payload sanity at each slot, stopping at the first bad slot. on
// success the collected payloads are sorted by (timestamp_ms, tx_id).
func (this *Journal_replayer) Replay(device_path string) (tools.Ret, []journal_format.Journal_payload) {

	var handle = new_journal_device_handle(this.log, device_path, this.want_directio)
	defer handle.close()

	if ret := handle.open(); ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"replay: unable to open ", device_path, ": ", ret.Get_errmsg()), nil
	}

	var header_buf = make([]byte, journal_format.RESERVED)
	var ret, n = handle.pread(header_buf, 0)
	if ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"replay: unable to read header: ", ret.Get_errmsg()), nil
	}
	if uint64(n) < journal_format.RESERVED {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_format_invalid),
			"replay: short header read"), nil
	}

	var header journal_format.Journal_header
	if ret = header.Deserialize(this.log, &header_buf, journal_format.NUM_ENTRIES); ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_format_invalid),
			"replay: header invalid: ", ret.Get_errmsg()), nil
	}

	var index = header.M_start_index
	var end = header.M_end_index
	var events []journal_format.Journal_payload

	var have_last = false
	var last_tx_id uint64
	var last_timestamp uint64

	for index != end {
		var slot = make([]byte, journal_format.ENTRY_SIZE)
		var offset = index_to_offset(index)
		if ret, n = handle.pread(slot, offset); ret != nil || uint64(n) != journal_format.ENTRY_SIZE {
			return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
				"replay: incomplete read at index ", index), nil
		}

		var payload *journal_format.Journal_payload
		if ret, payload = journal_format.Deserialize_entry(this.log, slot); ret != nil {
			return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_slot_corruption),
				"replay: bad slot at index ", index, ": ", ret.Get_errmsg()), nil
		}

		if payload.M_action == "" || payload.M_ino == 0 {
			return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_payload_invalid),
				"replay: invalid payload at index ", index, " (empty action or zero ino)"), nil
		}

		if have_last {
			if payload.M_timestamp_ms < last_timestamp {
				return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_format_invalid),
					"replay: decreasing timestamp at index ", index, " current=", payload.M_timestamp_ms,
					" previous=", last_timestamp), nil
			}
			var timestamp_moved = payload.M_timestamp_ms != last_timestamp
			var tx_id_regressed = payload.M_tx_id <= last_tx_id
			if timestamp_moved && tx_id_regressed {
				if abs_delta_ms(payload.M_timestamp_ms, last_timestamp) > monotonicity_skew_fatal_ms {
					return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_format_invalid),
						"replay: timestamp skew too large at index ", index, " tx_id=", payload.M_tx_id,
						" previous_tx_id=", last_tx_id), nil
				}
				this.log.Debug("replay: non-monotonic tx_id at index ", index, " tx_id=", payload.M_tx_id,
					" previous_tx_id=", last_tx_id)
			}
		}
		last_tx_id = payload.M_tx_id
		last_timestamp = payload.M_timestamp_ms
		have_last = true

		events = append(events, *payload)
		index = (index + 1) % journal_format.NUM_ENTRIES
	}

	sort.SliceStable(events, func(i int, j int) bool {
		if events[i].M_timestamp_ms != events[j].M_timestamp_ms {
			return events[i].M_timestamp_ms < events[j].M_timestamp_ms
		}
		return events[i].M_tx_id < events[j].M_tx_id
	})

	return nil, events
}

type Slot_integrity_status int

const (
	Slot_ok Slot_integrity_status = iota
	Slot_bad_magic
	Slot_bad_version
	Slot_bad_crc
	Slot_unreadable
)

type Slot_integrity_report struct {
	Index  uint64
	Status Slot_integrity_status
}

type Integrity_census struct {
	Total_slots    int
	Ok_slots       int
	Bad_slots      []Slot_integrity_report
}

/* ScanIntegrity is the supplemental bulk diagnostic from SPEC_FULL.md section 4.4: it walks
every slot in the device, not just the live start..end window, in parallel, and reports a
corruption census. it makes no claim about arrival order, unlike Replay. */
func (this *Journal_replayer) ScanIntegrity(device_path string) (tools.Ret, Integrity_census) {

	var handle = new_journal_device_handle(this.log, device_path, this.want_directio)
	defer handle.close()

	if ret := handle.open(); ret != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"scan: unable to open ", device_path, ": ", ret.Get_errmsg()), Integrity_census{}
	}

	var reports = make([]Slot_integrity_report, journal_format.NUM_ENTRIES)
	var group, _ = errgroup.WithContext(context.Background())

	for i := uint64(0); i < journal_format.NUM_ENTRIES; i++ {
		var index = i
		group.Go(func() error {
			var slot = make([]byte, journal_format.ENTRY_SIZE)
			var ret, n = handle.pread(slot, index_to_offset(index))
			if ret != nil || uint64(n) != journal_format.ENTRY_SIZE {
				reports[index] = Slot_integrity_report{Index: index, Status: Slot_unreadable}
				return nil
			}
			var deserialize_ret, _ = journal_format.Deserialize_entry(this.log, slot)
			if deserialize_ret == nil {
				reports[index] = Slot_integrity_report{Index: index, Status: Slot_ok}
				return nil
			}
			reports[index] = Slot_integrity_report{Index: index, Status: classify_slot_error(deserialize_ret)}
			return nil
		})
	}
	// pread against a shared fd from many goroutines is safe (it's positioned by offset, not by
	// a shared file cursor), so no error can come back here beyond a nil context misuse.
	group.Wait()

	var census Integrity_census
	census.Total_slots = int(journal_format.NUM_ENTRIES)
	for _, r := range reports {
		if r.Status == Slot_ok {
			census.Ok_slots++
		} else {
			census.Bad_slots = append(census.Bad_slots, r)
		}
	}
	return nil, census
}

func classify_slot_error(ret tools.Ret) Slot_integrity_status {
	var msg = ret.Get_errmsg()
	switch {
	case strings.Contains(msg, "bad magic"):
		return Slot_bad_magic
	case strings.Contains(msg, "bad version"):
		return Slot_bad_version
	case strings.Contains(msg, "crc mismatch"):
		return Slot_bad_crc
	default:
		return Slot_unreadable
	}
}
