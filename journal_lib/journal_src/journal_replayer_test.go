// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_src

import (
	"os"
	"path/filepath"
	"testing"

	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
)

func Test_replay_sorts_by_timestamp_then_tx_id(t *testing.T) {
	var device_path = filepath.Join(t.TempDir(), "journal.dat")
	var log = test_logger()
	var writer = New_raw_writer(log, device_path, false)
	defer writer.Close()

	// deliberately written out of tx_id order within the same timestamp, to make sure the
	// replayer's tie break, not write order, decides the result.
	var payloads = []journal_format.Journal_payload{
		{M_tx_id: 5, M_timestamp_ms: 100, M_ino: 1, M_action: "create", M_name: "b"},
		{M_tx_id: 2, M_timestamp_ms: 100, M_ino: 1, M_action: "create", M_name: "a"},
		{M_tx_id: 9, M_timestamp_ms: 50, M_ino: 1, M_action: "create", M_name: "c"},
	}
	if ret := writer.Write_batch(payloads); ret != nil {
		t.Fatalf("write_batch failed: %v", ret.Get_errmsg())
	}

	var replayer = New_journal_replayer(log, false)
	var ret, events = replayer.Replay(device_path)
	if ret != nil {
		t.Fatalf("replay failed: %v", ret.Get_errmsg())
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	var want_order = []uint64{9, 2, 5}
	for i, tx_id := range want_order {
		if events[i].M_tx_id != tx_id {
			t.Errorf("event %d has tx_id %d, want %d", i, events[i].M_tx_id, tx_id)
		}
	}
}

func Test_replay_empty_device_returns_no_events(t *testing.T) {
	var device_path = filepath.Join(t.TempDir(), "journal.dat")
	var log = test_logger()

	// hand write a freshly initialized header (start==end==0, meaning empty) at full device
	// size, without going through the writer, to exercise replay against a brand new device.
	var header = journal_format.New_journal_header(0, 0)
	var ret, header_bytes = header.Serialize(log)
	if ret != nil {
		t.Fatalf("serialize header failed: %v", ret.Get_errmsg())
	}
	var file, err = os.Create(device_path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err = file.Write(*header_bytes); err != nil {
		t.Fatalf("write header failed: %v", err)
	}
	if err = file.Truncate(int64(journal_format.DEVICE_SIZE)); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	file.Close()

	var replayer = New_journal_replayer(log, false)
	var events []journal_format.Journal_payload
	if ret, events = replayer.Replay(device_path); ret != nil {
		t.Fatalf("replay failed: %v", ret.Get_errmsg())
	}
	if len(events) != 0 {
		t.Fatalf("got %d events from an untouched device, want 0", len(events))
	}
}

func Test_scan_integrity_reports_corrupted_slot(t *testing.T) {
	var device_path = filepath.Join(t.TempDir(), "journal.dat")
	var log = test_logger()
	var writer = New_raw_writer(log, device_path, false)

	var payloads = []journal_format.Journal_payload{
		{M_tx_id: 1, M_timestamp_ms: 1, M_ino: 1, M_action: "create", M_name: "a"},
		{M_tx_id: 2, M_timestamp_ms: 2, M_ino: 1, M_action: "create", M_name: "b"},
	}
	if ret := writer.Write_batch(payloads); ret != nil {
		t.Fatalf("write_batch failed: %v", ret.Get_errmsg())
	}
	writer.Close()

	var handle = new_journal_device_handle(log, device_path, false)
	if ret := handle.open(); ret != nil {
		t.Fatalf("open failed: %v", ret.Get_errmsg())
	}
	var corrupt_slot = make([]byte, journal_format.ENTRY_SIZE)
	if ret, _ := handle.pread(corrupt_slot, index_to_offset(0)); ret != nil {
		t.Fatalf("pread failed: %v", ret.Get_errmsg())
	}
	corrupt_slot[100] ^= 0xff
	if ret, _ := handle.pwrite(corrupt_slot, index_to_offset(0)); ret != nil {
		t.Fatalf("pwrite failed: %v", ret.Get_errmsg())
	}
	handle.close()

	var replayer = New_journal_replayer(log, false)
	var ret, census = replayer.ScanIntegrity(device_path)
	if ret != nil {
		t.Fatalf("scan failed: %v", ret.Get_errmsg())
	}
	if census.Total_slots != int(journal_format.NUM_ENTRIES) {
		t.Fatalf("total_slots = %d, want %d", census.Total_slots, journal_format.NUM_ENTRIES)
	}
	// every slot is scanned: slot 0 fails its crc, slot 1 is intact, and the never written
	// slots 2..NUM_ENTRIES-1 lie past the end of the file and read back short.
	if len(census.Bad_slots) != int(journal_format.NUM_ENTRIES)-1 {
		t.Fatalf("bad_slots = %d, want %d", len(census.Bad_slots), int(journal_format.NUM_ENTRIES)-1)
	}
	if census.Bad_slots[0].Index != 0 || census.Bad_slots[0].Status != Slot_bad_crc {
		t.Fatalf("unexpected bad slot report: %+v", census.Bad_slots[0])
	}
}
