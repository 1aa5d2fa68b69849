// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_format

import "testing"

func Test_entry_round_trip(t *testing.T) {
	var log = test_logger()
	var p = Journal_payload{M_tx_id: 1, M_timestamp_ms: 100, M_ino: 5, M_action: "mkdir", M_name: "sub"}

	var ret, slot = Serialize_entry(log, &p)
	if ret != nil {
		t.Fatalf("serialize_entry failed: %v", ret.Get_errmsg())
	}
	if uint64(len(*slot)) != ENTRY_SIZE {
		t.Fatalf("entry size = %d, want %d", len(*slot), ENTRY_SIZE)
	}

	var got *Journal_payload
	if ret, got = Deserialize_entry(log, *slot); ret != nil {
		t.Fatalf("deserialize_entry failed: %v", ret.Get_errmsg())
	}
	if *got != p {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, p)
	}
}

func Test_entry_deserialize_rejects_single_byte_corruption(t *testing.T) {
	var log = test_logger()
	var p = Journal_payload{M_tx_id: 1, M_timestamp_ms: 100, M_ino: 5, M_action: "rmdir", M_name: "sub"}

	var ret, slot = Serialize_entry(log, &p)
	if ret != nil {
		t.Fatalf("serialize_entry failed: %v", ret.Get_errmsg())
	}

	// flip a byte in the middle of the payload region, leaving magic/version untouched.
	(*slot)[100] ^= 0xff

	if ret, _ = Deserialize_entry(log, *slot); ret == nil {
		t.Fatalf("expected deserialize_entry to reject corrupted payload")
	}
}

func Test_entry_deserialize_rejects_short_slot(t *testing.T) {
	var log = test_logger()
	if ret, _ := Deserialize_entry(log, make([]byte, int(ENTRY_SIZE)-1)); ret == nil {
		t.Fatalf("expected deserialize_entry to reject short slot")
	}
}

func Test_entry_deserialize_rejects_bad_magic(t *testing.T) {
	var log = test_logger()
	var p = Journal_payload{M_tx_id: 1, M_timestamp_ms: 100, M_ino: 5, M_action: "create", M_name: "f"}

	var ret, slot = Serialize_entry(log, &p)
	if ret != nil {
		t.Fatalf("serialize_entry failed: %v", ret.Get_errmsg())
	}
	(*slot)[0] ^= 0xff

	if ret, _ = Deserialize_entry(log, *slot); ret == nil {
		t.Fatalf("expected deserialize_entry to reject bad magic")
	}
}
