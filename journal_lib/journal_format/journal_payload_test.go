// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_format

import (
	"strings"
	"testing"
)

func Test_payload_round_trip(t *testing.T) {
	var log = test_logger()
	var p = Journal_payload{
		M_tx_id:        42,
		M_timestamp_ms: 1234567890,
		M_parent_ino:   7,
		M_ino:          9,
		M_st_mode:      0100644,
		M_st_size:      4096,
		M_st_nlink:     1,
		M_mtime:        1700000000,
		M_ctime:        1700000000,
		M_uid:          1000,
		M_gid:          1000,
		M_has_uid:      true,
		M_has_gid:      true,
		M_action:       "create",
		M_name:         "foo.txt",
	}

	var ret, buf = p.Serialize(log)
	if ret != nil {
		t.Fatalf("serialize failed: %v", ret.Get_errmsg())
	}
	if len(*buf) != Serialized_size() {
		t.Fatalf("serialized size = %d, want %d", len(*buf), Serialized_size())
	}

	var got Journal_payload
	if ret = got.Deserialize(log, *buf); ret != nil {
		t.Fatalf("deserialize failed: %v", ret.Get_errmsg())
	}

	if got != p {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, p)
	}
}

func Test_payload_truncates_long_field(t *testing.T) {
	var log = test_logger()
	var long_name = strings.Repeat("x", MAX_FIELD_LEN*2)
	var p = Journal_payload{M_action: "create", M_name: long_name}

	var ret, buf = p.Serialize(log)
	if ret != nil {
		t.Fatalf("serialize failed: %v", ret.Get_errmsg())
	}

	var got Journal_payload
	if ret = got.Deserialize(log, *buf); ret != nil {
		t.Fatalf("deserialize failed: %v", ret.Get_errmsg())
	}

	if len(got.M_name) != MAX_FIELD_LEN-1 {
		t.Fatalf("truncated name length = %d, want %d", len(got.M_name), MAX_FIELD_LEN-1)
	}
	if got.M_name != long_name[0:MAX_FIELD_LEN-1] {
		t.Fatalf("truncated name content mismatch")
	}
}

func Test_payload_deserialize_rejects_wrong_size(t *testing.T) {
	var log = test_logger()
	var got Journal_payload
	if ret := got.Deserialize(log, make([]byte, Serialized_size()-1)); ret == nil {
		t.Fatalf("expected deserialize to reject wrong sized buffer")
	}
}
