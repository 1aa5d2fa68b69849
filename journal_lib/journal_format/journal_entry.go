// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* an entry is what actually lives in one ENTRY_SIZE slot: magic, version, the
payload, zero padding, and a trailing crc32 that covers only the payload
bytes, never the magic/version/padding. that scope choice is deliberate,
see the crc scope note in the design doc, an implementation that hashes
anything else produces an incompatible on disk format. */

package journal_format

import (
	"github.com/nixomose/nixomosegotools/tools"
)

// Serialize_entry builds a full ENTRY_SIZE byte slot for payload: magic, version, the
// serialized payload, zero padding, and crc32 of the payload bytes alone.
func Serialize_entry(log *tools.Nixomosetools_logger, payload *Journal_payload) (tools.Ret, *[]byte) {

	var ret tools.Ret
	var payload_bytes *[]byte
	if ret, payload_bytes = payload.Serialize(log); ret != nil {
		return ret, nil
	}

	var slot = make([]byte, ENTRY_SIZE)
	put_uint32(slot[0:4], MAGIC)
	put_uint32(slot[4:8], VERSION)
	copy(slot[8:8+payload_size_on_disk], *payload_bytes)
	// slot[8+payload_size_on_disk : len(slot)-4] is already zero (the padding).

	var crc = Crc32(*payload_bytes)
	put_uint32(slot[len(slot)-4:], crc)

	return nil, &slot
}

// Deserialize_entry validates and extracts the payload from a full ENTRY_SIZE byte slot.
func Deserialize_entry(log *tools.Nixomosetools_logger, slot []byte) (tools.Ret, *Journal_payload) {

	if uint64(len(slot)) != ENTRY_SIZE {
		return tools.Error(log, "journal entry short read: got ", len(slot), " expected ", ENTRY_SIZE), nil
	}

	var magic = get_uint32(slot[0:4])
	if magic != MAGIC {
		return tools.Error(log, "journal entry bad magic: ", magic), nil
	}
	var version = get_uint32(slot[4:8])
	if version != VERSION {
		return tools.Error(log, "journal entry bad version: ", version), nil
	}

	var payload_bytes = slot[8 : 8+payload_size_on_disk]
	var stored_crc = get_uint32(slot[len(slot)-4:])
	var actual_crc = Crc32(payload_bytes)
	if actual_crc != stored_crc {
		return tools.Error(log, "journal entry crc mismatch: expected ", stored_crc, " got ", actual_crc), nil
	}

	var payload Journal_payload
	var ret = payload.Deserialize(log, payload_bytes)
	if ret != nil {
		return ret, nil
	}
	return nil, &payload
}

func put_uint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func get_uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func init() {
	// sanity failure if the framing arithmetic doesn't add up to exactly one slot.
	var framed = 4 + 4 + payload_size_on_disk + entry_padding_size + 4
	if uint64(framed) != ENTRY_SIZE {
		panic("journal_format: entry framing does not add up to ENTRY_SIZE")
	}
	if entry_padding_size < 0 {
		panic("journal_format: payload does not fit in ENTRY_SIZE")
	}
}
