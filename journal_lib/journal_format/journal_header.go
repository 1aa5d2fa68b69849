// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* this is the header for the journal, stored at offset zero of the backing
device. it is packed and CRC protected, the same way slookup_i's block zero
superblock is, except the fields are indices into the circular log instead
of geometry for a lookup table. */

package journal_format

import (
	"bytes"
	"encoding/binary"

	"github.com/nixomose/nixomosegotools/tools"
)

type Journal_header struct {
	M_magic       uint32
	M_version     uint32
	M_start_index uint64 // index of the oldest live entry, valid when start != end
	M_end_index   uint64 // index one past the newest live entry
	M_crc32       uint32 // crc32 of the header with this field zeroed
}

func New_journal_header(start_index uint64, end_index uint64) Journal_header {
	var h Journal_header
	h.M_magic = MAGIC
	h.M_version = VERSION
	h.M_start_index = start_index
	h.M_end_index = end_index
	return h
}

// Serialize turns the header into its on-disk byte representation, little endian, with
// m_crc32 computed over the rest of the struct (with the crc field itself zeroed).
func (this *Journal_header) Serialize(log *tools.Nixomosetools_logger) (tools.Ret, *[]byte) {

	var withcrc = *this
	withcrc.M_crc32 = 0
	withcrc.M_crc32 = crc32_of_header(&withcrc)

	var bb = bytes.NewBuffer(make([]byte, 0, header_size_on_disk))
	if err := binary.Write(bb, binary.LittleEndian, &withcrc); err != nil {
		return tools.Error(log, "unable to serialize journal header: ", err), nil
	}

	var out = bb.Bytes()
	return nil, &out
}

// Deserialize reads a header from bs and validates its crc, magic and version, and its indices
// against num_entries. it does not mutate this on failure.
func (this *Journal_header) Deserialize(log *tools.Nixomosetools_logger, bs *[]byte, num_entries uint64) tools.Ret {

	if len(*bs) < header_size_on_disk {
		return tools.Error(log, "journal header short read, got ", len(*bs), " bytes, need ", header_size_on_disk)
	}

	var h Journal_header
	var bb = bytes.NewReader((*bs)[0:header_size_on_disk])
	if err := binary.Read(bb, binary.LittleEndian, &h); err != nil {
		return tools.Error(log, "unable to deserialize journal header: ", err)
	}

	var expected_crc = h.M_crc32
	h.M_crc32 = 0
	var actual_crc = crc32_of_header(&h)
	if actual_crc != expected_crc {
		return tools.Error(log, "journal header crc mismatch, expected ", expected_crc, " got ", actual_crc)
	}
	if h.M_magic != MAGIC {
		return tools.Error(log, "journal header bad magic: ", h.M_magic)
	}
	if h.M_version != VERSION {
		return tools.Error(log, "journal header bad version: ", h.M_version)
	}
	if h.M_start_index >= num_entries || h.M_end_index >= num_entries {
		return tools.Error(log, "journal header indices out of range: start=", h.M_start_index,
			" end=", h.M_end_index, " num_entries=", num_entries)
	}

	h.M_crc32 = expected_crc
	*this = h
	return nil
}

func crc32_of_header(h *Journal_header) uint32 {
	var bb = bytes.NewBuffer(make([]byte, 0, header_size_on_disk))
	// crc32 covers the header with m_crc32 already zeroed by the caller.
	binary.Write(bb, binary.LittleEndian, h)
	return Crc32(bb.Bytes())
}
