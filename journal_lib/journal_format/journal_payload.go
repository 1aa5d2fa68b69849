// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the payload is the fixed size metadata event record carried inside every
entry slot. unlike the header, it has NUL terminated text fields, so we
serialize it field by field instead of handing the whole struct to
encoding/binary, the way stree_v/slookup_i never had to because none of
its on disk structs carry embedded strings. */

package journal_format

import (
	"bytes"
	"encoding/binary"

	"github.com/nixomose/nixomosegotools/tools"
)

type Journal_payload struct {
	M_tx_id        uint64
	M_timestamp_ms uint64

	M_parent_ino     uint32
	M_src_parent_ino uint32
	M_dst_parent_ino uint32
	M_ino            uint32

	M_st_mode   uint32
	M_st_size   uint64
	M_st_nlink  uint64
	M_st_blocks uint64
	M_mtime     int64
	M_ctime     int64

	M_uid      uint32
	M_gid      uint32
	M_has_mode bool
	M_has_size bool
	M_has_uid  bool
	M_has_gid  bool

	M_action   string
	M_name     string
	M_old_name string
	M_new_name string
	M_target   string
	M_extra    string
}

// Serialized_size returns the fixed on-disk size of a payload, not including the entry framing
// (magic, version, padding, crc32) that wraps it inside a slot.
func Serialized_size() int {
	return payload_size_on_disk
}

func write_bool(bb *bytes.Buffer, b bool) {
	if b {
		bb.WriteByte(1)
	} else {
		bb.WriteByte(0)
	}
}

func write_fixed_string(log *tools.Nixomosetools_logger, bb *bytes.Buffer, s string) tools.Ret {
	/* NUL terminated, NUL padded, truncated at MAX_FIELD_LEN-1 so there's always room for the
	terminator. this is the go equivalent of the strncpy + explicit NUL the original C source does. */

	var b = []byte(s)
	if len(b) > MAX_FIELD_LEN-1 {
		b = b[0 : MAX_FIELD_LEN-1]
	}
	var fixed = make([]byte, MAX_FIELD_LEN)
	copy(fixed, b)
	// fixed is already zero (NUL) filled past len(b), including the terminator.
	var n, err = bb.Write(fixed)
	if err != nil || n != MAX_FIELD_LEN {
		return tools.Error(log, "unable to write fixed length field: ", err)
	}
	return nil
}

func read_fixed_string(bs []byte) string {
	var nul = bytes.IndexByte(bs, 0)
	if nul == -1 {
		return string(bs)
	}
	return string(bs[0:nul])
}

// Serialize produces the exact Serialized_size() byte encoding of this payload, little endian.
func (this *Journal_payload) Serialize(log *tools.Nixomosetools_logger) (tools.Ret, *[]byte) {

	var bb = bytes.NewBuffer(make([]byte, 0, payload_size_on_disk))

	var numeric_err error
	numeric_err = binary.Write(bb, binary.LittleEndian, this.M_tx_id)
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_timestamp_ms))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_parent_ino))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_src_parent_ino))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_dst_parent_ino))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_ino))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_st_mode))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_st_size))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_st_nlink))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_st_blocks))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_mtime))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_ctime))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_uid))
	numeric_err = combine_err(numeric_err, binary.Write(bb, binary.LittleEndian, this.M_gid))
	if numeric_err != nil {
		return tools.Error(log, "unable to serialize journal payload numeric fields: ", numeric_err), nil
	}

	write_bool(bb, this.M_has_mode)
	write_bool(bb, this.M_has_size)
	write_bool(bb, this.M_has_uid)
	write_bool(bb, this.M_has_gid)

	var ret tools.Ret
	if ret = write_fixed_string(log, bb, this.M_action); ret != nil {
		return ret, nil
	}
	if ret = write_fixed_string(log, bb, this.M_name); ret != nil {
		return ret, nil
	}
	if ret = write_fixed_string(log, bb, this.M_old_name); ret != nil {
		return ret, nil
	}
	if ret = write_fixed_string(log, bb, this.M_new_name); ret != nil {
		return ret, nil
	}
	if ret = write_fixed_string(log, bb, this.M_target); ret != nil {
		return ret, nil
	}
	if ret = write_fixed_string(log, bb, this.M_extra); ret != nil {
		return ret, nil
	}

	var out = bb.Bytes()
	if len(out) != payload_size_on_disk {
		return tools.Error(log, "journal payload serialized to unexpected size: ", len(out),
			" expected: ", payload_size_on_disk), nil
	}
	return nil, &out
}

func combine_err(first error, second error) error {
	if first != nil {
		return first
	}
	return second
}

// Deserialize fills this in from the exact Serialized_size() byte encoding produced by Serialize.
func (this *Journal_payload) Deserialize(log *tools.Nixomosetools_logger, bs []byte) tools.Ret {

	if len(bs) != payload_size_on_disk {
		return tools.Error(log, "journal payload wrong size for deserialize: got ", len(bs),
			" expected ", payload_size_on_disk)
	}

	var r = bytes.NewReader(bs)
	var err error
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_tx_id))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_timestamp_ms))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_parent_ino))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_src_parent_ino))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_dst_parent_ino))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_ino))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_st_mode))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_st_size))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_st_nlink))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_st_blocks))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_mtime))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_ctime))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_uid))
	err = combine_err(err, binary.Read(r, binary.LittleEndian, &this.M_gid))
	if err != nil {
		return tools.Error(log, "unable to deserialize journal payload numeric fields: ", err)
	}

	var flags [4]byte
	if _, err = r.Read(flags[:]); err != nil {
		return tools.Error(log, "unable to deserialize journal payload flags: ", err)
	}
	this.M_has_mode = flags[0] != 0
	this.M_has_size = flags[1] != 0
	this.M_has_uid = flags[2] != 0
	this.M_has_gid = flags[3] != 0

	var field = make([]byte, MAX_FIELD_LEN)
	var read_field = func() (string, tools.Ret) {
		if _, ferr := r.Read(field); ferr != nil {
			return "", tools.Error(log, "unable to deserialize journal payload text field: ", ferr)
		}
		return read_fixed_string(field), nil
	}

	var ret tools.Ret
	if this.M_action, ret = read_field(); ret != nil {
		return ret
	}
	if this.M_name, ret = read_field(); ret != nil {
		return ret
	}
	if this.M_old_name, ret = read_field(); ret != nil {
		return ret
	}
	if this.M_new_name, ret = read_field(); ret != nil {
		return ret
	}
	if this.M_target, ret = read_field(); ret != nil {
		return ret
	}
	if this.M_extra, ret = read_field(); ret != nil {
		return ret
	}

	return nil
}
