// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* on-device layout constants for the metadata journal. these define a fixed
binary format: a 4096 byte reserved header region followed by fixed size
4096 byte entry slots, arranged as a circular log. the numbers here are
part of the on-disk format, changing them makes existing journals
unreadable. */

// package name must match directory name
package journal_format

import "time"

const (
	DEVICE_SIZE  uint64 = 8 * 1024 * 1024 // total size of the raw backing device/file
	RESERVED     uint64 = 4096            // bytes reserved at the front of the device for the header
	ENTRY_SIZE   uint64 = 4096            // bytes per entry slot, including magic/version/crc/padding
	NUM_ENTRIES  uint64 = (DEVICE_SIZE - RESERVED) / ENTRY_SIZE
	MAGIC        uint32 = 0x4A4E4C30 // "JNL0"
	VERSION      uint32 = 1
	MAX_FIELD_LEN int   = 256 // max bytes (including the trailing NUL) for a text field

	QUEUE_CAPACITY int           = 4096
	FLUSH_DEADLINE time.Duration = 500 * time.Millisecond

	DEFAULT_DEVICE_PATH string = "/tmp/journal-pipe"
)

// header_size_on_disk is the serialized size of Journal_header: magic + version + start_index + end_index + crc32.
const header_size_on_disk = 4 + 4 + 8 + 8 + 4

// payload_size_on_disk is the serialized size of Journal_payload's fixed fields, not including the entry's own
// magic/version/crc32/padding.
const payload_size_on_disk = 8 /* tx_id */ + 8 /* timestamp_ms */ +
	4 /* parent_ino */ + 4 /* src_parent_ino */ + 4 /* dst_parent_ino */ + 4 /* ino */ +
	4 /* st_mode */ + 8 /* st_size */ + 8 /* st_nlink */ + 8 /* st_blocks */ +
	8 /* mtime */ + 8 /* ctime */ +
	4 /* uid */ + 4 /* gid */ + 1 /* has_mode */ + 1 /* has_size */ + 1 /* has_uid */ + 1 /* has_gid */ +
	6*MAX_FIELD_LEN /* action, name, old_name, new_name, target, extra */

// entry_padding_size is the number of zero bytes between the payload and the entry's trailing crc32.
const entry_padding_size = int(ENTRY_SIZE) - 4 - 4 - payload_size_on_disk - 4
