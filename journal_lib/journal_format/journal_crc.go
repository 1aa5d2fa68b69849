// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_format

import "hash/crc32"

// Crc32 is the standard IEEE 802.3 polynomial crc32, the same table used for both the header
// and the entry payload. any conformant crc32/ieee implementation interoperates with this format.
func Crc32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
