// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the device handle wraps the single fd the raw writer and replayer talk to.
following test/driver.go's device_directio toggle, we try to open with
O_DIRECT via ncw/directio first (this only works against a real block
device or a filesystem that supports it, aligned to PHYSICAL_BLOCK_SIZE,
which our ENTRY_SIZE/RESERVED of 4096 bytes each satisfy) and fall back to
a plain buffered open, so tests against a tmpfs backed regular file still
work the same way the memory_store fallback let slookup_i run without a
real block device. */

// package name must match directory name
package journal_src

import (
	"os"

	"github.com/ncw/directio"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sys/unix"
)

type journal_device_handle struct {
	log      *tools.Nixomosetools_logger
	path     string
	want_directio bool
	directio bool // whether the open that succeeded actually used O_DIRECT
	file     *os.File
}

func new_journal_device_handle(log *tools.Nixomosetools_logger, path string, want_directio bool) *journal_device_handle {
	var d journal_device_handle
	d.log = log
	d.path = path
	d.want_directio = want_directio
	return &d
}

func (this *journal_device_handle) is_open() bool {
	return this.file != nil
}

// open lazily opens the backing device for read/write, creating it if missing. it's called with
// the writer lock held, so there's no concurrent open race to worry about.
func (this *journal_device_handle) open() tools.Ret {

	if this.want_directio {
		var f, err = directio.OpenFile(this.path, os.O_RDWR|os.O_CREATE, 0644)
		if err == nil {
			this.file = f
			this.directio = true
			return nil
		}
		this.log.Debug("directio open of ", this.path, " failed, falling back to buffered: ", err)
	}

	var f, err = os.OpenFile(this.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return tools.Error(this.log, "unable to open journal device ", this.path, ": ", err)
	}
	this.file = f
	this.directio = false
	return nil
}

// valid probes whether the currently open fd is still usable, following get_sync_fd's
// fcntl(F_GETFL) staleness check in the original C source.
func (this *journal_device_handle) valid() bool {
	if this.file == nil {
		return false
	}
	var _, err = unix.FcntlInt(this.file.Fd(), unix.F_GETFL, 0)
	return err == nil
}

// ensure_open reopens the device if it's never been opened, or if the previously opened fd has
// gone stale.
func (this *journal_device_handle) ensure_open() tools.Ret {
	if this.is_open() && this.valid() {
		return nil
	}
	if this.is_open() {
		this.file.Close()
		this.file = nil
	}
	return this.open()
}

func (this *journal_device_handle) pread(buf []byte, offset int64) (tools.Ret, int) {
	var n, err = unix.Pread(int(this.file.Fd()), buf, offset)
	if err != nil {
		return tools.Error(this.log, "pread at offset ", offset, " failed: ", err), n
	}
	return nil, n
}

func (this *journal_device_handle) pwrite(buf []byte, offset int64) (tools.Ret, int) {
	var n, err = unix.Pwrite(int(this.file.Fd()), buf, offset)
	if err != nil {
		return tools.Error(this.log, "pwrite at offset ", offset, " failed: ", err), n
	}
	return nil, n
}

func (this *journal_device_handle) fsync() tools.Ret {
	if err := unix.Fsync(int(this.file.Fd())); err != nil {
		return tools.Error(this.log, "fsync failed: ", err)
	}
	return nil
}

func (this *journal_device_handle) close() tools.Ret {
	if this.file == nil {
		return nil
	}
	var err = this.file.Close()
	this.file = nil
	if err != nil {
		return tools.Error(this.log, "close failed: ", err)
	}
	return nil
}
