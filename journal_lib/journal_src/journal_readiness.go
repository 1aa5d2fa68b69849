// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the readiness monitor is a background actor that polls the device the way
the original journal_flusher_thread polls journal_device_ready, except here
it's the thing that actually sets that flag instead of just reading it. it
opens for read/write, fsyncs, and reads at least one byte from offset zero;
all three have to succeed for the device to count as ready. */

// package name must match directory name
package journal_src

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nixomose/nixomosegotools/tools"
)

const readiness_poll_interval_ready time.Duration = 1000 * time.Millisecond
const readiness_poll_interval_not_ready time.Duration = 100 * time.Millisecond

type journal_readiness_monitor struct {
	log          *tools.Nixomosetools_logger
	device_path  string
	want_directio bool

	device_ready *uint32 // atomic bool: 0 not ready, 1 ready
	on_ready     func()  // called (with no lock held) the moment the device transitions to ready
}

func new_journal_readiness_monitor(log *tools.Nixomosetools_logger, device_path string, want_directio bool,
	device_ready *uint32, on_ready func()) *journal_readiness_monitor {
	var m journal_readiness_monitor
	m.log = log
	m.device_path = device_path
	m.want_directio = want_directio
	m.device_ready = device_ready
	m.on_ready = on_ready
	return &m
}

func (this *journal_readiness_monitor) probe_once() bool {
	var handle = new_journal_device_handle(this.log, this.device_path, this.want_directio)
	defer handle.close()

	if ret := handle.open(); ret != nil {
		return false
	}
	if ret := handle.fsync(); ret != nil {
		return false
	}
	var buf = make([]byte, 1)
	var ret, n = handle.pread(buf, 0)
	if ret != nil || n < 1 {
		return false
	}
	return true
}

// run polls until ctx is cancelled, flipping device_ready and firing on_ready on the 0->1
// transition, per the 4.3 readiness monitor algorithm.
func (this *journal_readiness_monitor) run(ctx context.Context) error {
	for {
		var was_ready = atomic.LoadUint32(this.device_ready) == 1
		var is_ready = this.probe_once()

		if is_ready {
			atomic.StoreUint32(this.device_ready, 1)
		} else {
			atomic.StoreUint32(this.device_ready, 0)
		}

		if is_ready && !was_ready {
			this.on_ready()
		}

		var interval = readiness_poll_interval_not_ready
		if is_ready {
			interval = readiness_poll_interval_ready
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
