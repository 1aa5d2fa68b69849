// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* journal_core wires the writer, queue, flusher and readiness monitor into
one thing that can be started and stopped, the same job slookup_i.go's
top level Slookup_i type does for its backing store plus transaction log
pair, just with one more background actor and a replay step tacked on. */

// package name must match directory name
package journal_src

import (
	"context"
	"sync"
	"sync/atomic"

	journal_errors "github.com/nixomose/hurdjournal/journal_lib/journal_errors"
	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_interfaces "github.com/nixomose/hurdjournal/journal_lib/journal_interfaces"
	"github.com/nixomose/nixomosegotools/tools"
	"golang.org/x/sync/errgroup"
)

type Journal_core struct {
	log           *tools.Nixomosetools_logger
	device_path   string
	want_directio bool

	writer *Raw_writer
	queue  *Journal_queue

	dropped_events uint64 // atomic, the queue's drop count; Dropped_events adds the writer's own count
	device_ready   uint32 // atomic bool
	tx_id_counter  uint64 // atomic, monotonic per process

	run_lock sync.Mutex
	cancel   context.CancelFunc
	group    *errgroup.Group
	running  bool

	replayed_once uint32 // atomic bool, Replay_startup only ever does its scan once
}

func New_journal_core(log *tools.Nixomosetools_logger, device_path string, want_directio bool) *Journal_core {
	var c Journal_core
	c.log = log
	c.device_path = device_path
	c.want_directio = want_directio
	c.writer = New_raw_writer(log, device_path, want_directio)
	c.queue = New_journal_queue(log, &c.dropped_events)
	return &c
}

// Next_tx_id hands out a fresh, monotonically increasing transaction id, per SPEC_FULL.md 4.5's
// tx_id stamping step.
func (this *Journal_core) Next_tx_id() uint64 {
	return atomic.AddUint64(&this.tx_id_counter, 1)
}

func (this *Journal_core) Is_device_ready() bool {
	return atomic.LoadUint32(&this.device_ready) == 1
}

func (this *Journal_core) Dropped_events() uint64 {
	return atomic.LoadUint64(&this.dropped_events) + this.writer.Dropped_events()
}

func (this *Journal_core) Enqueue(payload journal_format.Journal_payload) (tools.Ret, bool) {
	return this.queue.Enqueue(payload)
}

func (this *Journal_core) Write_sync(payload journal_format.Journal_payload) tools.Ret {
	return this.writer.Write_sync(payload, this.Is_device_ready())
}

func (this *Journal_core) FlushNow() {
	this.queue.Flush_now()
}

/* Replay_startup runs the 4.4 replay algorithm once against this core's device, before Init
starts accepting new writes. calling it more than once is a caller error caught here instead of
silently re-scanning, since a second replay after writes have already started would race the
writer's own header updates. */
func (this *Journal_core) Replay_startup() (tools.Ret, []journal_format.Journal_payload) {
	if !atomic.CompareAndSwapUint32(&this.replayed_once, 0, 1) {
		return tools.Error(this.log, "journal already replayed once, refusing to replay again"), nil
	}
	var replayer = New_journal_replayer(this.log, this.want_directio)
	return replayer.Replay(this.device_path)
}

// Init starts the readiness monitor and flusher background actors under a cancellable context.
// calling Init twice without an intervening Shutdown is a no-op returning an error.
func (this *Journal_core) Init() tools.Ret {
	this.run_lock.Lock()
	defer this.run_lock.Unlock()

	if this.running {
		return tools.Error(this.log, "journal core already running")
	}

	var ctx, cancel = context.WithCancel(context.Background())
	var group, gctx = errgroup.WithContext(ctx)

	var flusher = new_journal_flusher(this.log, this.queue, this.writer, &this.device_ready)
	var on_ready = func() {
		// wake the flusher the moment the device becomes ready, instead of waiting out its own
		// poll interval.
		this.queue.Flush_now()
	}
	var monitor = new_journal_readiness_monitor(this.log, this.device_path, this.want_directio,
		&this.device_ready, on_ready)

	group.Go(func() error { return monitor.run(gctx) })
	group.Go(func() error { return flusher.run(gctx) })

	this.cancel = cancel
	this.group = group
	this.running = true
	return nil
}

// Shutdown stops accepting new work, drains what's already queued, and waits for the background
// actors to finish. safe to call more than once.
func (this *Journal_core) Shutdown() tools.Ret {
	this.run_lock.Lock()
	defer this.run_lock.Unlock()

	if !this.running {
		return nil
	}

	this.queue.Shutdown()
	this.cancel()
	var err = this.group.Wait()

	this.running = false
	this.cancel = nil
	this.group = nil

	if err != nil {
		return tools.Error(this.log, journal_errors.Tag(journal_errors.Kind_transient_io),
			"journal core background actors returned error on shutdown: ", err)
	}
	return this.writer.Close()
}

// verify Journal_core's writer and queue satisfy the interfaces they're documented against.
var _ journal_interfaces.Raw_writer_interface = &Raw_writer{}
var _ journal_interfaces.Queue_interface = &Journal_queue{}
