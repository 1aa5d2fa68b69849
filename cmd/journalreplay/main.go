// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* command line replay and integrity tool for the metadata journal, standing
in for test/driver.go's hand run bring_up/bring_down main against a live
slookup_i, here there's no in-core structure to bring up, just a device
to read. */

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	journal_format "github.com/nixomose/hurdjournal/journal_lib/journal_format"
	journal_src "github.com/nixomose/hurdjournal/journal_lib/journal_src"
	"github.com/nixomose/nixomosegotools/tools"
)

func main() {

	var device_path = flag.String("device", journal_format.DEFAULT_DEVICE_PATH, "path to the journal device or file")
	var want_directio = flag.Bool("directio", false, "open the device with O_DIRECT")
	var output_mode = flag.String("output", "text", "output mode: text or json")
	var mode = flag.String("mode", "replay", "replay or scan")
	var verbose = flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	var level = tools.INFO
	if *verbose {
		level = tools.DEBUG
	}
	var log = tools.New_Nixomosetools_logger(level)

	var replayer = journal_src.New_journal_replayer(log, *want_directio)

	switch *mode {
	case "replay":
		run_replay(log, replayer, *device_path, *output_mode)
	case "scan":
		run_scan(log, replayer, *device_path, *output_mode)
	default:
		fmt.Fprintln(os.Stderr, "unknown -mode ", *mode, ", expected replay or scan")
		os.Exit(2)
	}
}

func run_replay(log *tools.Nixomosetools_logger, replayer *journal_src.Journal_replayer, device_path string, output_mode string) {
	var ret, events = replayer.Replay(device_path)
	if ret != nil {
		fmt.Fprintln(os.Stderr, "replay failed: ", ret.Get_errmsg())
		os.Exit(1)
	}

	if output_mode == "json" {
		var enc = json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fmt.Fprintln(os.Stderr, "unable to encode events: ", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("replayed %d events from %s\n", len(events), device_path)
	for _, e := range events {
		fmt.Printf("tx_id=%d ts_ms=%d action=%q ino=%d name=%q\n",
			e.M_tx_id, e.M_timestamp_ms, e.M_action, e.M_ino, e.M_name)
	}
}

func run_scan(log *tools.Nixomosetools_logger, replayer *journal_src.Journal_replayer, device_path string, output_mode string) {
	var ret, census = replayer.ScanIntegrity(device_path)
	if ret != nil {
		fmt.Fprintln(os.Stderr, "scan failed: ", ret.Get_errmsg())
		os.Exit(1)
	}

	if output_mode == "json" {
		var enc = json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(census); err != nil {
			fmt.Fprintln(os.Stderr, "unable to encode census: ", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("scanned %d slots, %d ok, %d bad\n", census.Total_slots, census.Ok_slots, len(census.Bad_slots))
	for _, bad := range census.Bad_slots {
		fmt.Printf("slot %d: status=%d\n", bad.Index, bad.Status)
	}
	if len(census.Bad_slots) > 0 {
		os.Exit(1)
	}
}
