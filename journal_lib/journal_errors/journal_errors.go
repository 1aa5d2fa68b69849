// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

/* the failure taxonomy for the journal. slookup_i tells kinds of failures
apart with a per-package error code compared against ret.Get_errcode(),
but that constructor isn't part of the tools.Ret surface we can see used
anywhere in the retrieved sources, so instead of guessing at an
unobserved API we tag messages with a short, greppable, bracketed
prefix and classify off of that. it's uglier than an error code, but it
doesn't invent an api. */

// Package journal_errors name must match directory name
package journal_errors

import "strings"

type Kind int

const (
	Kind_none Kind = iota
	Kind_transient_io
	Kind_format_invalid
	Kind_slot_corruption
	Kind_payload_invalid
	Kind_queue_overflow
	Kind_not_ready
	Kind_shutting_down
)

func (k Kind) String() string {
	switch k {
	case Kind_transient_io:
		return "transient_io"
	case Kind_format_invalid:
		return "format_invalid"
	case Kind_slot_corruption:
		return "slot_corruption"
	case Kind_payload_invalid:
		return "payload_invalid"
	case Kind_queue_overflow:
		return "queue_overflow"
	case Kind_not_ready:
		return "not_ready"
	case Kind_shutting_down:
		return "shutting_down"
	default:
		return "none"
	}
}

const tag_prefix = "["

func Tag(k Kind) string {
	return tag_prefix + k.String() + "] "
}

// KindOf recovers the Kind from a message previously built with Tag, defaulting to Kind_none
// when the message carries no recognized tag (e.g. it didn't originate in this package).
func KindOf(message string) Kind {
	for _, k := range []Kind{Kind_transient_io, Kind_format_invalid, Kind_slot_corruption,
		Kind_payload_invalid, Kind_queue_overflow, Kind_not_ready, Kind_shutting_down} {
		if strings.HasPrefix(message, Tag(k)) {
			return k
		}
	}
	return Kind_none
}
