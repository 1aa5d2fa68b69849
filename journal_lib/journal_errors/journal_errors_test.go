// SPDX-License-Identifier: LGPL-2.1
// Copyright (C) 2025 nixomose

package journal_errors

import "testing"

func Test_tag_round_trips_through_kind_of(t *testing.T) {
	var kinds = []Kind{Kind_transient_io, Kind_format_invalid, Kind_slot_corruption,
		Kind_payload_invalid, Kind_queue_overflow, Kind_not_ready, Kind_shutting_down}

	for _, k := range kinds {
		var message = Tag(k) + "something went wrong"
		if got := KindOf(message); got != k {
			t.Errorf("KindOf(%q) = %v, want %v", message, got, k)
		}
	}
}

func Test_kind_of_untagged_message_is_none(t *testing.T) {
	if got := KindOf("some plain error with no tag"); got != Kind_none {
		t.Errorf("KindOf(untagged) = %v, want Kind_none", got)
	}
}
