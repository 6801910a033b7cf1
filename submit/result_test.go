// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package submit

import "testing"

func TestCommitmentLevelAtLeast(t *testing.T) {
	cases := []struct {
		level, target CommitmentLevel
		want          bool
	}{
		{CommitmentProcessed, CommitmentProcessed, true},
		{CommitmentProcessed, CommitmentConfirmed, false},
		{CommitmentConfirmed, CommitmentProcessed, true},
		{CommitmentConfirmed, CommitmentFinalized, false},
		{CommitmentFinalized, CommitmentFinalized, true},
		{CommitmentFinalized, CommitmentProcessed, true},
	}
	for _, c := range cases {
		if got := c.level.atLeast(c.target); got != c.want {
			t.Errorf("CommitmentLevel(%d).atLeast(%d) = %v, want %v", c.level, c.target, got, c.want)
		}
	}
}

func TestParseCommitmentLevel(t *testing.T) {
	cases := []struct {
		in   string
		want CommitmentLevel
		ok   bool
	}{
		{"processed", CommitmentProcessed, true},
		{"confirmed", CommitmentConfirmed, true},
		{"finalized", CommitmentFinalized, true},
		{"", 0, false},
		{"bogus", 0, false},
	}
	for _, c := range cases {
		got, ok := parseCommitmentLevel(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("parseCommitmentLevel(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
