// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package randsrc

import "testing"

func TestDeterminism(t *testing.T) {
	a := New(1337)
	b := New(1337)
	for i := 0; i < 1000; i++ {
		if a.Below(1000) != b.Below(1000) {
			t.Fatalf("draw %d diverged", i)
		}
	}
}

func TestResume(t *testing.T) {
	a := New(42)
	for i := 0; i < 50; i++ {
		a.Below(1 << 20)
	}
	want := a.Below(1 << 20)

	b := Resume(42, 50)
	got := b.Below(1 << 20)
	if got != want {
		t.Fatalf("resumed draw = %d, want %d", got, want)
	}
}

func TestBetweenInclusive(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		v := s.Between(3, 5)
		if v < 3 || v > 5 {
			t.Fatalf("Between(3,5) = %d, out of range", v)
		}
	}
}
