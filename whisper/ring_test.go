//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package whisper

import "testing"

func TestMod_NonNegative(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{-1, 5, 4},
		{-5, 5, 0},
		{7, 5, 2},
		{0, 5, 0},
		{-11, 5, 4},
	}
	for _, c := range cases {
		if got := mod(c.a, c.b); got != c.want {
			t.Errorf("mod(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSlotOffset_EmptyArchiveAnchorsAtOffset(t *testing.T) {
	a := archive{offset: 100, secondsPerPoint: 60, points: 10, sizeBytes: 120}
	if got := slotOffset(a, 0, 12345); got != 100 {
		t.Errorf("slotOffset on empty archive = %d, want the archive's own offset (100)", got)
	}
}

func TestSlotOffset_Wraps(t *testing.T) {
	a := archive{offset: 100, secondsPerPoint: 60, points: 10, sizeBytes: 120}
	base := uint32(6000)
	// Ten points later (one full lap of 10 slots) wraps back to the base's own slot.
	got := slotOffset(a, base, base+60*10)
	if got != 100 {
		t.Errorf("slotOffset after a full lap = %d, want 100 (back to the base slot)", got)
	}
}

func TestSlotOffset_NegativeDelta(t *testing.T) {
	a := archive{offset: 100, secondsPerPoint: 60, points: 10, sizeBytes: 120}
	base := uint32(6000)
	got := slotOffset(a, base, base-60)
	want := int64(100 + 9*pointSize) // one slot before base, wrapping to the last slot
	if got != want {
		t.Errorf("slotOffset for one step before base = %d, want %d", got, want)
	}
}

func TestReadWriteRange_WrapsAcrossSeam(t *testing.T) {
	c := NewMemoryContainer()
	a := archive{offset: 0, secondsPerPoint: 1, points: 5, sizeBytes: 5 * pointSize}
	if err := c.Truncate(int64(a.sizeBytes)); err != nil {
		t.Fatal(err)
	}

	pts := []Point{{Interval: 1, Value: 10}, {Interval: 2, Value: 20}, {Interval: 3, Value: 30}}
	data := encodePoints(pts)

	// Start two slots before the end, so the write wraps.
	firstOffset := int64(a.offset) + int64(a.sizeBytes) - 2*pointSize
	if err := writeRange(c, a, firstOffset, data); err != nil {
		t.Fatalf("writeRange: %v", err)
	}

	got, err := readRange(c, a, firstOffset, int64(len(data)))
	if err != nil {
		t.Fatalf("readRange: %v", err)
	}
	gotPts := decodePoints(got)
	for i, p := range pts {
		if gotPts[i] != p {
			t.Errorf("point %d = %v, want %v", i, gotPts[i], p)
		}
	}
}
