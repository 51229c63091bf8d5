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

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestHandle(t *testing.T, archives []ArchiveSpec, xff float64) (*Handle, *clock.Mock) {
	t.Helper()
	c := NewMemoryContainer()
	h, err := CreateContainer(c, archives, &Options{XFilesFactor: &xff})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	h.Clock = mock
	return h, mock
}

// alignToStep rounds t up to the next multiple of step so scenario math
// matches the spec's "t0 aligned to 300" setup.
func alignToStep(t int64, step int64) int64 {
	if t%step == 0 {
		return t
	}
	return t + (step - t%step)
}

func TestScenario_S1_PropagationWritesWhenXFFSatisfied(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 300, Points: 24},
	}, 0.5)

	t0 := alignToStep(mock.Now().Unix(), 300)

	for _, p := range []Point{{Interval: uint32(t0), Value: 10}, {Interval: uint32(t0 + 60), Value: 20}, {Interval: uint32(t0 + 120), Value: 30}} {
		mock.Set(time.Unix(int64(p.Interval), 0))
		if err := h.UpdatePoints([]Point{p}); err != nil {
			t.Fatalf("UpdatePoints(%v): %v", p, err)
		}
	}
	mock.Set(time.Unix(t0+200, 0))

	until := t0 + 179
	res, err := h.Fetch(t0-60, &until)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.TimeInfo.Step != 60 {
		t.Fatalf("step = %d, want 60", res.TimeInfo.Step)
	}
	want := []float64{10, 20, 30}
	for i, w := range want {
		if i >= len(res.Values) || res.Values[i] != w {
			t.Errorf("Values[%d] = %v, want %v (full: %v)", i, valueAt(res.Values, i), w, res.Values)
		}
	}

	views := h.Archives()
	pts, err := views[1].Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	found := false
	for _, p := range pts {
		if int64(p.Interval) == t0 {
			found = true
			if p.Value != 20 {
				t.Errorf("propagated value = %v, want 20", p.Value)
			}
		}
	}
	if !found {
		t.Errorf("expected slot %d to be written in the coarse archive", t0)
	}
}

func valueAt(vs []float64, i int) interface{} {
	if i >= len(vs) {
		return "<missing>"
	}
	return vs[i]
}

func TestScenario_S2_PropagationGatedByXFF(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 300, Points: 24},
	}, 0.9)

	t0 := alignToStep(mock.Now().Unix(), 300)

	for _, p := range []Point{{Interval: uint32(t0), Value: 10}, {Interval: uint32(t0 + 60), Value: 20}, {Interval: uint32(t0 + 120), Value: 30}} {
		mock.Set(time.Unix(int64(p.Interval), 0))
		if err := h.UpdatePoints([]Point{p}); err != nil {
			t.Fatalf("UpdatePoints(%v): %v", p, err)
		}
	}

	views := h.Archives()
	pts, err := views[1].Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	for _, p := range pts {
		if int64(p.Interval) == t0 {
			t.Fatalf("expected slot %d to remain unwritten with xff=0.9 and 3/5 known", t0)
		}
	}
}

func TestScenario_S3_ParseRetentionDef(t *testing.T) {
	if s, p, err := ParseRetentionDef("30s:7d"); err != nil || s != 30 || p != 20160 {
		t.Errorf(`ParseRetentionDef("30s:7d") = (%d, %d, %v), want (30, 20160, nil)`, s, p, err)
	}
	if s, p, err := ParseRetentionDef("1m:6h"); err != nil || s != 60 || p != 360 {
		t.Errorf(`ParseRetentionDef("1m:6h") = (%d, %d, %v), want (60, 360, nil)`, s, p, err)
	}
	if _, _, err := ParseRetentionDef("now"); err == nil {
		t.Errorf(`ParseRetentionDef("now") should fail`)
	}
}

func TestScenario_S4_ValidatorRejectsNonDivisiblePrecision(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{{SecondsPerPoint: 60, Points: 60}, {SecondsPerPoint: 45, Points: 1440}})
	if err == nil {
		t.Fatal("expected rejection")
	}
}

func TestScenario_S5_TimestampBoundary(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	maxRetention := h.Info().MaxRetention
	now := mock.Now().Unix()

	atBoundary := now - int64(maxRetention)
	if err := h.UpdatePoints([]Point{{Interval: uint32(atBoundary), Value: 1}}); !errors.Is(err, TimestampNotCovered) {
		t.Errorf("age == maxRetention: err = %v, want TimestampNotCovered", err)
	}

	justInside := now - int64(maxRetention) + 1
	if err := h.UpdatePoints([]Point{{Interval: uint32(justInside), Value: 1}}); err != nil {
		t.Errorf("age == maxRetention-1 should succeed, got %v", err)
	}
}

func TestScenario_S6_CreateOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/metric.wsp"
	archives := []ArchiveSpec{{SecondsPerPoint: 60, Points: 10}}

	h, err := Create(path, archives, nil)
	if err != nil {
		t.Fatalf("initial Create: %v", err)
	}
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	h.Clock = mock
	if err := h.UpdatePoints([]Point{{Interval: uint32(mock.Now().Unix()), Value: 42}}); err != nil {
		t.Fatalf("UpdatePoints: %v", err)
	}
	h.Close()

	if _, err := Create(path, archives, nil); !errors.Is(err, InvalidConfiguration) {
		t.Errorf("Create over existing path without overwrite: err = %v, want InvalidConfiguration", err)
	}

	fresh, err := Create(path, archives, &Options{Overwrite: true})
	if err != nil {
		t.Fatalf("Create with overwrite=true: %v", err)
	}
	defer fresh.Close()

	views := fresh.Archives()
	pts, err := views[0].Points()
	if err != nil {
		t.Fatalf("Points: %v", err)
	}
	for _, p := range pts {
		if p.Interval != 0 {
			t.Errorf("freshly created archive should be entirely unwritten, found interval %d", p.Interval)
		}
	}
}

func TestProperty_SlotLocality(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	t0 := mock.Now().Unix()

	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 99}}); err != nil {
		t.Fatalf("UpdatePoints: %v", err)
	}

	until := t0 + 600
	res, err := h.Fetch(t0-600, &until)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	quantized := quantize(t0, 60)
	found := false
	for i, v := range res.Values {
		slotTime := res.TimeInfo.From + int64(i)*int64(res.TimeInfo.Step)
		if slotTime == quantized {
			found = true
			if v != 99 {
				t.Errorf("value at t0's slot = %v, want 99", v)
			}
		} else if !math.IsNaN(v) {
			t.Errorf("slot at %d should be unknown, got %v", slotTime, v)
		}
	}
	if !found {
		t.Fatal("t0's slot was not present in the fetched window")
	}
}

func TestProperty_Overwrite(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	t0 := mock.Now().Unix()

	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 2}}); err != nil {
		t.Fatal(err)
	}

	until := t0 + 120
	res, err := h.Fetch(t0-120, &until)
	if err != nil {
		t.Fatal(err)
	}
	quantized := quantize(t0, 60)
	found := false
	for i, v := range res.Values {
		slotTime := res.TimeInfo.From + int64(i)*int64(res.TimeInfo.Step)
		if slotTime == quantized {
			found = true
			if v != 2 {
				t.Errorf("fetch after overwrite = %v, want 2 (no v1 ghost)", v)
			}
		}
	}
	if !found {
		t.Fatal("t0's slot was not present in the fetched window")
	}
}

func TestProperty_IdempotentWrite(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	t0 := mock.Now().Unix()

	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 7}}); err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), h.c.(*MemoryContainer).Bytes()...)

	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 7}}); err != nil {
		t.Fatal(err)
	}
	after := h.c.(*MemoryContainer).Bytes()

	if len(before) != len(after) {
		t.Fatalf("container size changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("byte %d differs after idempotent write", i)
		}
	}
}

func TestProperty_RingWrap(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 1, Points: 10}}, 0.5)
	t0 := mock.Now().Unix()

	if err := h.UpdatePoints([]Point{{Interval: uint32(t0), Value: 111}}); err != nil {
		t.Fatal(err)
	}

	wrapped := t0 + 10
	mock.Set(time.Unix(wrapped, 0))
	if err := h.UpdatePoints([]Point{{Interval: uint32(wrapped), Value: 222}}); err != nil {
		t.Fatal(err)
	}

	until := wrapped
	res, err := h.Fetch(wrapped-1, &until)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Values) < 1 || res.Values[0] != 222 {
		t.Errorf("ring wrap should overwrite the physical slot: got %v", res.Values)
	}
}

func TestFetch_MaxRetentionClamp(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	now := mock.Now().Unix()
	maxRetention := int64(h.Info().MaxRetention)

	tooOld := now - maxRetention - 1000
	res, err := h.Fetch(tooOld, nil)
	if err != nil {
		t.Fatalf("Fetch with too-old from should clamp, not fail: %v", err)
	}
	if res.TimeInfo.From < now-maxRetention {
		t.Errorf("From = %d, should be clamped to >= %d", res.TimeInfo.From, now-maxRetention)
	}
}

func TestFetch_InvertedWindowFails(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	now := mock.Now().Unix()
	until := now - 100
	_, err := h.Fetch(now, &until)
	if !errors.Is(err, InvalidTimeInterval) {
		t.Errorf("err = %v, want InvalidTimeInterval", err)
	}
}

func TestClosedHandleSurfacesIOError(t *testing.T) {
	h, _ := newTestHandle(t, []ArchiveSpec{{SecondsPerPoint: 60, Points: 60}}, 0.5)
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := h.Fetch(0, nil); !errors.Is(err, IOError) {
		t.Errorf("Fetch on closed handle: err = %v, want IOError", err)
	}
	if err := h.UpdatePoints([]Point{{Interval: 1, Value: 1}}); !errors.Is(err, IOError) {
		t.Errorf("UpdatePoints on closed handle: err = %v, want IOError", err)
	}
}

func TestBatchUpdate_GroupsSpansAndPropagates(t *testing.T) {
	h, mock := newTestHandle(t, []ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 300, Points: 24},
	}, 0.5)
	t0 := alignToStep(mock.Now().Unix(), 300)
	mock.Set(time.Unix(t0, 0))

	pts := []Point{
		{Interval: uint32(t0), Value: 10},
		{Interval: uint32(t0 + 60), Value: 20},
		{Interval: uint32(t0 + 120), Value: 30},
		{Interval: uint32(t0 + 180), Value: 40},
		{Interval: uint32(t0 + 240), Value: 50},
	}
	if err := h.UpdatePoints(pts); err != nil {
		t.Fatalf("UpdatePoints: %v", err)
	}
	mock.Set(time.Unix(t0+400, 0))

	until := t0 + 245
	res, err := h.Fetch(t0-60, &until)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []float64{10, 20, 30, 40, 50}
	for i, w := range want {
		if res.Values[i] != w {
			t.Errorf("Values[%d] = %v, want %v", i, res.Values[i], w)
		}
	}

	views := h.Archives()
	coarsePts, err := views[1].Points()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range coarsePts {
		if int64(p.Interval) == t0 {
			found = true
			if p.Value != 30 {
				t.Errorf("propagated average = %v, want 30", p.Value)
			}
		}
	}
	if !found {
		t.Error("batch update should have propagated a full window into the coarse archive")
	}
}

func TestAggregationMethods(t *testing.T) {
	cases := []struct {
		method AggregationMethod
		want   float64
	}{
		{Sum, 100},
		{Last, 40},
		{Max, 40},
		{Min, 10},
	}
	for _, c := range cases {
		xff := 0.0
		cnt := NewMemoryContainer()
		h, err := CreateContainer(cnt, []ArchiveSpec{
			{SecondsPerPoint: 60, Points: 60},
			{SecondsPerPoint: 300, Points: 24},
		}, &Options{XFilesFactor: &xff, AggregationMethod: c.method})
		if err != nil {
			t.Fatalf("CreateContainer: %v", err)
		}
		mock := clock.NewMock()
		t0 := alignToStep(1700000000, 300)
		mock.Set(time.Unix(t0, 0))
		h.Clock = mock

		vals := []float64{10, 20, 30, 40}
		for i, v := range vals {
			p := Point{Interval: uint32(t0 + int64(i)*60), Value: v}
			mock.Set(time.Unix(int64(p.Interval), 0))
			if err := h.UpdatePoints([]Point{p}); err != nil {
				t.Fatalf("UpdatePoints: %v", err)
			}
		}

		coarsePts, err := h.Archives()[1].Points()
		if err != nil {
			t.Fatal(err)
		}
		got := math.NaN()
		for _, p := range coarsePts {
			if int64(p.Interval) == t0 {
				got = p.Value
			}
		}
		if got != c.want {
			t.Errorf("method %v: propagated value = %v, want %v", c.method, got, c.want)
		}
	}
}
