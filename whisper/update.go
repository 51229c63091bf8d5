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
	"fmt"
	"sort"
)

// UpdatePoints is the canonical write entry point: a single point routes
// to the single-point algorithm, more than one to the batch algorithm.
// An empty slice is a no-op.
func (h *Handle) UpdatePoints(points []Point) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen("UpdatePoints"); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 {
		return h.singleUpdate(int64(points[0].Interval), points[0].Value)
	}
	return h.batchUpdate(points)
}

// UpdateNow writes value at the current wall-clock time.
func (h *Handle) UpdateNow(value float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen("UpdateNow"); err != nil {
		return err
	}
	return h.singleUpdate(h.Clock.Now().Unix(), value)
}

// Update is the legacy variadic adapter: callers may pass any mixture of
// scalar (timestamp, value) pairs and nested two-element lists. The
// flattened argument list is required to have even length; a single bare
// scalar value (odd length of exactly one) is treated as a value at the
// current time. Anything else with odd length after flattening is
// silently ignored, per §4.8's normalization rule.
func (h *Handle) Update(args ...interface{}) error {
	flat, err := flattenUpdateArgs(args)
	if err != nil {
		return err
	}

	if len(flat) == 1 {
		v, err := toFloat64(flat[0])
		if err != nil {
			return newErr("Update", ValueError, err)
		}
		return h.UpdateNow(v)
	}

	if len(flat) == 0 || len(flat)%2 != 0 {
		return nil
	}

	points := make([]Point, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		t, err := toInt64(flat[i])
		if err != nil {
			return newErr("Update", ValueError, err)
		}
		v, err := toFloat64(flat[i+1])
		if err != nil {
			return newErr("Update", ValueError, err)
		}
		points = append(points, Point{Interval: uint32(t), Value: v})
	}
	return h.UpdatePoints(points)
}

func flattenUpdateArgs(args []interface{}) ([]interface{}, error) {
	flat := make([]interface{}, 0, len(args)*2)
	for _, a := range args {
		switch v := a.(type) {
		case []interface{}:
			nested, err := flattenUpdateArgs(v)
			if err != nil {
				return nil, err
			}
			flat = append(flat, nested...)
		case [2]interface{}:
			flat = append(flat, v[0], v[1])
		default:
			flat = append(flat, v)
		}
	}
	return flat, nil
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("cannot interpret %v (%T) as a value", v, v)
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("cannot interpret %v (%T) as a timestamp", v, v)
	}
}

// singleUpdate implements §4.8's single-point algorithm. Caller holds h.mu.
func (h *Handle) singleUpdate(t int64, v float64) error {
	now := h.Clock.Now().Unix()
	age := now - t
	if age < 0 || age >= int64(h.hdr.maxRetention) {
		return newErr("Update", TimestampNotCovered,
			fmt.Errorf("timestamp %d not covered by any archives in this database", t))
	}

	idx := -1
	for i, a := range h.hdr.archives {
		if int64(a.retention) > age {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = len(h.hdr.archives) - 1
	}
	a := h.hdr.archives[idx]

	quantizedT := quantize(t, a.secondsPerPoint)

	base, err := h.cachedBase(idx)
	if err != nil {
		return err
	}
	off := slotOffset(a, base, uint32(quantizedT))
	if err := writeRange(h.c, a, off, encodePoint(Point{Interval: uint32(quantizedT), Value: v})); err != nil {
		return err
	}
	h.invalidateBase(idx)

	higher := idx
	for lower := idx + 1; lower < len(h.hdr.archives); lower++ {
		ok, err := h.propagate(quantizedT, higher, lower)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		higher = lower
	}

	if h.autoFlush {
		if err := h.c.Sync(); err != nil {
			return newErr("Update", IOError, err)
		}
	}
	return nil
}

// batchUpdate implements §4.8's batch algorithm. Caller holds h.mu.
func (h *Handle) batchUpdate(points []Point) error {
	now := h.Clock.Now().Unix()

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Interval > sorted[j].Interval })

	archives := h.hdr.archives
	archiveIdx := 0
	var bucket []Point

	flush := func() error {
		if len(bucket) == 0 {
			return nil
		}
		// bucket was accumulated newest-first; writeArchiveBatch wants
		// chronological order.
		chrono := make([]Point, len(bucket))
		for i, p := range bucket {
			chrono[len(bucket)-1-i] = p
		}
		writtenIntervals, err := h.writeArchiveBatch(archiveIdx, chrono)
		if err != nil {
			return err
		}
		if err := h.cascadePropagate(archiveIdx, writtenIntervals); err != nil {
			return err
		}
		bucket = bucket[:0]
		return nil
	}

	for _, p := range sorted {
		age := now - int64(p.Interval)
		for age > int64(archives[archiveIdx].retention) {
			if err := flush(); err != nil {
				return err
			}
			archiveIdx++
			if archiveIdx == len(archives) {
				break
			}
		}
		if archiveIdx == len(archives) {
			break
		}
		bucket = append(bucket, p)
	}
	if archiveIdx < len(archives) {
		if err := flush(); err != nil {
			return err
		}
	}

	if h.autoFlush {
		if err := h.c.Sync(); err != nil {
			return newErr("batchUpdate", IOError, err)
		}
	}
	return nil
}

// writeArchiveBatch quantizes and dedupes chrono (chronological, ascending
// timestamp order), groups the result into contiguous spans and writes
// each span into archive archiveIdx, splitting across the ring seam as
// needed. It returns the distinct quantized intervals actually written.
func (h *Handle) writeArchiveBatch(archiveIdx int, chrono []Point) ([]int64, error) {
	a := h.hdr.archives[archiveIdx]

	quantized := make(map[int64]float64, len(chrono))
	for _, p := range chrono {
		q := quantize(int64(p.Interval), a.secondsPerPoint)
		quantized[q] = p.Value // last (most recent) write wins
	}

	intervals := make([]int64, 0, len(quantized))
	for q := range quantized {
		intervals = append(intervals, q)
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i] < intervals[j] })

	step := int64(a.secondsPerPoint)
	type span struct {
		start  int64
		values []float64
	}
	var spans []span
	for _, iv := range intervals {
		if len(spans) > 0 {
			last := &spans[len(spans)-1]
			expected := last.start + int64(len(last.values))*step
			if iv == expected {
				last.values = append(last.values, quantized[iv])
				continue
			}
		}
		spans = append(spans, span{start: iv, values: []float64{quantized[iv]}})
	}

	base, err := h.cachedBase(archiveIdx)
	if err != nil {
		return nil, err
	}

	for _, s := range spans {
		pts := make([]Point, len(s.values))
		for i, v := range s.values {
			pts[i] = Point{Interval: uint32(s.start + int64(i)*step), Value: v}
		}
		off := slotOffset(a, base, uint32(s.start))
		if err := writeRange(h.c, a, off, encodePoints(pts)); err != nil {
			return nil, err
		}
		if base == 0 {
			base = uint32(s.start)
		}
	}
	h.invalidateBase(archiveIdx)

	return intervals, nil
}

// cascadePropagate propagates the written intervals of archive H
// successively into every coarser archive, stopping as soon as a level
// produces no successful propagations.
func (h *Handle) cascadePropagate(higherIdx int, writtenIntervals []int64) error {
	if len(writtenIntervals) == 0 {
		return nil
	}
	higher := higherIdx
	current := writtenIntervals

	for lower := higherIdx + 1; lower < len(h.hdr.archives); lower++ {
		lowerStep := int64(h.hdr.archives[lower].secondsPerPoint)
		seen := make(map[int64]bool, len(current))
		var lowerIntervals []int64
		for _, iv := range current {
			q := quantize(iv, uint32(lowerStep))
			if !seen[q] {
				seen[q] = true
				lowerIntervals = append(lowerIntervals, q)
			}
		}

		var succeeded []int64
		for _, iv := range lowerIntervals {
			ok, err := h.propagate(iv, higher, lower)
			if err != nil {
				return err
			}
			if ok {
				succeeded = append(succeeded, iv)
			}
		}
		if len(succeeded) == 0 {
			break
		}
		higher = lower
		current = succeeded
	}
	return nil
}
