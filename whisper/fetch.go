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
	"math"
)

// TimeInfo describes the window a Fetch actually returned, after
// clamping and slot alignment.
type TimeInfo struct {
	From  int64
	Until int64
	Step  uint32
}

// FetchResult is a dense value series over TimeInfo's window, with
// math.NaN() marking slots whose recorded interval didn't match the
// expected position (never-written slots included).
type FetchResult struct {
	TimeInfo TimeInfo
	Values   []float64
}

// Fetch returns the finest archive's data covering [from, until). until
// nil means "now". Both ends are clamped and aligned to slot boundaries
// per §4.7.
func (h *Handle) Fetch(from int64, until *int64) (FetchResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen("Fetch"); err != nil {
		return FetchResult{}, err
	}

	now := h.Clock.Now().Unix()
	oldest := now - int64(h.hdr.maxRetention)
	if from < oldest {
		from = oldest
	}

	untilTime := now
	if until != nil {
		untilTime = *until
	}

	if from >= untilTime {
		return FetchResult{}, newErr("Fetch", InvalidTimeInterval,
			fmt.Errorf("invalid time interval: from time %d is not before until time %d", from, untilTime))
	}
	if untilTime > now || untilTime < from {
		untilTime = now
	}

	idx, a, err := h.selectArchive(now - from)
	if err != nil {
		return FetchResult{}, err
	}

	step := a.secondsPerPoint
	fromInterval := quantize(from, step) + int64(step)
	untilInterval := quantize(untilTime, step) + int64(step)

	base, err := h.cachedBase(idx)
	if err != nil {
		return FetchResult{}, err
	}

	n := (untilInterval - fromInterval) / int64(step)
	if n < 0 {
		n = 0
	}

	if base == 0 {
		values := make([]float64, n)
		for i := range values {
			values[i] = math.NaN()
		}
		return FetchResult{TimeInfo: TimeInfo{From: fromInterval, Until: untilInterval, Step: step}, Values: values}, nil
	}

	fromOffset := slotOffset(a, base, uint32(fromInterval))
	length := n * pointSize

	buf, err := readRange(h.c, a, fromOffset, length)
	if err != nil {
		return FetchResult{}, err
	}

	values := make([]float64, n)
	currentInterval := fromInterval
	pts := decodePoints(buf)
	for i := 0; i < len(values) && i < len(pts); i++ {
		p := pts[i]
		if int64(p.Interval) == currentInterval {
			values[i] = p.Value
		} else {
			values[i] = math.NaN()
		}
		currentInterval += int64(step)
	}

	return FetchResult{TimeInfo: TimeInfo{From: fromInterval, Until: untilInterval, Step: step}, Values: values}, nil
}

// selectArchive picks the finest archive whose retention covers span
// seconds, in declared (finest-first) order.
func (h *Handle) selectArchive(span int64) (int, archive, error) {
	for i, a := range h.hdr.archives {
		if int64(a.retention) >= span {
			return i, a, nil
		}
	}
	last := len(h.hdr.archives) - 1
	return last, h.hdr.archives[last], nil
}

// quantize truncates t down to the nearest multiple of step.
func quantize(t int64, step uint32) int64 {
	return t - mod(t, int64(step))
}
