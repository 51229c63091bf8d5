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

import "math"

// propagate recomputes lower's slot covering timestamp t (already
// quantized to higher's step) from higher's neighborhood, per §4.9.
// Returns false (no error) when there isn't enough known data to satisfy
// the x-files-factor gate — that is not a failure, just a signal for the
// caller to stop cascading further. Caller holds h.mu.
func (h *Handle) propagate(t int64, higherIdx, lowerIdx int) (bool, error) {
	higher := h.hdr.archives[higherIdx]
	lower := h.hdr.archives[lowerIdx]

	lowerStart := quantize(t, lower.secondsPerPoint)

	higherBase, err := h.cachedBase(higherIdx)
	if err != nil {
		return false, err
	}

	var higherFirstOffset int64
	if higherBase == 0 {
		higherFirstOffset = int64(higher.offset)
	} else {
		higherFirstOffset = slotOffset(higher, higherBase, uint32(lowerStart))
	}

	higherPointsPerBucket := int64(lower.secondsPerPoint) / int64(higher.secondsPerPoint)
	higherWindowBytes := higherPointsPerBucket * pointSize
	higherLastOffset := int64(higher.offset) + mod(higherFirstOffset-int64(higher.offset)+higherWindowBytes, int64(higher.sizeBytes))

	length := mod(higherLastOffset-higherFirstOffset, int64(higher.sizeBytes))
	if length == 0 {
		length = int64(higher.sizeBytes)
	}

	buf, err := readRange(h.c, higher, higherFirstOffset, length)
	if err != nil {
		return false, err
	}
	pts := decodePoints(buf)

	var known []float64
	lastKnown := math.NaN()
	currentInterval := lowerStart
	step := int64(higher.secondsPerPoint)
	for i := 0; i < int(higherPointsPerBucket) && i < len(pts); i++ {
		p := pts[i]
		if int64(p.Interval) == currentInterval {
			known = append(known, p.Value)
			lastKnown = p.Value
		}
		currentInterval += step
	}

	total := higherPointsPerBucket
	knownCount := len(known)
	if knownCount == 0 {
		return false, nil
	}
	if float64(knownCount)/float64(total) < float64(h.hdr.xFilesFactor) {
		return false, nil
	}

	method := h.hdr.aggregationMethod
	if !method.valid() {
		return false, newErr("propagate", InvalidAggregationMethod, nil)
	}
	value, err := aggregate(method, known, lastKnown)
	if err != nil {
		return false, err
	}

	lowerBase, err := h.cachedBase(lowerIdx)
	if err != nil {
		return false, err
	}
	lowerOff := slotOffset(lower, lowerBase, uint32(lowerStart))
	if err := writeRange(h.c, lower, lowerOff, encodePoint(Point{Interval: uint32(lowerStart), Value: value})); err != nil {
		return false, err
	}
	h.invalidateBase(lowerIdx)

	return true, nil
}
