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

// mod is the mathematical (non-negative) modulo: unlike Go's %, mod(-1, 5)
// is 4, not -1. Ring arithmetic on signed byte deltas relies on this.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// readBase reads the interval of an archive's first (base) point, the
// anchor for every other slot's physical location. A base interval of 0
// means the archive has never been written.
func readBase(c Container, a archive) (uint32, error) {
	buf := make([]byte, pointSize)
	if _, err := c.ReadAt(buf, int64(a.offset)); err != nil {
		return 0, newErr("readBase", IOError, err)
	}
	return decodePoint(buf).Interval, nil
}

// slotOffset computes the absolute byte offset of the slot for quantized
// timestamp t' in archive a, given the archive's current base interval.
// If base is 0 the archive is empty and the slot is simply a's own
// offset — the write that lands there becomes the anchor.
func slotOffset(a archive, base uint32, quantizedT uint32) int64 {
	if base == 0 {
		return int64(a.offset)
	}
	delta := int64(quantizedT) - int64(base)
	pointDelta := delta / int64(a.secondsPerPoint)
	byteDelta := pointDelta * pointSize
	return int64(a.offset) + mod(byteDelta, int64(a.sizeBytes))
}

// readRange reads length bytes of archive a's ring starting at the
// absolute byte offset firstOffset. When the range runs past the
// archive's end it is split in two: the prefix up to the end, then the
// remainder from a's own offset. length must not exceed a.sizeBytes.
func readRange(c Container, a archive, firstOffset int64, length int64) ([]byte, error) {
	buf := make([]byte, length)
	archiveEnd := int64(a.offset) + int64(a.sizeBytes)

	if firstOffset+length <= archiveEnd {
		if _, err := c.ReadAt(buf, firstOffset); err != nil {
			return nil, newErr("readRange", IOError, err)
		}
		return buf, nil
	}

	prefixLen := archiveEnd - firstOffset
	if _, err := c.ReadAt(buf[:prefixLen], firstOffset); err != nil {
		return nil, newErr("readRange", IOError, err)
	}
	if _, err := c.ReadAt(buf[prefixLen:], int64(a.offset)); err != nil {
		return nil, newErr("readRange", IOError, err)
	}
	return buf, nil
}

// writeRange writes data into archive a's ring starting at the absolute
// byte offset firstOffset, splitting the write across the ring seam if it
// would run past the archive's end. Returns ArchiveBoundaryExceeded if,
// after writing the prefix, the arithmetic doesn't land exactly on the
// archive's end (a guard against misaligned callers).
func writeRange(c Container, a archive, firstOffset int64, data []byte) error {
	archiveEnd := int64(a.offset) + int64(a.sizeBytes)

	if firstOffset+int64(len(data)) <= archiveEnd {
		if _, err := c.WriteAt(data, firstOffset); err != nil {
			return newErr("writeRange", IOError, err)
		}
		return nil
	}

	prefixLen := archiveEnd - firstOffset
	if _, err := c.WriteAt(data[:prefixLen], firstOffset); err != nil {
		return newErr("writeRange", IOError, err)
	}
	if firstOffset+prefixLen != archiveEnd {
		return newErr("writeRange", ArchiveBoundaryExceeded, errMalformed("prefix write did not land on archive end"))
	}
	if _, err := c.WriteAt(data[prefixLen:], int64(a.offset)); err != nil {
		return newErr("writeRange", IOError, err)
	}
	return nil
}
