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
	"encoding/binary"
	"math"
)

// byteOrder is the wire order for every record this package encodes or
// decodes: metadata, archive descriptors and points are all big-endian,
// matching the reference file format.
var byteOrder = binary.BigEndian

const (
	metadataSize   = 16 // aggregationType, maxRetention, xFilesFactor, archiveCount
	descriptorSize = 12 // offset, secondsPerPoint, points
	pointSize      = 12 // interval, value
)

// diskMetadata is the 16-byte record at offset 0.
type diskMetadata struct {
	AggregationType uint32
	MaxRetention    uint32
	XFilesFactor    float32
	ArchiveCount    uint32
}

func encodeMetadata(m diskMetadata) []byte {
	buf := make([]byte, 0, metadataSize)
	buf = byteOrder.AppendUint32(buf, m.AggregationType)
	buf = byteOrder.AppendUint32(buf, m.MaxRetention)
	buf = byteOrder.AppendUint32(buf, math.Float32bits(m.XFilesFactor))
	buf = byteOrder.AppendUint32(buf, m.ArchiveCount)
	return buf
}

func decodeMetadata(b []byte) diskMetadata {
	return diskMetadata{
		AggregationType: byteOrder.Uint32(b[0:4]),
		MaxRetention:    byteOrder.Uint32(b[4:8]),
		XFilesFactor:    math.Float32frombits(byteOrder.Uint32(b[8:12])),
		ArchiveCount:    byteOrder.Uint32(b[12:16]),
	}
}

// diskDescriptor is one 12-byte archive descriptor.
type diskDescriptor struct {
	Offset          uint32
	SecondsPerPoint uint32
	Points          uint32
}

func encodeDescriptor(d diskDescriptor) []byte {
	buf := make([]byte, 0, descriptorSize)
	buf = byteOrder.AppendUint32(buf, d.Offset)
	buf = byteOrder.AppendUint32(buf, d.SecondsPerPoint)
	buf = byteOrder.AppendUint32(buf, d.Points)
	return buf
}

func decodeDescriptor(b []byte) diskDescriptor {
	return diskDescriptor{
		Offset:          byteOrder.Uint32(b[0:4]),
		SecondsPerPoint: byteOrder.Uint32(b[4:8]),
		Points:          byteOrder.Uint32(b[8:12]),
	}
}

// Point is one (timestamp, value) sample. Interval 0 is the on-disk
// "unwritten slot" sentinel; it is never a meaningful timestamp for a
// stored point.
type Point struct {
	Interval uint32
	Value    float64
}

// encodePoint is total: every Point encodes to exactly pointSize bytes.
func encodePoint(p Point) []byte {
	buf := make([]byte, 0, pointSize)
	buf = byteOrder.AppendUint32(buf, p.Interval)
	buf = byteOrder.AppendUint64(buf, math.Float64bits(p.Value))
	return buf
}

// decodePoint is total: any 12-byte slice decodes to a Point, never an
// error, regardless of its content.
func decodePoint(b []byte) Point {
	return Point{
		Interval: byteOrder.Uint32(b[0:4]),
		Value:    math.Float64frombits(byteOrder.Uint64(b[4:12])),
	}
}

func decodePoints(b []byte) []Point {
	n := len(b) / pointSize
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = decodePoint(b[i*pointSize : (i+1)*pointSize])
	}
	return pts
}

func encodePoints(pts []Point) []byte {
	buf := make([]byte, 0, len(pts)*pointSize)
	for _, p := range pts {
		buf = append(buf, encodePoint(p)...)
	}
	return buf
}
