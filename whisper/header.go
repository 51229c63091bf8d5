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

// archive is the decoded, in-memory form of one archive descriptor, plus
// the derived fields every ring computation needs.
type archive struct {
	offset          uint32
	secondsPerPoint uint32
	points          uint32
	retention       uint32 // secondsPerPoint * points
	sizeBytes       uint32 // pointSize * points
}

// Retention returns the span of time, in seconds, this archive can hold.
func (a archive) Retention() uint32 { return a.retention }

// SecondsPerPoint is this archive's temporal step.
func (a archive) SecondsPerPoint() uint32 { return a.secondsPerPoint }

// Points is this archive's capacity in slots.
func (a archive) Points() uint32 { return a.points }

// header is the decoded file metadata plus its archive descriptors.
type header struct {
	aggregationMethod AggregationMethod
	maxRetention      uint32
	xFilesFactor      float32
	archives          []archive
}

// readHeader materializes the header and archive descriptors from a
// container, preserving the caller's read position by operating purely
// through ReadAt (it never seeks). Any short read or malformed count is
// wrapped as CorruptFile.
func readHeader(c Container) (*header, error) {
	meta := make([]byte, metadataSize)
	if _, err := c.ReadAt(meta, 0); err != nil {
		return nil, newErr("readHeader", CorruptFile, err)
	}
	dm := decodeMetadata(meta)

	if dm.ArchiveCount == 0 {
		return nil, newErr("readHeader", CorruptFile, errMalformed("archiveCount is zero"))
	}

	descs := make([]byte, int64(dm.ArchiveCount)*descriptorSize)
	if _, err := c.ReadAt(descs, metadataSize); err != nil {
		return nil, newErr("readHeader", CorruptFile, err)
	}

	hdr := &header{
		aggregationMethod: AggregationMethod(dm.AggregationType),
		maxRetention:      dm.MaxRetention,
		xFilesFactor:      dm.XFilesFactor,
		archives:          make([]archive, dm.ArchiveCount),
	}
	for i := uint32(0); i < dm.ArchiveCount; i++ {
		dd := decodeDescriptor(descs[i*descriptorSize : (i+1)*descriptorSize])
		hdr.archives[i] = archive{
			offset:          dd.Offset,
			secondsPerPoint: dd.SecondsPerPoint,
			points:          dd.Points,
			retention:       dd.SecondsPerPoint * dd.Points,
			sizeBytes:       dd.Points * pointSize,
		}
	}
	return hdr, nil
}

// writeHeader writes the metadata record and every archive descriptor,
// in the order given, computing cumulative offsets starting immediately
// after the descriptor block.
func writeHeader(c Container, method AggregationMethod, xff float32, archives []ArchiveSpec) (*header, error) {
	maxRetention := uint32(0)
	for _, a := range archives {
		if r := a.SecondsPerPoint * a.Points; r > maxRetention {
			maxRetention = r
		}
	}

	dm := diskMetadata{
		AggregationType: uint32(method),
		MaxRetention:    maxRetention,
		XFilesFactor:    xff,
		ArchiveCount:    uint32(len(archives)),
	}
	if _, err := c.WriteAt(encodeMetadata(dm), 0); err != nil {
		return nil, newErr("writeHeader", IOError, err)
	}

	hdr := &header{
		aggregationMethod: method,
		maxRetention:      maxRetention,
		xFilesFactor:      xff,
		archives:          make([]archive, len(archives)),
	}

	offset := uint32(metadataSize + descriptorSize*len(archives))
	for i, a := range archives {
		dd := diskDescriptor{Offset: offset, SecondsPerPoint: a.SecondsPerPoint, Points: a.Points}
		pos := int64(metadataSize + i*descriptorSize)
		if _, err := c.WriteAt(encodeDescriptor(dd), pos); err != nil {
			return nil, newErr("writeHeader", IOError, err)
		}
		hdr.archives[i] = archive{
			offset:          offset,
			secondsPerPoint: a.SecondsPerPoint,
			points:          a.Points,
			retention:       a.SecondsPerPoint * a.Points,
			sizeBytes:       a.Points * pointSize,
		}
		offset += a.Points * pointSize
	}

	return hdr, nil
}
