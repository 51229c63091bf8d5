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

// Package integrity computes diagnostic content digests over whisper
// files. Digests are never stored and never gate a read or write; they
// exist so two copies of a file (a backup, a replica) can be compared
// byte-for-byte without shipping the whole file.
package integrity

import (
	"github.com/cespare/xxhash/v2"

	"github.com/gruis/whispr/whisper"
)

// ArchiveDigest returns the xxHash64 of one archive's raw bytes.
func ArchiveDigest(h *whisper.Handle, archiveIndex int) (uint64, error) {
	raw, err := h.RawArchiveBytes(archiveIndex)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(raw), nil
}

// FileDigest holds a digest for the header and one for every archive in
// declaration order, as computed by Digest. Two handles open on byte-identical files produce
// an identical FileDigest regardless of how each was created (sparse
// vs dense, one write vs many).
type FileDigest struct {
	Header   uint64
	Archives []uint64
}

// Digest computes the header digest and one digest per archive.
func Digest(h *whisper.Handle) (FileDigest, error) {
	hdrBytes, err := h.RawHeaderBytes()
	if err != nil {
		return FileDigest{}, err
	}
	views := h.Archives()
	archives := make([]uint64, len(views))
	for i := range views {
		d, err := ArchiveDigest(h, i)
		if err != nil {
			return FileDigest{}, err
		}
		archives[i] = d
	}
	return FileDigest{Header: xxhash.Sum64(hdrBytes), Archives: archives}, nil
}

// Equal reports whether two digests describe byte-identical files.
func (d FileDigest) Equal(other FileDigest) bool {
	if d.Header != other.Header || len(d.Archives) != len(other.Archives) {
		return false
	}
	for i := range d.Archives {
		if d.Archives[i] != other.Archives[i] {
			return false
		}
	}
	return true
}
