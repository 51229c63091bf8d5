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
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru"
)

// Handle is an open whisper file. It owns the underlying Container and is
// not safe for concurrent use by multiple goroutines — per §5, operations
// on one handle are strictly sequential.
type Handle struct {
	mu        sync.Mutex
	c         Container
	hdr       *header
	autoFlush bool
	closed    bool

	// Clock lets tests substitute a fake "now"; defaults to the real
	// wall clock.
	Clock clock.Clock

	baseCache *lru.Cache // archive index -> uint32 base interval
}

func newHandle(c Container, hdr *header, autoFlush bool) (*Handle, error) {
	cache, err := lru.New(len(hdr.archives))
	if err != nil {
		return nil, newErr("newHandle", IOError, err)
	}
	return &Handle{
		c:         c,
		hdr:       hdr,
		autoFlush: autoFlush,
		Clock:     clock.New(),
		baseCache: cache,
	}, nil
}

// Open opens an existing whisper file at path.
func Open(path string, autoFlush bool) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, newErr("Open", IOError, err)
	}
	h, err := OpenContainer(f, autoFlush)
	if err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

// OpenContainer opens an already-open container as a whisper handle,
// reading its header.
func OpenContainer(c Container, autoFlush bool) (*Handle, error) {
	hdr, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	return newHandle(c, hdr, autoFlush)
}

func (h *Handle) checkOpen(op string) error {
	if h.closed {
		return newErr(op, IOError, errMalformed("handle is closed"))
	}
	return nil
}

// Close releases the underlying container. Any call on the handle after
// Close fails with IOError.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.c.Close(); err != nil {
		return newErr("Close", IOError, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Info describes a handle's frozen-at-create parameters.
type Info struct {
	MaxRetention      uint32
	XFilesFactor      float32
	AggregationMethod AggregationMethod
	Archives          []ArchiveInfo
}

// ArchiveInfo describes one archive's on-disk shape.
type ArchiveInfo struct {
	Offset          uint32
	SecondsPerPoint uint32
	Points          uint32
	Retention       uint32
	Size            uint32
}

// Info returns the handle's header values.
func (h *Handle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := make([]ArchiveInfo, len(h.hdr.archives))
	for i, a := range h.hdr.archives {
		infos[i] = ArchiveInfo{
			Offset:          a.offset,
			SecondsPerPoint: a.secondsPerPoint,
			Points:          a.points,
			Retention:       a.retention,
			Size:            a.sizeBytes,
		}
	}
	return Info{
		MaxRetention:      h.hdr.maxRetention,
		XFilesFactor:      h.hdr.xFilesFactor,
		AggregationMethod: h.hdr.aggregationMethod,
		Archives:          infos,
	}
}

// ArchiveView is a non-owning reference to one of a handle's archives. It
// must never outlive the handle it came from.
type ArchiveView struct {
	h   *Handle
	idx int
}

// Archives returns a view over each archive, finest first, in the order
// declared on disk.
func (h *Handle) Archives() []ArchiveView {
	h.mu.Lock()
	defer h.mu.Unlock()
	views := make([]ArchiveView, len(h.hdr.archives))
	for i := range h.hdr.archives {
		views[i] = ArchiveView{h: h, idx: i}
	}
	return views
}

// Info describes the archive this view refers to.
func (v ArchiveView) Info() ArchiveInfo {
	a := v.h.hdr.archives[v.idx]
	return ArchiveInfo{
		Offset:          a.offset,
		SecondsPerPoint: a.secondsPerPoint,
		Points:          a.points,
		Retention:       a.retention,
		Size:            a.sizeBytes,
	}
}

// Points decodes and returns every stored slot in this archive, including
// unwritten ones (interval 0).
func (v ArchiveView) Points() ([]Point, error) {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	if err := v.h.checkOpen("ArchiveView.Points"); err != nil {
		return nil, err
	}
	a := v.h.hdr.archives[v.idx]
	buf := make([]byte, a.sizeBytes)
	if _, err := v.h.c.ReadAt(buf, int64(a.offset)); err != nil {
		return nil, newErr("ArchiveView.Points", IOError, err)
	}
	return decodePoints(buf), nil
}

// rawBytes returns this archive's raw on-disk bytes, for callers like the
// integrity package that checksum without decoding.
func (v ArchiveView) rawBytes() ([]byte, error) {
	a := v.h.hdr.archives[v.idx]
	buf := make([]byte, a.sizeBytes)
	if _, err := v.h.c.ReadAt(buf, int64(a.offset)); err != nil {
		return nil, newErr("ArchiveView.rawBytes", IOError, err)
	}
	return buf, nil
}

// RawArchiveBytes exposes an archive's raw bytes by index, for the
// integrity package. It does not decode or validate them.
func (h *Handle) RawArchiveBytes(archiveIndex int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen("RawArchiveBytes"); err != nil {
		return nil, err
	}
	if archiveIndex < 0 || archiveIndex >= len(h.hdr.archives) {
		return nil, newErr("RawArchiveBytes", InvalidConfiguration, errMalformed("archive index out of range"))
	}
	return ArchiveView{h: h, idx: archiveIndex}.rawBytes()
}

// RawHeaderBytes exposes the header and descriptor bytes, for the
// integrity package.
func (h *Handle) RawHeaderBytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpen("RawHeaderBytes"); err != nil {
		return nil, err
	}
	n := metadataSize + descriptorSize*len(h.hdr.archives)
	buf := make([]byte, n)
	if _, err := h.c.ReadAt(buf, 0); err != nil {
		return nil, newErr("RawHeaderBytes", IOError, err)
	}
	return buf, nil
}

// Container exposes the handle's underlying container, for the backup
// package to stream whole-file copies through.
func (h *Handle) Container() Container {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.c
}

// cachedBase returns archive i's base interval, consulting (and filling)
// the read cache first.
func (h *Handle) cachedBase(i int) (uint32, error) {
	if v, ok := h.baseCache.Get(i); ok {
		return v.(uint32), nil
	}
	base, err := readBase(h.c, h.hdr.archives[i])
	if err != nil {
		return 0, err
	}
	h.baseCache.Add(i, base)
	return base, nil
}

// invalidateBase drops archive i's cached base interval; called after any
// write that could change it.
func (h *Handle) invalidateBase(i int) {
	h.baseCache.Remove(i)
}
