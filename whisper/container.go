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
	"io"
)

// Container is the random-access byte store a handle operates on. *os.File
// satisfies it natively; MemoryContainer satisfies it for tests that don't
// want to touch a filesystem.
type Container interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Truncate(size int64) error
	Sync() error
}

// MemoryContainer is an in-memory Container, useful in tests and for
// callers who want a whisper file that never touches disk.
type MemoryContainer struct {
	buf []byte
}

// NewMemoryContainer returns an empty in-memory container.
func NewMemoryContainer() *MemoryContainer {
	return &MemoryContainer{}
}

func (m *MemoryContainer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrShortBuffer
	}
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemoryContainer) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func (m *MemoryContainer) Truncate(size int64) error {
	if size <= int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
	return nil
}

func (m *MemoryContainer) Sync() error { return nil }
func (m *MemoryContainer) Close() error { return nil }

// Bytes returns the container's current backing bytes. Only safe to use
// while nothing else is writing concurrently to the container.
func (m *MemoryContainer) Bytes() []byte { return m.buf }
