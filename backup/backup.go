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

// Package backup streams whole whisper files through a zstd encoder,
// so a backup on disk or in transit is smaller than the sparse or
// dense original without changing a single byte of the restored copy.
package backup

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/gruis/whispr/whisper"
)

// Write copies h's entire container, compressed, to w. It reads
// through the container directly rather than the handle's ring
// helpers, so the header, every archive and any gaps between them are
// captured exactly as they sit on disk.
func Write(h *whisper.Handle, w io.Writer) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer enc.Close()

	c := h.Container()
	buf := make([]byte, 64*1024)
	var offset int64
	for {
		n, rerr := c.ReadAt(buf, offset)
		if n > 0 {
			if _, werr := enc.Write(buf[:n]); werr != nil {
				return fmt.Errorf("backup: %w", werr)
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("backup: %w", rerr)
		}
	}
	return enc.Close()
}

// Restore decompresses r and writes the result to w at sequential
// offsets starting at zero, reproducing the original container
// byte-for-byte.
func Restore(r io.Reader, w io.WriterAt) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer dec.Close()

	buf := make([]byte, 64*1024)
	var offset int64
	for {
		n, rerr := dec.Read(buf)
		if n > 0 {
			if _, werr := w.WriteAt(buf[:n], offset); werr != nil {
				return fmt.Errorf("backup: %w", werr)
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("backup: %w", rerr)
		}
	}
	return nil
}
