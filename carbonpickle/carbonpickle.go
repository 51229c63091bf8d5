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

// Package carbonpickle decodes Graphite carbon relay's pickle wire
// protocol into per-metric point batches, and optionally lands them
// directly into whisper files on disk.
package carbonpickle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	pickle "github.com/hydrogen18/stalecucumber"

	"github.com/gruis/whispr/whisper"
)

// Decode reads one length-prefixed pickle batch from r: a big-endian
// uint32 byte count followed by that many bytes of pickled
// [(name, (timestamp, value)), ...] tuples. It returns the decoded
// points grouped by metric name, in the order carbon sent them.
func Decode(r io.Reader) (map[string][]whisper.Point, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("carbonpickle: reading frame length: %w", err)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("carbonpickle: reading frame body: %w", err)
	}

	items, err := pickle.ListOrTuple(pickle.Unpickle(bytes.NewReader(buf)))
	if err != nil {
		return nil, fmt.Errorf("carbonpickle: unpickling batch: %w", err)
	}

	batches := make(map[string][]whisper.Point)
	for _, item := range items {
		itemSlice, err := pickle.ListOrTuple(item, nil)
		if err != nil {
			return nil, fmt.Errorf("carbonpickle: decoding item: %w", err)
		}
		if len(itemSlice) != 2 {
			return nil, fmt.Errorf("carbonpickle: item has %d elements, want 2", len(itemSlice))
		}

		name, err := pickle.String(itemSlice[0], nil)
		if err != nil {
			return nil, fmt.Errorf("carbonpickle: decoding metric name: %w", err)
		}

		dp, err := pickle.ListOrTuple(itemSlice[1], nil)
		if err != nil {
			return nil, fmt.Errorf("carbonpickle: decoding data point: %w", err)
		}
		if len(dp) != 2 {
			return nil, fmt.Errorf("carbonpickle: data point has %d elements, want 2", len(dp))
		}

		tstamp, err := pickle.Int(dp[0], nil)
		if err != nil {
			return nil, fmt.Errorf("carbonpickle: decoding timestamp: %w", err)
		}

		value, ferr := pickle.Float(dp[1], nil)
		if ferr != nil {
			ival, ierr := pickle.Int(dp[1], nil)
			if ierr != nil {
				return nil, fmt.Errorf("carbonpickle: decoding value: %w", ferr)
			}
			value = float64(ival)
		}

		batches[name] = append(batches[name], whisper.Point{Interval: uint32(tstamp), Value: value})
	}
	return batches, nil
}

var (
	sanitizeSpace       = regexp.MustCompile(`\s+`)
	sanitizeSlash       = regexp.MustCompile(`/`)
	sanitizeNonAlphaNum = regexp.MustCompile(`[^a-zA-Z_\-0-9.]`)
)

// SanitizeName maps an arbitrary carbon metric name to a safe path
// component: whitespace becomes an underscore, slashes become a
// dash, and anything left that isn't alphanumeric, dot, dash or
// underscore is dropped.
func SanitizeName(name string) string {
	name = sanitizeSpace.ReplaceAllString(name, "_")
	name = sanitizeSlash.ReplaceAllString(name, "-")
	return sanitizeNonAlphaNum.ReplaceAllString(name, "")
}

// Ingest opens (creating with archives if absent) the .wsp file for
// each metric in batches under root and updates it with that metric's
// points.
type Ingest struct {
	Root     string
	Archives []whisper.ArchiveSpec
	Options  *whisper.Options
}

// Apply writes every metric's points to its file under Root, creating
// the file on first sight of a metric.
func (in *Ingest) Apply(batches map[string][]whisper.Point) error {
	for name, points := range batches {
		path := filepath.Join(in.Root, SanitizeName(name)+".wsp")

		h, err := whisper.Open(path, false)
		if errors.Is(err, os.ErrNotExist) {
			h, err = whisper.Create(path, in.Archives, in.Options)
		}
		if err != nil {
			return fmt.Errorf("carbonpickle: opening %s: %w", path, err)
		}

		werr := h.UpdatePoints(points)
		cerr := h.Close()
		if werr != nil {
			return fmt.Errorf("carbonpickle: updating %s: %w", path, werr)
		}
		if cerr != nil {
			return fmt.Errorf("carbonpickle: closing %s: %w", path, cerr)
		}
	}
	return nil
}
