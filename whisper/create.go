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
	"os"
)

const createChunkSize = 16 * 1024

// Options configures Create. The zero value means "use the defaults":
// XFilesFactor nil resolves to 0.5, AggregationMethod's zero value
// resolves to Average.
type Options struct {
	XFilesFactor      *float64
	AggregationMethod AggregationMethod
	Sparse            bool
	Overwrite         bool
}

func (o *Options) resolve() (xff float32, method AggregationMethod, sparse, overwrite bool, err error) {
	xff = 0.5
	method = Average
	if o == nil {
		return xff, method, false, false, nil
	}
	if o.XFilesFactor != nil {
		if *o.XFilesFactor < 0 || *o.XFilesFactor > 1 {
			return 0, 0, false, false, newErr("Create", InvalidConfiguration,
				fmt.Errorf("xFilesFactor %v must be in [0, 1]", *o.XFilesFactor))
		}
		xff = float32(*o.XFilesFactor)
	}
	if o.AggregationMethod != unsetAggregation {
		if !o.AggregationMethod.valid() {
			return 0, 0, false, false, newErr("Create", InvalidConfiguration,
				fmt.Errorf("invalid aggregation method %v", o.AggregationMethod))
		}
		method = o.AggregationMethod
	}
	return xff, method, o.Sparse, o.Overwrite, nil
}

// Create makes a new whisper file at path with the given archives and
// options, and returns a handle open for reading and writing. autoFlush
// on the returned handle defaults to false; use OpenContainer/Open on the
// resulting path to reopen with a different auto-flush setting.
func Create(path string, archives []ArchiveSpec, opts *Options) (*Handle, error) {
	_, _, _, overwrite, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	if !overwrite {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, newErr("Create", InvalidConfiguration, fmt.Errorf("file already exists: %s", path))
		}
	}

	flags := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, newErr("Create", IOError, err)
	}

	h, err := CreateContainer(f, archives, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return h, nil
}

// CreateContainer initializes archives on an already-open container (a
// file the caller opened for writing, or a MemoryContainer) and returns a
// handle for it. Create uses it after opening the file; tests and callers
// without a filesystem call it directly.
func CreateContainer(c Container, archives []ArchiveSpec, opts *Options) (*Handle, error) {
	xff, method, sparse, _, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	if err := ValidateArchiveList(archives); err != nil {
		return nil, err
	}

	hdr, err := writeHeader(c, method, xff, archives)
	if err != nil {
		return nil, err
	}

	totalSize := int64(metadataSize + descriptorSize*len(archives))
	for _, a := range archives {
		totalSize += int64(a.Points) * pointSize
	}

	if sparse {
		if err := c.Truncate(totalSize); err != nil {
			return nil, newErr("CreateContainer", IOError, err)
		}
	} else {
		if err := zeroFill(c, int64(metadataSize+descriptorSize*len(archives)), totalSize); err != nil {
			return nil, err
		}
	}

	if err := c.Sync(); err != nil {
		_ = err // best-effort fsync, per spec
	}

	return newHandle(c, hdr, false)
}

// zeroFill writes zero bytes from start to end in fixed-size chunks.
func zeroFill(c Container, start, end int64) error {
	chunk := make([]byte, createChunkSize)
	for pos := start; pos < end; pos += createChunkSize {
		n := createChunkSize
		if pos+int64(n) > end {
			n = int(end - pos)
		}
		if _, err := c.WriteAt(chunk[:n], pos); err != nil {
			return newErr("zeroFill", IOError, err)
		}
	}
	return nil
}
