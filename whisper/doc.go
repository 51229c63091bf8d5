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

// Package whisper implements a fixed-size, round-robin time series file
// format compatible with Graphite's Whisper files, and the engine that
// creates, reads, updates and downsamples them.
//
// A file stores one metric as a 16-byte header followed by one or more
// archives, each a ring of fixed-size points at its own resolution.
// Writes land in the finest archive and cascade into the coarser ones
// through propagation, gated by an x-files-factor. Everything here
// operates on a Container rather than a path directly, so a Handle works
// the same whether it's backed by an *os.File or an in-memory buffer.
package whisper
