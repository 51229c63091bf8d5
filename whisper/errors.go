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

import "fmt"

// Kind classifies the error families a handle can produce. Every error
// this package returns can be matched against one of these with errors.Is.
type Kind int

const (
	_ Kind = iota
	CorruptFile
	InvalidTimeInterval
	TimestampNotCovered
	InvalidAggregationMethod
	ArchiveBoundaryExceeded
	InvalidConfiguration
	ValueError
	IOError
)

func (k Kind) String() string {
	switch k {
	case CorruptFile:
		return "corrupt file"
	case InvalidTimeInterval:
		return "invalid time interval"
	case TimestampNotCovered:
		return "timestamp not covered"
	case InvalidAggregationMethod:
		return "invalid aggregation method"
	case ArchiveBoundaryExceeded:
		return "archive boundary exceeded"
	case InvalidConfiguration:
		return "invalid configuration"
	case ValueError:
		return "value error"
	case IOError:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// Error lets a bare Kind be used as an errors.Is target, e.g.
// errors.Is(err, whisper.CorruptFile).
func (k Kind) Error() string { return k.String() }

// Error is the concrete error type returned by this package. Op names the
// call that produced it, Kind is its family, and Err (if set) is the
// underlying cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, whisper.CorruptFile) (etc) work directly against a
// bare Kind value, without callers needing to know about *Error.
func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	return false
}

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
