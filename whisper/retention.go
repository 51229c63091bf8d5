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
	"strconv"
	"strings"
)

var unitMultiplier = map[byte]uint32{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
	'y': 31536000,
}

// parseUnitCount splits a trailing unit letter off of a decimal count. A
// bare integer has no unit and multiplier 1.
func parseUnitCount(s string) (count uint32, multiplier uint32, err error) {
	if s == "" {
		return 0, 0, newErr("parseUnitCount", ValueError, errMalformed(s))
	}
	last := s[len(s)-1]
	if mult, ok := unitMultiplier[last]; ok {
		n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
		if err != nil {
			return 0, 0, newErr("parseUnitCount", ValueError, err)
		}
		return uint32(n), mult, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, 0, newErr("parseUnitCount", ValueError, err)
	}
	return uint32(n), 1, nil
}

type malformedError struct{ s string }

func (e *malformedError) Error() string { return "malformed retention definition: " + e.s }

func errMalformed(s string) error { return &malformedError{s} }

// ParseRetentionDef parses a retention definition such as "30s:7d" into a
// (secondsPerPoint, points) pair. Precision is a bare integer (seconds) or
// an integer followed by a unit in {s, m, h, d, w, y}. Retention is either
// a bare integer point count or a duration (integer + unit) which is
// divided by the precision, truncating.
func ParseRetentionDef(def string) (secondsPerPoint, points uint32, err error) {
	parts := strings.SplitN(def, ":", 2)
	if len(parts) != 2 {
		return 0, 0, newErr("ParseRetentionDef", ValueError, errMalformed(def))
	}

	precisionCount, precisionMult, err := parseUnitCount(parts[0])
	if err != nil {
		return 0, 0, newErr("ParseRetentionDef", ValueError, err)
	}
	secondsPerPoint = precisionCount * precisionMult

	pointCount, pointMult, err := parseUnitCount(parts[1])
	if err != nil {
		return 0, 0, newErr("ParseRetentionDef", ValueError, err)
	}
	if pointMult == 1 {
		points = pointCount
	} else {
		if secondsPerPoint == 0 {
			return 0, 0, newErr("ParseRetentionDef", ValueError, errMalformed(def))
		}
		points = (pointCount * pointMult) / secondsPerPoint
	}

	return secondsPerPoint, points, nil
}
