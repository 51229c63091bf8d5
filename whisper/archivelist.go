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
	"sort"
)

// ArchiveSpec is one (secondsPerPoint, points) retention level, as passed
// to Create and ValidateArchiveList.
type ArchiveSpec struct {
	SecondsPerPoint uint32
	Points          uint32
}

func (a ArchiveSpec) retention() uint64 {
	return uint64(a.SecondsPerPoint) * uint64(a.Points)
}

// ValidateArchiveList enforces the five structural rules that make
// multi-resolution propagation well-defined. It operates on a sorted copy
// and never mutates the caller's slice.
func ValidateArchiveList(archives []ArchiveSpec) error {
	if len(archives) == 0 {
		return newErr("ValidateArchiveList", InvalidConfiguration, fmt.Errorf("no archives specified"))
	}

	sorted := make([]ArchiveSpec, len(archives))
	copy(sorted, archives)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SecondsPerPoint < sorted[j].SecondsPerPoint })

	for i := 0; i < len(sorted)-1; i++ {
		fine, coarse := sorted[i], sorted[i+1]

		if fine.SecondsPerPoint == coarse.SecondsPerPoint {
			return newErr("ValidateArchiveList", InvalidConfiguration,
				fmt.Errorf("a duplicate retention interval was found: %d", fine.SecondsPerPoint))
		}

		if coarse.SecondsPerPoint%fine.SecondsPerPoint != 0 {
			return newErr("ValidateArchiveList", InvalidConfiguration,
				fmt.Errorf("higher precision archives' precision must evenly divide all lower precision archives' precision: %d does not divide %d",
					fine.SecondsPerPoint, coarse.SecondsPerPoint))
		}

		if coarse.retention() <= fine.retention() {
			return newErr("ValidateArchiveList", InvalidConfiguration,
				fmt.Errorf("lower precision archives must cover larger time intervals than higher precision archives: %d does not cover greater than %d",
					coarse.retention(), fine.retention()))
		}

		pointsPerConsolidation := coarse.SecondsPerPoint / fine.SecondsPerPoint
		if fine.Points < pointsPerConsolidation {
			return newErr("ValidateArchiveList", InvalidConfiguration,
				fmt.Errorf("each archive must have at least enough points to consolidate to the next archive: archive%d consolidates %d points but it only has %d",
					i, pointsPerConsolidation, fine.Points))
		}
	}

	return nil
}
