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

// AggregationMethod selects how a finer archive's window is consolidated
// into a single coarser-archive value. The zero value is "unset" and
// resolves to Average; on disk it is stored as the codes below.
type AggregationMethod uint32

const (
	unsetAggregation AggregationMethod = 0
	Average          AggregationMethod = 1
	Sum              AggregationMethod = 2
	Last             AggregationMethod = 3
	Max              AggregationMethod = 4
	Min              AggregationMethod = 5
)

func (m AggregationMethod) String() string {
	switch m {
	case Average:
		return "average"
	case Sum:
		return "sum"
	case Last:
		return "last"
	case Max:
		return "max"
	case Min:
		return "min"
	default:
		return fmt.Sprintf("aggregation(%d)", uint32(m))
	}
}

func (m AggregationMethod) valid() bool {
	switch m {
	case Average, Sum, Last, Max, Min:
		return true
	}
	return false
}

// aggregate applies m to the known values in a propagation window. It
// assumes at least one known value; callers gate on the x-files-factor
// before calling this. lastKnown is the value at the highest-indexed
// known slot in scan order, tracked by the caller while walking the
// window.
func aggregate(m AggregationMethod, known []float64, lastKnown float64) (float64, error) {
	switch m {
	case Average:
		var sum float64
		for _, v := range known {
			sum += v
		}
		return sum / float64(len(known)), nil
	case Sum:
		var sum float64
		for _, v := range known {
			sum += v
		}
		return sum, nil
	case Last:
		return lastKnown, nil
	case Max:
		max := known[0]
		for _, v := range known[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	case Min:
		min := known[0]
		for _, v := range known[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	default:
		return 0, newErr("aggregate", InvalidAggregationMethod, fmt.Errorf("unrecognized aggregation method %v", m))
	}
}
