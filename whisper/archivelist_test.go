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
	"errors"
	"testing"
)

func TestValidateArchiveList_Accepts(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 300, Points: 24},
	})
	if err != nil {
		t.Fatalf("expected a valid archive list, got %v", err)
	}
}

func TestValidateArchiveList_Empty(t *testing.T) {
	if err := ValidateArchiveList(nil); err == nil {
		t.Fatal("expected an error for an empty archive list")
	}
}

func TestValidateArchiveList_UnequalPrecisionNonDivisibility(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 45, Points: 1440},
	})
	if err == nil {
		t.Fatal("expected InvalidConfiguration for non-divisible precisions")
	}
	if !errors.Is(err, InvalidConfiguration) {
		t.Errorf("error kind = %v, want InvalidConfiguration", err)
	}
}

func TestValidateArchiveList_NonIncreasingRetention(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 60, Points: 1440},
		{SecondsPerPoint: 300, Points: 12},
	})
	if err == nil {
		t.Fatal("expected InvalidConfiguration for non-increasing retention")
	}
}

func TestValidateArchiveList_InsufficientPoints(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 60, Points: 2},
		{SecondsPerPoint: 300, Points: 100},
	})
	if err == nil {
		t.Fatal("expected InvalidConfiguration for insufficient consolidation points")
	}
}

func TestValidateArchiveList_DuplicatePrecision(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 60, Points: 120},
	})
	if err == nil {
		t.Fatal("expected InvalidConfiguration for duplicate precisions")
	}
}

func TestValidateArchiveList_UnsortedInputIsFine(t *testing.T) {
	err := ValidateArchiveList([]ArchiveSpec{
		{SecondsPerPoint: 300, Points: 24},
		{SecondsPerPoint: 60, Points: 60},
	})
	if err != nil {
		t.Fatalf("validator should sort its copy before checking: %v", err)
	}
}
