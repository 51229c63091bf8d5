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

package integrity

import (
	"testing"

	"github.com/gruis/whispr/whisper"
)

func newTestFile(t *testing.T) *whisper.Handle {
	t.Helper()
	h, err := whisper.CreateContainer(whisper.NewMemoryContainer(), []whisper.ArchiveSpec{
		{SecondsPerPoint: 60, Points: 60},
		{SecondsPerPoint: 300, Points: 24},
	}, nil)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	return h
}

func TestDigest_StableAcrossIdenticalFiles(t *testing.T) {
	a := newTestFile(t)
	b := newTestFile(t)

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest(a): %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("Digest(b): %v", err)
	}
	if !da.Equal(db) {
		t.Errorf("two freshly created identical files should digest equal: %+v vs %+v", da, db)
	}
}

func TestDigest_ChangesAfterWrite(t *testing.T) {
	h := newTestFile(t)
	before, err := Digest(h)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	if err := h.UpdateNow(42); err != nil {
		t.Fatalf("UpdateNow: %v", err)
	}

	after, err := Digest(h)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if before.Equal(after) {
		t.Error("digest should change after a write")
	}
	if before.Header != after.Header {
		t.Error("header digest should not change from a data write")
	}
}

func TestArchiveDigest_RejectsBadIndex(t *testing.T) {
	h := newTestFile(t)
	if _, err := ArchiveDigest(h, 99); err == nil {
		t.Fatal("expected an error for an out-of-range archive index")
	}
}
