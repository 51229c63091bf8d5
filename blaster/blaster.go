//
// Copyright 2017 Gregory Trubetskoy. All Rights Reserved.
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

// Package blaster provides some stress testing capabilities against a
// pool of open whisper files.
package blaster

import (
	"context"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"golang.org/x/time/rate"

	"github.com/gruis/whispr/whisper"
)

// Reporter receives runtime stats blaster gathers about itself; it
// exists so a caller can wire it into whatever monitoring it already
// has, without blaster taking a dependency on it.
type Reporter func(name string, value float64)

// Blaster repeatedly writes a synthetic sinusoid into a pool of open
// whisper handles, rate-limited by golang.org/x/time/rate.
type Blaster struct {
	handles  []*whisper.Handle
	limiter  *rate.Limiter
	span     time.Duration
	reporter Reporter

	mu sync.Mutex
}

// New creates a Blaster with a zero rate (no writes until SetRate is
// called) and starts its background write loop.
func New(reporter Reporter) *Blaster {
	b := &Blaster{
		limiter:  rate.NewLimiter(rate.Limit(0), 1),
		span:     600 * time.Second,
		reporter: reporter,
	}
	go blast(b)
	if reporter != nil {
		go reportRuntime(reporter)
	}
	return b
}

// SetRate reshapes the write rate at runtime, in updates per second.
func (b *Blaster) SetRate(perSec int) {
	b.limiter.SetLimit(rate.Limit(perSec))
	log.Printf("blaster: rate is now %d/sec, pool size %d", perSec, len(b.handles))
}

// SetHandles replaces the pool of handles blaster writes into.
func (b *Blaster) SetHandles(handles []*whisper.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handles = handles
	log.Printf("blaster: pool size is now %d, rate is %v/sec", len(handles), b.limiter.Limit())
}

// cycle picks a random handle from the pool and writes one synthetic
// point into it. It returns false if there was nothing to write to.
func (b *Blaster) cycle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limiter.Limit() == 0 {
		time.Sleep(time.Second)
		return false
	}
	if len(b.handles) == 0 {
		return false
	}

	n := rand.Intn(len(b.handles))
	now := time.Now()
	offset := time.Duration(n*10) * time.Second
	y := sinTime(now.Add(offset), b.span) * 100

	if err := b.handles[n].UpdateNow(y); err != nil {
		log.Printf("blaster: UpdateNow on handle %d: %v", n, err)
		return false
	}
	return true
}

func blast(b *Blaster) {
	ctx := context.Background()
	cnt := 0
	lastStat := time.Now()
	statPeriod := 10 * time.Second

	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}
		if b.cycle() {
			cnt++
		}
		if cnt > 0 && cnt%1000 == 0 {
			if elapsed := time.Since(lastStat); elapsed > statPeriod {
				log.Printf("blaster: %d writes, %.1f/sec", cnt, float64(cnt)/elapsed.Seconds())
				cnt = 0
				lastStat = time.Now()
			}
		}
	}
}

// sinTime returns a Y value tracing a sinusoid spanning span.
func sinTime(t time.Time, span time.Duration) float64 {
	seconds := span.Nanoseconds() / 1e9
	x := 2 * math.Pi / float64(seconds) * float64(t.Unix()%seconds)
	return math.Sin(x)
}

func reportRuntime(report Reporter) {
	for {
		time.Sleep(5 * time.Second)
		report("runtime.cpu.percent", cpuPercent())
		report("runtime.mem.alloc", float64(memAlloc()))
	}
}

func cpuPercent() float64 {
	ps, _ := cpu.Percent(0, false)
	if len(ps) > 0 {
		return ps[0]
	}
	return 0
}

func memAlloc() uint64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return mem.Alloc
}
