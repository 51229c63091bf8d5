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

// Package cluster provides an advisory ownership check for whisper
// file paths across a group of nodes, built on top of memberlist.
// It does not coordinate writers itself — a node that skips the
// Owns() check can still write to a file another node also thinks it
// owns, with the usual stale-propagation consequences of two writers
// on one ring buffer.
package cluster

import (
	"log"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/memberlist"
)

// Ownership wraps a memberlist.Memberlist and assigns each whisper
// file path to exactly one live member, by rendezvous (highest random
// weight) hashing.
type Ownership struct {
	*memberlist.Memberlist
}

// New creates an Ownership member with reasonable LAN defaults,
// listening and advertising on the given bind address/port (zero
// values pick memberlist's own defaults).
func New(bindAddr string, bindPort int, name string) (*Ownership, error) {
	cfg := memberlist.DefaultLANConfig()
	if bindAddr != "" {
		cfg.BindAddr = bindAddr
	}
	if bindPort != 0 {
		cfg.BindPort = bindPort
	}
	if name != "" {
		cfg.Name = name
	}
	cfg.LogOutput = &logger{}

	ml, err := memberlist.Create(cfg)
	if err != nil {
		return nil, err
	}
	return &Ownership{Memberlist: ml}, nil
}

// Join joins an existing cluster given at least one node's
// address:port. A cluster of one node can always join itself.
func (o *Ownership) Join(existing []string) error {
	if n, err := o.Memberlist.Join(existing); n <= 0 {
		return err
	}
	return nil
}

// Owns reports whether the local node is the current owner of path.
// Ownership is recomputed on every call from the live member list, so
// it tracks joins and leaves without any separate rebalancing step.
func (o *Ownership) Owns(path string) bool {
	local := o.Memberlist.LocalNode()
	return owner(o.Memberlist.Members(), path).Name == local.Name
}

// owner picks the member with the highest rendezvous score for path.
// Rendezvous hashing means adding or removing one member only
// reassigns the paths that hashed best to that member — every other
// path's owner is unchanged.
func owner(members []*memberlist.Node, path string) *memberlist.Node {
	sorted := make([]*memberlist.Node, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var best *memberlist.Node
	var bestScore uint64
	for _, m := range sorted {
		score := xxhash.Sum64String(m.Name + "\x00" + path)
		if best == nil || score > bestScore {
			best = m
			bestScore = score
		}
	}
	return best
}

type logger struct{}

// Write drops memberlist's [DEBUG] lines and forwards the rest to the
// standard logger.
func (l *logger) Write(b []byte) (int, error) {
	s := string(b)
	if !strings.Contains(s, "[DEBUG]") {
		log.Print(s)
	}
	return len(s), nil
}
