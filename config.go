//
// Copyright 2015 Gregory Trubetskoy. All Rights Reserved.
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

package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gruis/whispr/whisper"
)

// schemaFile is a carbon storage-schemas.conf-style retention schema:
// a list of named patterns, each carrying an inline retention list.
type schemaFile struct {
	Schemas []schemaEntry `toml:"schema"`
}

type schemaEntry struct {
	Name       string `toml:"name"`
	Pattern    regex  `toml:"pattern"`
	Retentions string `toml:"retentions"`
	XFF        *float64
	Method     string
}

// regex compiles its TOML string value as a regular expression at
// load time, so a malformed pattern fails fast instead of at match
// time.
type regex struct {
	*regexp.Regexp
	Text string
}

func (r *regex) UnmarshalText(text []byte) error {
	var err error
	r.Text = string(text)
	r.Regexp, err = regexp.Compile(string(text))
	return err
}

func readSchemaFile(path string) (*schemaFile, error) {
	sf := &schemaFile{}
	if _, err := toml.DecodeFile(path, sf); err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	return sf, nil
}

// archivesFor returns the archive list and options for the first
// schema entry whose pattern matches metric, or an error if none do.
func (sf *schemaFile) archivesFor(metric string) ([]whisper.ArchiveSpec, *whisper.Options, error) {
	for _, s := range sf.Schemas {
		if s.Pattern.Regexp == nil || !s.Pattern.MatchString(metric) {
			continue
		}
		archives, err := parseArchiveList(s.Retentions)
		if err != nil {
			return nil, nil, fmt.Errorf("schema %q: %w", s.Name, err)
		}
		opts := &whisper.Options{XFilesFactor: s.XFF}
		if s.Method != "" {
			m, err := parseAggregationMethod(s.Method)
			if err != nil {
				return nil, nil, fmt.Errorf("schema %q: %w", s.Name, err)
			}
			opts.AggregationMethod = m
		}
		return archives, opts, nil
	}
	return nil, nil, fmt.Errorf("no schema entry matches metric %q", metric)
}

// parseArchiveList parses a comma-separated retention list like
// "30s:7d,1m:6h" into archive specs.
func parseArchiveList(s string) ([]whisper.ArchiveSpec, error) {
	defs := strings.Split(s, ",")
	archives := make([]whisper.ArchiveSpec, 0, len(defs))
	for _, def := range defs {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		secondsPerPoint, points, err := whisper.ParseRetentionDef(def)
		if err != nil {
			return nil, err
		}
		archives = append(archives, whisper.ArchiveSpec{SecondsPerPoint: secondsPerPoint, Points: points})
	}
	return archives, nil
}

func parseAggregationMethod(s string) (whisper.AggregationMethod, error) {
	switch strings.ToLower(s) {
	case "average":
		return whisper.Average, nil
	case "sum":
		return whisper.Sum, nil
	case "last":
		return whisper.Last, nil
	case "max":
		return whisper.Max, nil
	case "min":
		return whisper.Min, nil
	default:
		return 0, fmt.Errorf("unknown aggregation method %q", s)
	}
}
