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

// wsp is a command line tool for creating, updating, fetching from
// and inspecting whisper files, in the spirit of the classic
// whisper-*.py scripts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gruis/whispr/whisper"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = cmdCreate(os.Args[2:])
	case "update":
		err = cmdUpdate(os.Args[2:])
	case "fetch":
		err = cmdFetch(os.Args[2:])
	case "info":
		err = cmdInfo(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("wsp %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: wsp <create|update|fetch|info> [flags]")
}

func cmdCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	retentions := fs.String("retentions", "", "comma-separated retention list, e.g. 30s:7d,1m:6h")
	schemaPath := fs.String("schema", "", "path to a TOML storage-schemas file")
	metric := fs.String("metric", "", "metric name to look up in -schema (required with -schema)")
	xff := fs.Float64("xFilesFactor", 0.5, "fraction of known points required to propagate")
	method := fs.String("aggregationMethod", "average", "average|sum|last|max|min")
	overwrite := fs.Bool("overwrite", false, "overwrite an existing file")
	sparse := fs.Bool("sparse", false, "create a sparse (hole-punched) file instead of zero-filling it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	path := fs.Arg(0)

	var archives []whisper.ArchiveSpec
	opts := &whisper.Options{Overwrite: *overwrite, Sparse: *sparse}

	if *schemaPath != "" {
		if *metric == "" {
			return fmt.Errorf("-metric is required with -schema")
		}
		sf, err := readSchemaFile(*schemaPath)
		if err != nil {
			return err
		}
		archives, opts, err = sf.archivesFor(*metric)
		if err != nil {
			return err
		}
		opts.Overwrite = *overwrite
		opts.Sparse = *sparse
	} else {
		if *retentions == "" {
			return fmt.Errorf("-retentions or -schema is required")
		}
		var err error
		if archives, err = parseArchiveList(*retentions); err != nil {
			return err
		}
		m, err := parseAggregationMethod(*method)
		if err != nil {
			return err
		}
		opts.AggregationMethod = m
		opts.XFilesFactor = xff
	}

	h, err := whisper.Create(path, archives, opts)
	if err != nil {
		return err
	}
	return h.Close()
}

func cmdUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: wsp update <path> <timestamp:value>[,<timestamp:value>...]")
	}
	path := fs.Arg(0)

	points, err := parsePoints(fs.Arg(1))
	if err != nil {
		return err
	}

	h, err := whisper.Open(path, true)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.UpdatePoints(points)
}

func parsePoints(spec string) ([]whisper.Point, error) {
	parts := strings.Split(spec, ",")
	points := make([]whisper.Point, 0, len(parts))
	for _, p := range parts {
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed point %q, want timestamp:value", p)
		}
		ts, err := strconv.ParseInt(kv[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed timestamp %q: %w", kv[0], err)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed value %q: %w", kv[1], err)
		}
		points = append(points, whisper.Point{Interval: uint32(ts), Value: v})
	}
	return points, nil
}

func cmdFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	from := fs.Int64("from", time.Now().Add(-24*time.Hour).Unix(), "unix timestamp to fetch from")
	until := fs.Int64("until", 0, "unix timestamp to fetch until (0 means now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}

	h, err := whisper.Open(fs.Arg(0), false)
	if err != nil {
		return err
	}
	defer h.Close()

	var untilArg *int64
	if *until != 0 {
		untilArg = until
	}
	res, err := h.Fetch(*from, untilArg)
	if err != nil {
		return err
	}

	t := res.TimeInfo.From
	for _, v := range res.Values {
		fmt.Printf("%d\t%v\n", t, v)
		t += int64(res.TimeInfo.Step)
	}
	return nil
}

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}

	h, err := whisper.Open(fs.Arg(0), false)
	if err != nil {
		return err
	}
	defer h.Close()

	info := h.Info()
	fmt.Printf("maxRetention: %d\n", info.MaxRetention)
	fmt.Printf("xFilesFactor: %v\n", info.XFilesFactor)
	fmt.Printf("aggregationMethod: %v\n", info.AggregationMethod)
	for i, a := range info.Archives {
		fmt.Printf("archive %d: secondsPerPoint=%d points=%d retention=%d\n", i, a.SecondsPerPoint, a.Points, a.Retention)
	}
	return nil
}
