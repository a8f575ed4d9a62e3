// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

/*
bio-read-convert reads a sharded BAM dataset (a directory of part-* files, or
a single BAM file) and converts it to a columnar shard file. With -head it
prints the first reads instead of converting, which is handy for spot checks.
*/

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/readsource/encoding/colfmt"
	"github.com/grailbio/readsource/interval"
	"github.com/grailbio/readsource/reads"
)

var (
	out          = flag.String("out", "", "Output columnar shard path; this xor -head required")
	region       = flag.String("region", "", "Restrict conversion to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	head         = flag.Int("head", 0, "Print the first N reads instead of converting")
	parallelism  = flag.Int("parallelism", 0, "Maximum number of shard splits read simultaneously; 0 = runtime.NumCPU()")
	blockRecords = flag.Int("block-records", colfmt.DefaultBlockRecords, "Records per output block")
	useSnappy    = flag.Bool("snappy", false, "Compress output blocks with snappy instead of zstd")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Exactly one positional argument (bampath) expected")
	}
	if (*out == "") == (*head <= 0) {
		log.Fatalf("Exactly one of -out and -head must be given")
	}
	ctx := vcontext.Background()
	path := flag.Arg(0)

	var intervals []interval.Interval
	if *region != "" {
		iv, err := interval.Parse(*region, math.MaxInt32)
		if err != nil {
			log.Fatalf("%v", err)
		}
		intervals = append(intervals, iv)
	}
	src := reads.NewSource(reads.Opts{Parallelism: *parallelism})
	st, err := src.Reads(ctx, path, intervals)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	if *out != "" {
		err = convert(st, path)
	} else {
		err = printHead(st)
	}
	if e := st.Close(); err == nil {
		err = e
	}
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
}

func convert(st *reads.Stream, path string) error {
	ctx := vcontext.Background()
	header, err := reads.ResolveHeader(ctx, path)
	if err != nil {
		return err
	}
	w, err := colfmt.NewWriter(ctx, *out, header, colfmt.WriterOpts{
		BlockRecords: *blockRecords,
		Snappy:       *useSnappy,
	})
	if err != nil {
		return err
	}
	n := 0
	for st.Scan() {
		w.Append(colfmt.FromSAM(st.Read().SAM()))
		n++
	}
	if err := w.Close(ctx); err != nil {
		return err
	}
	log.Printf("%s: wrote %d reads to %s", path, n, *out)
	return nil
}

func printHead(st *reads.Stream) error {
	for i := 0; i < *head && st.Scan(); i++ {
		r := st.Read()
		fmt.Printf("%s\t%s\t%d\t%d\t%d\t0x%x\n",
			r.Name(), r.RefName(), r.Start(), r.End(), r.MapQ(), r.Flags())
	}
	return nil
}
