package main

// flags.go defines the inspector's command-line surface, kept in its own
// file per teacher convention (main.go wires behavior, flags.go owns the
// options struct and stdlib flag parsing).

import (
	"flag"
	"time"
)

type options struct {
	target           string
	json             bool
	watch            bool
	interval         time.Duration
	heapProfile      string
	goroutineProfile string
	version          bool
}

func parseFlags() *options {
	opts := &options{}

	flag.StringVar(&opts.target, "target", "http://127.0.0.1:6060", "base URL of the process exposing the shmcache debug endpoint")
	flag.BoolVar(&opts.json, "json", false, "print the raw JSON snapshot instead of a formatted summary")
	flag.BoolVar(&opts.watch, "watch", false, "poll the snapshot endpoint repeatedly instead of once")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "polling interval used with -watch")
	flag.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap pprof profile to this path and exit")
	flag.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine pprof profile to this path and exit")
	flag.BoolVar(&opts.version, "version", false, "print the inspector's version and exit")

	flag.Parse()
	return opts
}
