// Command shmcache-inspect is a small diagnostic CLI for a running process
// that embeds pkg/shmcache and exposes its Info snapshot as JSON at
// /debug/shmcache/snapshot. It fetches and renders that snapshot, optionally
// polling on an interval, and can also pull a pprof profile from the same
// process — the same three jobs arena-cache-inspect performed for the
// teacher's cache, retargeted at shmcache's counters instead of CLOCK-Pro's
// eviction counters.
//
// Build-time flag: `-ldflags "-X main.version=vX.Y.Z"` is set by GoReleaser.
//
// © 2025 shmcache authors. MIT License.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Voskan/shmcache/pkg/shmcache"
)

var version = "dev"

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.heapProfile != "" {
		if err := downloadProfile(ctx, opts.target, "heap", opts.heapProfile); err != nil {
			fatal(err)
		}
		return
	}
	if opts.goroutineProfile != "" {
		if err := downloadProfile(ctx, opts.target, "goroutine", opts.goroutineProfile); err != nil {
			fatal(err)
		}
		return
	}

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (shmcache.Info, error) {
	url := base + "/debug/shmcache/snapshot"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return shmcache.Info{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return shmcache.Info{}, fmt.Errorf("unexpected status %s", res.Status)
	}
	var info shmcache.Info
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return shmcache.Info{}, err
	}
	return info, nil
}

func prettyPrint(info shmcache.Info) error {
	fmt.Printf("Hits:      %d\n", info.NHits)
	fmt.Printf("Misses:    %d\n", info.NMisses)
	fmt.Printf("Inserts:   %d\n", info.NInserts)
	fmt.Printf("Expunges:  %d\n", info.NExpunges)
	fmt.Printf("Entries:   %d\n", info.NEntries)
	fmt.Printf("Mem MB:    %.2f\n", float64(info.MemSize)/1_048_576)
	fmt.Printf("Avail MB:  %.2f\n", float64(info.AvailMem)/1_048_576)
	fmt.Printf("Busy:      %v\n", info.Busy)
	fmt.Printf("Uptime:    %s\n", info.Uptime(time.Now().Unix()))
	return nil
}

func downloadProfile(ctx context.Context, base, name, path string) error {
	url := fmt.Sprintf("%s/debug/pprof/%s", base, name)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, res.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s profile saved to %s\n", name, path)
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "shmcache-inspect:", err)
	os.Exit(1)
}
