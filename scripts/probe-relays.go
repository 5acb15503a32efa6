//go:build ignore

// probe-relays.go dials a list of public Nostr relays and reports which
// accept websocket connections, with connect latency.
//
// Run with: go run scripts/probe-relays.go
package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Relays to probe — the CLI's defaults plus widely used public relays.
var relays = []string{
	// Defaults shipped with the CLI
	"wss://relay.damus.io", "wss://nos.lol",

	// Large general-purpose relays
	"wss://relay.primal.net", "wss://relay.nostr.band",
	"wss://nostr.mom", "wss://offchain.pub",
	"wss://relay.snort.social", "wss://nostr.oxtr.dev",

	// Profile and metadata oriented
	"wss://purplepag.es", "wss://user.kindpag.es",

	// Paid / filtered
	"wss://nostr.wine", "wss://eden.nostr.land",
}

type result struct {
	url     string
	ok      bool
	err     string
	latency time.Duration
}

func probe(url string) result {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	start := time.Now()
	conn, err := nostr.RelayConnect(ctx, url)
	latency := time.Since(start)
	if err != nil {
		// Simplify network errors for display
		msg := err.Error()
		if len(msg) > 60 {
			msg = msg[:60] + "..."
		}
		return result{url: url, err: msg, latency: latency}
	}
	conn.Close()

	return result{url: url, ok: true, latency: latency}
}

func main() {
	jobs := make(chan string, len(relays))
	results := make(chan result, len(relays))

	// Worker pool — 8 concurrent dials
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range jobs {
				results <- probe(url)
			}
		}()
	}

	for _, u := range relays {
		jobs <- u
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect
	var reachable, unreachable []result
	checked := 0
	for r := range results {
		checked++
		fmt.Printf("\r  probing... %d/%d", checked, len(relays))
		if r.ok {
			reachable = append(reachable, r)
		} else {
			unreachable = append(unreachable, r)
		}
	}
	fmt.Printf("\r  done — %d relays probed\n\n", len(relays))

	sort.Slice(reachable, func(i, j int) bool {
		return reachable[i].latency < reachable[j].latency
	})
	sort.Slice(unreachable, func(i, j int) bool {
		return unreachable[i].url < unreachable[j].url
	})

	// ── Report ────────────────────────────────────────────────────────────────
	fmt.Printf("══════════════════════════════════════════════════════\n")
	fmt.Printf("  agentdex Relay Probe Results\n")
	fmt.Printf("  Relays checked: %d\n", len(relays))
	fmt.Printf("══════════════════════════════════════════════════════\n\n")

	if len(reachable) > 0 {
		fmt.Println("── Reachable (fastest first) ──")
		for _, r := range reachable {
			fmt.Printf("  ✦ %-32s %4dms\n", r.url, r.latency.Milliseconds())
		}
		fmt.Println()
	}
	if len(unreachable) > 0 {
		fmt.Println("── Unreachable ──")
		for _, r := range unreachable {
			fmt.Printf("  • %-32s %s\n", r.url, r.err)
		}
		fmt.Println()
	}

	fmt.Println("Relays answering well under a second are good --relay candidates.")
	fmt.Println("══════════════════════════════════════════════════════")
}
