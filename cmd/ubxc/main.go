// Command ubxc compiles ABP/uBO filter-list text files into a single UBX
// snapshot and prints per-list compile statistics.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/log"
	goFlags "github.com/jessevdk/go-flags"
	"github.com/miekg/dns"

	"github.com/AdguardTeam/ubxfilter/compiler"
)

// Options are ubxc's console arguments.
type Options struct {
	// FilterLists are paths to the filter-list text files, compiled in the
	// given order; a list's id is its position in this slice.
	FilterLists []string `short:"f" long:"filter" description:"Path to a filter list. Can be specified multiple times, in compile order." required:"true"`

	// Output is where the compiled UBX snapshot is written.
	Output string `short:"o" long:"output" description:"Path to write the compiled .ubx snapshot to." default:"filters.ubx"`

	// NoCRC32 disables the snapshot's whole-file CRC32.
	NoCRC32 bool `long:"no-crc32" description:"Skip computing the snapshot's whole-file CRC32." optional:"yes" optional-value:"true"`

	// ResolveCheck, when given one or more hostnames, probes that they
	// resolve before compiling and reports failures as warnings, never a
	// hard failure.
	ResolveCheck []string `long:"resolve-check" description:"Hostname to verify resolves via DNS before compiling (warning only). Can be specified multiple times."`

	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`
}

func main() {
	var options Options
	parser := goFlags.NewParser(&options, goFlags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if options.Verbose {
		log.SetLevel(log.DEBUG)
	}

	run(options)
}

func run(options Options) {
	resolveCheck(options.ResolveCheck)

	texts := make([]string, 0, len(options.FilterLists))
	for _, path := range options.FilterLists {
		// nolint: gosec
		b, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("reading filter list %s: %v", path, err)
		}
		texts = append(texts, string(b))
	}

	cfg := compiler.DefaultConfig()
	cfg.WithCRC32 = !options.NoCRC32

	snapshot, stats, err := compiler.New(cfg).Compile(texts)
	if err != nil {
		log.Fatalf("compile failed: %v", err)
	}

	// nolint: gosec
	if err = os.WriteFile(options.Output, snapshot, 0o644); err != nil {
		log.Fatalf("writing snapshot to %s: %v", options.Output, err)
	}

	printStats(options, stats, len(snapshot))
}

func printStats(options Options, stats compiler.Stats, snapshotBytes int) {
	log.Printf("wrote %s: %d bytes in %s", options.Output, snapshotBytes, stats.Duration)
	log.Printf("rules: %d before, %d after, %d deduped, %d badfilter, %d badfiltered",
		stats.RulesBefore, stats.RulesAfter, stats.RulesDeduped, stats.BadfilterRules, stats.BadfilteredRules)

	if stats.ResourceUsage.PeakRSSBytes > 0 {
		log.Printf("peak RSS: %d bytes, CPU time: %.2fs",
			stats.ResourceUsage.PeakRSSBytes, stats.ResourceUsage.CPUTimeSeconds)
	}

	for _, ls := range stats.PerList {
		fmt.Printf("  list %d (%s): %d lines, %d before norm, %d after norm\n",
			ls.ListID, options.FilterLists[ls.ListID], ls.TotalLines,
			ls.RulesBeforeNormalization, ls.RulesAfterNormalization)
		for reason, n := range ls.SkippedByReason {
			fmt.Printf("    skipped %d rules: %s\n", n, reason)
		}
	}
}

// resolveCheck probes that each hostname resolves via DNS, logging a warning
// (never a hard failure) for any that don't: useful for catching a typo'd
// redirect-resource or trusted-site hostname before shipping a snapshot.
func resolveCheck(hosts []string) {
	if len(hosts) == 0 {
		return
	}

	client := &dns.Client{Timeout: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, host := range hosts {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

		reply, _, err := client.ExchangeContext(ctx, msg, "8.8.8.8:53")
		if err != nil {
			log.Printf("WARNING: resolve-check %s: %v", host, err)
			continue
		}
		if reply.Rcode != dns.RcodeSuccess || len(reply.Answer) == 0 {
			log.Printf("WARNING: resolve-check %s: no A records (rcode=%d)", host, reply.Rcode)
		}
	}
}
