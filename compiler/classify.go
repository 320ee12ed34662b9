package compiler

import (
	"net/netip"
	"strings"

	"github.com/miekg/dns"

	"github.com/AdguardTeam/ubxfilter/rules"
)

// parsedRules is the intermediate result of stage 1 (lex & classify) and
// stage 2 (parse network/cosmetic rules), before badfilter folding and
// snapshot emission.
type parsedRules struct {
	network  []*rules.NetworkRule
	cosmetic []*rules.CosmeticRule
}

// parseAll lexes and classifies every line of every list text, delegating
// actual rule parsing to the rules package. Hosts-file-format lines are
// folded into hostname-anchored BLOCK network rules here, since that's a
// classification-stage concern, not a rules.Rule type of its own.
func (c *Compiler) parseAll(texts []string) (parsedRules, []ListStats) {
	var out parsedRules
	stats := make([]ListStats, len(texts))

	for listID, text := range texts {
		ls := ListStats{ListID: listID, SkippedByReason: map[string]int{}}

		if c.cfg.MaxBytesPerList > 0 && len(text) > c.cfg.MaxBytesPerList {
			ls.SkippedByReason["list_too_large"]++
			stats[listID] = ls
			continue
		}

		for _, rawLine := range strings.Split(text, "\n") {
			line := strings.TrimSpace(strings.TrimSuffix(rawLine, "\r"))
			ls.TotalLines++

			if line == "" || line[0] == '[' {
				// Empty lines and Adblock Plus "[Adblock Plus x.y]" headers
				// carry no rule.
				continue
			}

			r, err := rules.NewRule(line, listID)
			if err != nil {
				ls.SkippedByReason["parse_error"]++
				continue
			}
			if r == nil {
				// comment
				continue
			}

			ls.RulesBeforeNormalization++

			switch v := r.(type) {
			case *rules.NetworkRule:
				if c.cfg.MaxRegexLength > 0 && v.IsRegexRule() && len(v.Pattern()) > c.cfg.MaxRegexLength {
					ls.SkippedByReason["regex_too_long"]++
					continue
				}

				out.network = append(out.network, v)
				ls.RulesAfterNormalization++
			case *rules.CosmeticRule:
				out.cosmetic = append(out.cosmetic, v)
				ls.RulesAfterNormalization++
			case *rules.HostRule:
				folded := foldHostsRule(v, listID)
				if len(folded) == 0 {
					ls.SkippedByReason["hosts_entry_not_blocking"]++
					continue
				}

				out.network = append(out.network, folded...)
				ls.RulesAfterNormalization += len(folded)
			}

			if c.cfg.MaxRulesPerList > 0 && ls.RulesAfterNormalization >= c.cfg.MaxRulesPerList {
				break
			}
		}

		stats[listID] = ls
	}

	return out, stats
}

// blockingHostIPs are the four conventional "this host is blocked" addresses
// a hosts-file-format list uses; any other address is a DNS override outside
// this engine's scope and is left unfolded.
var blockingHostIPs = map[netip.Addr]bool{
	netip.IPv4Unspecified():          true,
	netip.MustParseAddr("127.0.0.1"): true,
	netip.MustParseAddr("::"):        true,
	netip.MustParseAddr("::1"):       true,
}

// foldHostsRule turns a 0.0.0.0/127.0.0.1 hosts-file entry into one
// hostname-anchored BLOCK network rule per hostname, scoped to
// main_frame and subdocument requests, matching bb-compiler/src/parser.rs's
// parse_hosts_file_domain. Non-blocking addresses (real DNS rewrites) and
// "localhost" are skipped; they're outside this engine's scope.
func foldHostsRule(hr *rules.HostRule, listID int) []*rules.NetworkRule {
	if !blockingHostIPs[hr.IP] {
		return nil
	}

	var out []*rules.NetworkRule
	for _, host := range hr.Hostnames {
		if host == "" || host == "localhost" || host == "localhost.localdomain" {
			continue
		}

		if _, ok := dns.IsDomainName(host); !ok {
			continue
		}

		text := "||" + strings.ToLower(host) + "^$main_frame,subdocument"
		nr, err := rules.NewNetworkRule(text, listID)
		if err != nil {
			continue
		}

		out = append(out, nr)
	}

	return out
}
