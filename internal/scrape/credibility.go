package scrape

import (
	"net/url"
	"strings"

	"github.com/factlens/factlens/internal/model"
)

// knownSources lists established news outlets by registrable domain.
// Appearing here is a positive trust signal, not a guarantee.
var knownSources = map[string]bool{
	"bbc.com":            true,
	"bbc.co.uk":          true,
	"reuters.com":        true,
	"apnews.com":         true,
	"theguardian.com":    true,
	"nytimes.com":        true,
	"washingtonpost.com": true,
	"aljazeera.com":      true,
	"cnn.com":            true,
	"npr.org":            true,
	"dw.com":             true,
	"france24.com":       true,
	"economist.com":      true,
	"ft.com":             true,
	"wsj.com":            true,
	"bloomberg.com":      true,
	"axios.com":          true,
	"politico.com":       true,
}

// suspiciousTLDs are top-level domains disproportionately used by
// low-quality or impersonation sites.
var suspiciousTLDs = map[string]bool{
	"xyz":  true,
	"top":  true,
	"buzz": true,
	"info": true,
	"club": true,
}

// AssessCredibility scores the subject URL's source domain using cheap
// offline heuristics: TLS, presence on the known-outlet list, TLD
// reputation, and hostname shape. It never fails; an unparseable URL
// yields a zero score.
func AssessCredibility(subject string, https bool) *model.CredibilityReport {
	report := &model.CredibilityReport{HTTPS: https}

	u, err := url.Parse(subject)
	if err != nil || u.Hostname() == "" {
		report.Signals = append(report.Signals, "unparseable URL")
		return report
	}

	domain := registrableDomain(u.Hostname())
	report.Domain = domain

	score := 0.3 // baseline for a reachable, parseable page

	if https {
		score += 0.1
		report.Signals = append(report.Signals, "served over HTTPS")
	} else {
		report.Signals = append(report.Signals, "not served over HTTPS")
	}

	if knownSources[domain] {
		report.KnownSource = true
		score += 0.4
		report.Signals = append(report.Signals, "domain on known-outlet list")
	}

	parts := strings.Split(domain, ".")
	tld := parts[len(parts)-1]
	if suspiciousTLDs[tld] {
		score -= 0.2
		report.Signals = append(report.Signals, "suspicious top-level domain ."+tld)
	}

	// Long hyphenated hostnames are a common impersonation pattern
	// (bbc-news-breaking.example).
	if strings.Count(u.Hostname(), "-") >= 2 {
		score -= 0.1
		report.Signals = append(report.Signals, "hyphen-heavy hostname")
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	report.OverallScore = round2(score)
	return report
}

// registrableDomain strips subdomains down to the registrable part.
// A two-label heuristic suffices here; country-code second-level
// domains like co.uk get a third label kept.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}

	// co.uk, com.au and friends
	secondLevel := parts[len(parts)-2]
	if len(parts) >= 3 && (secondLevel == "co" || secondLevel == "com" || secondLevel == "org" || secondLevel == "ac") && len(parts[len(parts)-1]) == 2 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
