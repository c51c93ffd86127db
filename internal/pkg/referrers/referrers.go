package referrers

import (
	"net/url"
	"sort"
	"strings"
)

// Direct is the display name for clicks without a usable referrer.
const Direct = "Direct"

// Common referrer hostnames mapped to friendly display names
var knownReferrers = map[string]string{
	// Search engines
	"google.com":     "Google",
	"google.co.in":   "Google",
	"google.co.uk":   "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yahoo.com":      "Yahoo",

	// Social media
	"x.com":           "X/Twitter",
	"twitter.com":     "X/Twitter",
	"t.co":            "X/Twitter",
	"facebook.com":    "Facebook",
	"fb.com":          "Facebook",
	"instagram.com":   "Instagram",
	"linkedin.com":    "LinkedIn",
	"lnkd.in":         "LinkedIn",
	"tiktok.com":      "TikTok",
	"pinterest.com":   "Pinterest",
	"reddit.com":      "Reddit",
	"threads.net":     "Threads",
	"bsky.app":        "Bluesky",
	"youtube.com":     "YouTube",
	"youtu.be":        "YouTube",
	"snapchat.com":    "Snapchat",
	"discord.com":     "Discord",
	"whatsapp.com":    "WhatsApp",
	"wa.me":           "WhatsApp",
	"t.me":            "Telegram",
	"telegram.org":    "Telegram",
	"linktr.ee":       "Linktree",
	"twitch.tv":       "Twitch",

	// Communities
	"news.ycombinator.com": "Hacker News",
	"producthunt.com":      "Product Hunt",

	// Email providers
	"mail.google.com":  "Gmail",
	"outlook.live.com": "Outlook",

	// Link shorteners
	"bit.ly":      "Bitly",
	"tinyurl.com": "TinyURL",
}

// Known domains, longest first, so the most specific suffix wins.
var knownDomains = func() []string {
	domains := make([]string, 0, len(knownReferrers))
	for domain := range knownReferrers {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		if len(domains[i]) != len(domains[j]) {
			return len(domains[i]) > len(domains[j])
		}
		return domains[i] < domains[j]
	})
	return domains
}()

// FriendlyName returns a human-friendly name for a referrer hostname.
// Unknown hostnames come back without "www." and with the first letter capitalized.
func FriendlyName(hostname string) string {
	hostname = NormalizeHostname(hostname)
	if hostname == "" {
		return Direct
	}

	if name, ok := knownReferrers[hostname]; ok {
		return name
	}

	for _, domain := range knownDomains {
		if strings.HasSuffix(hostname, "."+domain) {
			return knownReferrers[domain]
		}
	}

	return capitalizeFirst(hostname)
}

// NormalizeHostname lower-cases a hostname and strips "www." and any port.
func NormalizeHostname(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if host, _, found := strings.Cut(hostname, ":"); found {
		hostname = host
	}
	return strings.TrimPrefix(hostname, "www.")
}

// Hostname extracts the hostname from a stored referrer. Values without a
// scheme are treated as bare hostnames; "direct" and empty values yield "".
func Hostname(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" || strings.EqualFold(referrer, "direct") {
		return ""
	}

	if !strings.Contains(referrer, "://") {
		referrer = "https://" + referrer
	}
	parsed, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return NormalizeHostname(parsed.Hostname())
}

// Source maps a stored referrer to its display name.
func Source(referrer string) string {
	return FriendlyName(Hostname(referrer))
}

// capitalizeFirst capitalizes the first letter of a string
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
