package upstream

import (
	"net"
	"strings"
)

// LocalBaseURL is where the backend listens during development.
const LocalBaseURL = "http://localhost:8000"

var localHosts = map[string]bool{
	"":          true,
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
	"0.0.0.0":   true,
}

// DetectBaseURL picks the backend base URL from the hostname the storefront
// is served on. Local hosts use the development backend; anything else uses
// productionURL, or https://api.<hostname> when that is empty.
func DetectBaseURL(hostname, productionURL string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if localHosts[host] {
		return LocalBaseURL
	}
	if productionURL != "" {
		return strings.TrimRight(productionURL, "/")
	}
	return "https://api." + strings.TrimPrefix(host, "www.")
}
