// Package utils provides shared helpers for wallet addresses and text.
package utils

import (
	"strings"
)

// NormalizeAddress normalizes a wallet address to lowercase with trimmed spaces.
func NormalizeAddress(addr string) string {
	return strings.TrimSpace(strings.ToLower(addr))
}

// NormalizeAddresses normalizes each address and drops empty and repeated ones,
// keeping first-seen order.
func NormalizeAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		a = NormalizeAddress(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ShortAddress returns a truncated address for display (0x1234...5678).
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// Truncate cuts s to at most max bytes.
func Truncate(s string, max int) string {
	if max < 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
