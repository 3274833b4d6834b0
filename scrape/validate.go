// Copyright 2025 The Poiesic Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scrape

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateURL checks a URL before any network fetch, guarding against
// SSRF. Checks run in order and short-circuit on the first failure:
//
//  1. the URL parses and its scheme is http or https
//  2. the host resolves only to public addresses (no loopback,
//     link-local, RFC1918, or IPv6 unique-local/loopback)
//  3. with a non-empty allow-list, the host must match one of the
//     allowed domains by registrable-domain suffix
//
// Every URL is validated independently, including redirect targets: a
// target is never trusted because the URL that led to it passed.
func ValidateURL(ctx context.Context, rawURL string, allowedDomains []string) (*url.URL, error) {
	return validateURL(ctx, rawURL, allowedDomains, false)
}

func validateURL(ctx context.Context, rawURL string, allowedDomains []string, allowPrivate bool) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q (use http or https)", ErrInvalidScheme, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: URL has no host", ErrInvalidURL)
	}

	ips, err := resolveHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve %q: %v", ErrInvalidURL, host, err)
	}
	if !allowPrivate {
		for _, ip := range ips {
			if isPrivateAddress(ip) {
				return nil, fmt.Errorf("%w: %q resolves to %s", ErrPrivateNetworkBlocked, host, ip)
			}
		}
	}

	if len(allowedDomains) > 0 && !domainAllowed(host, allowedDomains) {
		return nil, fmt.Errorf("%w: %q", ErrDomainNotAllowed, host)
	}

	return parsed, nil
}

func resolveHost(ctx context.Context, host string) ([]net.IP, error) {
	// Literal addresses skip DNS entirely.
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, len(addrs))
	for i, addr := range addrs {
		ips[i] = addr.IP
	}
	return ips, nil
}

// isPrivateAddress reports whether an address must never be fetched:
// loopback, unspecified, link-local (169.254.0.0/16, fe80::/10),
// RFC1918 ranges, and IPv6 unique-local (fc00::/7, via IsPrivate).
func isPrivateAddress(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate()
}

// domainAllowed matches host against the allow-list by exact name or
// registrable-domain suffix, so "docs.example.com" matches
// "example.com" but "notexample.com" does not.
func domainAllowed(host string, allowedDomains []string) bool {
	host = strings.ToLower(host)
	for _, domain := range allowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
