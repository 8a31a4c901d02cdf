package ssrfguard

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Rejection reasons. Private addresses get their own reason so operators
// understand why an internal IP was refused instead of seeing a generic error.
var (
	ErrInvalidScheme            = errors.New("url scheme must be http or https")
	ErrHostnameNotAllowed       = errors.New("hostname must be localhost or an IP address")
	ErrPrivateAddressNotAllowed = errors.New("private or reserved IP addresses are not allowed")
	ErrPublicAddressNotAllowed  = errors.New("public IP addresses are not allowed")
)

// Guard validates operator-supplied mock server URLs before the lifecycle
// manager is allowed to send authenticated requests to them. The fixed
// production/sandbox provider URLs are constants and never pass through here.
//
// Hostnames are classified lexically, never via DNS, so a rebinding domain
// cannot smuggle an internal address past the check.
type Guard struct {
	pathSuffix string
}

// New creates a Guard that normalizes accepted URLs to end with pathSuffix.
func New(pathSuffix string) *Guard {
	return &Guard{pathSuffix: pathSuffix}
}

// Validate checks rawURL and returns the normalized base URL on success.
// Only loopback targets are accepted: literal "localhost", 127.0.0.1 and ::1.
func (g *Guard) Validate(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrHostnameNotAllowed, rawURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: got %q", ErrInvalidScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrHostnameNotAllowed)
	}

	if !strings.EqualFold(host, "localhost") {
		addr, parseErr := netip.ParseAddr(host)
		if parseErr != nil {
			return "", fmt.Errorf("%w: %q", ErrHostnameNotAllowed, host)
		}
		if err := classifyAddr(addr); err != nil {
			return "", err
		}
	}

	base := strings.TrimRight(u.String(), "/")
	if !strings.HasSuffix(base, g.pathSuffix) {
		base += g.pathSuffix
	}
	return base, nil
}

// classifyAddr accepts loopback addresses and rejects everything else,
// distinguishing private/reserved ranges from public ones.
func classifyAddr(addr netip.Addr) error {
	if addr.IsLoopback() {
		return nil
	}
	if addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return fmt.Errorf("%w: %s", ErrPrivateAddressNotAllowed, addr)
	}
	return fmt.Errorf("%w: %s", ErrPublicAddressNotAllowed, addr)
}
