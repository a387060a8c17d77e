package validator

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ValidateTargetURL checks that a webhook destination is an HTTPS URL with a
// hostname that does not point at the platform's own network. Targets are
// tenant-controlled, so a literal loopback or private address is rejected
// outright at registration time.
func ValidateTargetURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url format")
	}

	if u.Scheme != "https" {
		return errors.New("url must use https")
	}

	host := u.Hostname()
	if host == "" {
		return errors.New("url must include a host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isInternalIP(ip) {
			return errors.New("url host resolves to an internal address")
		}
	}

	if strings.EqualFold(host, "localhost") {
		return errors.New("url host resolves to an internal address")
	}

	return nil
}

// CheckDeliveryHost resolves a hostname just before a delivery attempt and
// refuses internal addresses. DNS can change between registration and
// delivery, so this runs on the send path as well.
func CheckDeliveryHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if isInternalIP(ip) {
			return errors.New("host resolves to an internal address")
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return errors.New("host did not resolve")
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.New("host resolves to an internal address")
		}
	}
	return nil
}

// GuardedDialContext is an http.Transport DialContext that resolves the
// target itself and refuses hosts with any internal address, then dials only
// the addresses it just vetted. Checking in the dialer closes the rebinding
// window a pre-flight lookup leaves open: the address checked is the address
// connected to.
func GuardedDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	if ip := net.ParseIP(host); ip != nil {
		if isInternalIP(ip) {
			return nil, errors.New("host resolves to an internal address")
		}
		return dialer.DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return nil, errors.New("host did not resolve")
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return nil, errors.New("host resolves to an internal address")
		}
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
