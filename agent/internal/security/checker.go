package security

import (
	"context"
	"crypto/tls"
	"log/slog"
	"math"
	"net"
	"net/url"
	"time"
)

// Certificate states reported in CertStatus.Status.
const (
	StatusValid       = "valid"
	StatusExpiring    = "expiring"
	StatusExpired     = "expired"
	StatusUnreachable = "unreachable"
)

// expiringWithin is how close to NotAfter a certificate counts as expiring.
const expiringWithin = 30

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate served by an endpoint.
type CertStatus struct {
	Endpoint string
	Status   string
	Issuer   string
	NotAfter time.Time
	DaysLeft int
}

// Check dials the TLS endpoint and returns a CertStatus describing its leaf
// certificate. It returns nil for non-HTTPS endpoints.
//
// The dial is bounded by a 10-second timeout so an unreachable host does not
// hold up the cycle.
func Check(ctx context.Context, endpoint string, insecure bool) *CertStatus {
	return check(ctx, endpoint, insecure, time.Now())
}

func check(ctx context.Context, endpoint string, insecure bool, now time.Time) *CertStatus {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: endpoint}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			InsecureSkipVerify: insecure, //nolint:gosec
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		slog.Debug("security: tls dial failed", "endpoint", endpoint, "err", err)
		cs.Status = StatusUnreachable
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = StatusUnreachable
		return cs
	}

	leaf := peerCerts[0]
	daysLeft := leaf.NotAfter.Sub(now).Hours() / 24

	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	cs.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		cs.Status = StatusExpired
	case daysLeft <= expiringWithin:
		cs.Status = StatusExpiring
	default:
		cs.Status = StatusValid
	}
	return cs
}

// Report logs cs at a level matching its status. A nil cs is ignored.
func Report(cs *CertStatus) {
	if cs == nil {
		return
	}
	attrs := []any{"endpoint", cs.Endpoint, "status", cs.Status}
	switch cs.Status {
	case StatusValid:
		slog.Debug("security: push endpoint certificate ok", append(attrs, "days_left", cs.DaysLeft)...)
	case StatusExpiring, StatusExpired:
		slog.Warn("security: push endpoint certificate needs renewal",
			append(attrs, "days_left", cs.DaysLeft, "not_after", cs.NotAfter, "issuer", cs.Issuer)...)
	default:
		slog.Warn("security: push endpoint certificate could not be inspected", attrs...)
	}
}
