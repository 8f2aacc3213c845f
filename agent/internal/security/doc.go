// Package security inspects the TLS certificate of the push endpoint before
// a cycle pushes to it. An expiring or expired certificate is reported, not
// enforced: the push itself still decides whether the connection is usable.
package security
