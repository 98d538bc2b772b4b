// Package tlsutil provides centralized, hardened TLS settings (TLS 1.2+,
// AEAD-only cipher suites) for the outbound HTTP clients.
package tlsutil
