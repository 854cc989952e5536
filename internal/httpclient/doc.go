// Package httpclient provides a configurable HTTP client used by the
// transcription backends: bearer and API-key auth, multipart audio uploads,
// status-code classification into typed errors, optional retry and circuit
// breaking, and a TLS verification escape hatch for intercepting proxies.
package httpclient
