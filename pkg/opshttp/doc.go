// Package opshttp exposes the directory node's operational HTTP
// surface — /healthz, /readyz and /metrics — adapted from the teacher
// codebase's health-check HTTP server. It is explicitly not the blob
// API: no blob routes, no auth, per the design's stated Non-goals.
package opshttp
