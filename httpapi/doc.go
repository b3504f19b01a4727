// Package httpapi serves the session lifecycle of a tomeauth Engine over
// HTTP with gin.
//
// Every request runs against the profile named by the configured profile
// header (X-Profile-ID by default). Responses are JSON; errors use the
// {"error": "..."} shape.
package httpapi
