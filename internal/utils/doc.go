// Package utils holds the low-level helpers shared by the providers: JSON
// POST helpers for plain and SSE responses ([DoPostSync], [DoPostStream],
// [SSEScanner]), rune-safe truncation and a [Timer] that also tracks time to
// first token.
package utils
