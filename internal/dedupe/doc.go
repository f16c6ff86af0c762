// Package dedupe detects replayed requests by remembering the X-Request-ID
// values orbit-server has already served for a bounded window.
package dedupe
