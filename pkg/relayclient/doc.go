// Package relayclient provides a reusable websocket client for the voice relay.
//
// It keeps one connection open with reconnect backoff, sends text or audio
// messages, and reports progress, translation and error frames via callbacks.
package relayclient
