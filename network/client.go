// Package network provides the pre-configured HTTP client shared by outbound calls.
package network

import (
	"net/http"
	"time"
)

// Client is the HTTP client shared across the application.
// Token exchanges are short requests, so timeouts are tight.
var Client = &http.Client{
	Timeout:   30 * time.Second,
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 50
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	t.ExpectContinueTimeout = time.Second
	return t
}
