package httpclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// newJarClient creates a client with its own empty cookie jar sharing the given round tripper.
func newJarClient(rt http.RoundTripper, timeout time.Duration) (*http.Client, *cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Transport: rt,
		Jar:       jar,
		Timeout:   timeout,
	}, jar, nil
}

// newScopedClient creates a jar client preloaded with cookies scoped to target's host
func newScopedClient(rt http.RoundTripper, timeout time.Duration, target *url.URL, cookies []*http.Cookie) (*http.Client, error) {
	client, jar, err := newJarClient(rt, timeout)
	if err != nil {
		return nil, err
	}

	scoped := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		// Drop domain and path so the jar stores a host-only cookie for the target
		scoped = append(scoped, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	jar.SetCookies(target, scoped)

	return client, nil
}
