package idp

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
)

const defaultTimeout = 15 * time.Second

// NewHTTPClient returns the pooled client used for every call to the
// identity provider.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   defaultTimeout,
	}
}

// clientContext carries client into ctx for go-oidc and x/oauth2, which both
// read the same context key.
func clientContext(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, client)
}
