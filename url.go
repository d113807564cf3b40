package lnaddy

import (
	"fmt"
	"net/http"
	"net/url"
)

// URLBuilder derives the absolute callback URL for a pay link from the
// incoming request, or from a fixed public URL when the server sits behind a
// proxy that rewrites the host.
type URLBuilder struct {
	publicURL *url.URL
}

func NewURLBuilder(publicURL *url.URL) *URLBuilder {
	return &URLBuilder{publicURL: publicURL}
}

// Callback returns the absolute URL of the invoice callback for linkID.
func (b *URLBuilder) Callback(r *http.Request, linkID string) string {
	scheme, host := b.origin(r)
	return fmt.Sprintf("%s://%s/api/v1/lnurl/cb/%s", scheme, host, linkID)
}

// Domain returns the host serving this request, as it appears in lightning
// addresses minted for it.
func (b *URLBuilder) Domain(r *http.Request) string {
	_, host := b.origin(r)
	return host
}

func (b *URLBuilder) origin(r *http.Request) (string, string) {
	if b.publicURL != nil {
		return b.publicURL.Scheme, b.publicURL.Host
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme, r.Host
}
