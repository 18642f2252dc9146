// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publication locates dataset archives on the monthly publication page.
//
// The page for a given month lives at <base>/<month>-<year> with the full
// month name in lower case. Archive links are found by substring match on
// their href, in document order.
package publication

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/gpreg/internal/httputil"
	"github.com/pdiddy/gpreg/pkg/types"
)

// PeriodSlug returns the month-year path segment for t, e.g. "march-2024".
func PeriodSlug(t time.Time) string {
	return strings.ToLower(t.Format("January-2006"))
}

// PageURL returns the publication page URL for the month containing t.
func PageURL(base string, t time.Time) string {
	return strings.TrimRight(base, "/") + "/" + PeriodSlug(t)
}

// Fetcher retrieves and parses publication pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher that sends userAgent with every page request.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{client: client, userAgent: userAgent}
}

// FetchPage downloads and parses the page at pageURL. Network failures and
// non-2xx responses are returned as errors; a *httputil.StatusError can be
// recovered with errors.As.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	header := http.Header{}
	if f.userAgent != "" {
		header.Set("User-Agent", f.userAgent)
	}

	resp, err := httputil.Get(ctx, f.client, pageURL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return Parse(resp.Body, pageURL)
}

// Page is a parsed publication page.
type Page struct {
	base *url.URL
	doc  *goquery.Document
}

// Parse reads an HTML document. pageURL is used to resolve relative links.
func Parse(r io.Reader, pageURL string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &Page{base: base, doc: doc}, nil
}

// Links returns the href of every anchor in document order.
func (p *Page) Links() []string {
	var links []string
	p.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		links = append(links, href)
	})
	return links
}

// FindLink returns the first anchor whose href contains target, resolved
// against the page URL.
func (p *Page) FindLink(target types.Target) (string, bool) {
	if target == "" {
		return "", false
	}

	var found string
	p.doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.Contains(href, string(target)) {
			found = p.resolve(href)
			return false
		}
		return true
	})
	return found, found != ""
}

func (p *Page) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return p.base.ResolveReference(ref).String()
}
