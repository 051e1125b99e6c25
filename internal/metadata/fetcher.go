// Package metadata fetches the title, description and favicon of a web page
// so a new bookmark can be prefilled.
//
// Pages are tokenized with golang.org/x/net/html and only the head is read.
// Everything extracted goes through a bluemonday strict policy, so no
// markup survives into a bookmark.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sakif/linkshelf/internal/apperror"
)

const (
	DefaultTimeout = 10 * time.Second

	// MaxBodyBytes caps how much of a page is read. The head is almost
	// always inside the first megabyte.
	MaxBodyBytes = 1 << 20

	maxRedirects        = 5
	maxTitleRunes       = 200
	maxDescriptionRunes = 500
	userAgent           = "linkshelf-metadata/1.0 (+bookmark preview)"
)

// Metadata is what a page says about itself.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	FaviconURL  string `json:"faviconUrl,omitempty"`
}

type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	policy   *bluemonday.Policy
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client. The replacement is not
// restricted to public addresses.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// New returns a Fetcher that gives up on a page after timeout. A zero
// timeout means DefaultTimeout.
func New(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &Fetcher{
		client:   publicClient(timeout),
		timeout:  timeout,
		maxBytes: MaxBodyBytes,
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseTarget checks that rawURL is an absolute http(s) URL.
func ParseTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperror.ValidationFailed("url", "url must be an absolute http or https URL")
	}
	return u, nil
}

// Fallback is the metadata used when a page cannot be fetched: the host as
// title and the conventional /favicon.ico.
func Fallback(u *url.URL) *Metadata {
	return &Metadata{
		Title:      u.Hostname(),
		FaviconURL: defaultFavicon(u),
	}
}

// Fetch downloads rawURL and extracts its metadata. Non-HTML responses are
// not an error; they get Fallback values.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	target, err := ParseTarget(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata: GET %s: %w", target.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("metadata: GET %s: unexpected status %d", target.Host, resp.StatusCode)
	}

	// Redirects move the base that relative favicon links resolve against.
	base := resp.Request.URL

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "html") {
		return Fallback(base), nil
	}

	md, err := f.extract(io.LimitReader(resp.Body, f.maxBytes), base)
	if err != nil {
		return nil, fmt.Errorf("metadata: reading %s: %w", target.Host, err)
	}
	return md, nil
}

// extract reads head elements until the body starts. Comments, scripts and
// styles are separate tokens, so markup inside them is never mistaken for
// a tag.
func (f *Fetcher) extract(r io.Reader, base *url.URL) (*Metadata, error) {
	var title, ogTitle, description, ogDescription, icon string

	z := html.NewTokenizer(r)
scan:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			break scan
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Head {
				break scan
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Body:
				break scan
			case atom.Title:
				if title == "" && z.Next() == html.TextToken {
					title = string(z.Text())
				}
			case atom.Meta:
				attrs := tagAttrs(z, hasAttr)
				key := attrs["property"]
				if key == "" {
					key = attrs["name"]
				}
				switch strings.ToLower(key) {
				case "og:title":
					ogTitle = attrs["content"]
				case "description":
					description = attrs["content"]
				case "og:description":
					ogDescription = attrs["content"]
				}
			case atom.Link:
				attrs := tagAttrs(z, hasAttr)
				if icon == "" && isIconRel(attrs["rel"]) && attrs["href"] != "" {
					icon = attrs["href"]
				}
			}
		}
	}

	md := &Metadata{
		Title:       f.clean(firstNonEmpty(ogTitle, title), maxTitleRunes),
		Description: f.clean(firstNonEmpty(description, ogDescription), maxDescriptionRunes),
		FaviconURL:  resolveFavicon(base, icon),
	}
	if md.Title == "" {
		md.Title = base.Hostname()
	}
	return md, nil
}

// clean strips markup, decodes entities, collapses whitespace and cuts the
// result to limit runes.
func (f *Fetcher) clean(s string, limit int) string {
	s = html.UnescapeString(f.policy.Sanitize(html.UnescapeString(s)))
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		s = strings.TrimSpace(string(r[:limit]))
	}
	return s
}

// tagAttrs collects the current tag's attributes. Keys come back lower
// case and values unescaped.
func tagAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if _, seen := attrs[string(key)]; !seen {
			attrs[string(key)] = string(val)
		}
	}
	return attrs
}

func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "icon" {
			return true
		}
	}
	return false
}

func resolveFavicon(base *url.URL, href string) string {
	if href = strings.TrimSpace(href); href != "" {
		if ref, err := base.Parse(href); err == nil && (ref.Scheme == "http" || ref.Scheme == "https") {
			return ref.String()
		}
	}
	return defaultFavicon(base)
}

func defaultFavicon(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/favicon.ico"}).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
