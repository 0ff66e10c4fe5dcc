package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"arcalog/src/provider"
)

// ArtifactsAnchorText is the anchor text that marks the artifact listing on
// a build result page.
const ArtifactsAnchorText = "Artifacts"

// ErrNoArtifactsLink is returned when a result page carries no artifacts anchor.
var ErrNoArtifactsLink = errors.New("no artifacts link on result page")

// Link is one anchor of an HTML page.
type Link struct {
	Href string
	Text string
}

// ParseLinks returns the anchors of page in document order.
func ParseLinks(page string) ([]Link, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					links = append(links, Link{
						Href: strings.TrimSpace(attr.Val),
						Text: strings.TrimSpace(textOf(n)),
					})
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// ArtifactsURL fetches a build result page and returns the absolute URL of
// its artifacts anchor.
func (c *Crawler) ArtifactsURL(ctx context.Context, resultURL string) (string, error) {
	base, err := url.Parse(resultURL)
	if err != nil {
		return "", &provider.RemoteFormatError{URL: resultURL, Err: err}
	}

	page, err := c.client.GetPage(ctx, resultURL)
	if err != nil {
		return "", err
	}

	links, err := ParseLinks(page)
	if err != nil {
		return "", &provider.RemoteFormatError{URL: resultURL, Err: err}
	}

	for _, link := range links {
		if !strings.Contains(link.Text, ArtifactsAnchorText) {
			continue
		}
		ref, err := url.Parse(link.Href)
		if err != nil {
			c.logger.Debug("[Crawler] Ignoring malformed artifacts href %q: %v", link.Href, err)
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}

	return "", ErrNoArtifactsLink
}

// MirrorBuild mirrors the artifacts of a build into dest. When the result
// page has no artifacts anchor, the result URL itself is treated as the listing.
func (c *Crawler) MirrorBuild(ctx context.Context, resultURL, dest string) (*Stats, error) {
	start, err := c.ArtifactsURL(ctx, resultURL)
	if errors.Is(err, ErrNoArtifactsLink) {
		c.logger.Info("[Crawler] No artifacts link on %s, mirroring the page itself", resultURL)
		start = resultURL
	} else if err != nil {
		return &Stats{}, fmt.Errorf("failed to locate artifacts for %s: %w", resultURL, err)
	}

	return c.Mirror(ctx, start, dest)
}
