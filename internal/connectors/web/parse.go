package web

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// pageExtract is what the fetch tool pulls out of one HTML document.
type pageExtract struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Canonical   string   `json:"canonical,omitempty"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

// extractPage parses an HTML document and collects title, meta description,
// canonical link, visible text and absolute link targets. base resolves
// relative hrefs.
func extractPage(content []byte, base *url.URL) (*pageExtract, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, domain.ParseErrorf("parsing HTML: %v", err)
	}

	out := &pageExtract{}
	var sb strings.Builder
	seen := make(map[string]struct{})
	walk(doc, out, &sb, base, seen)
	out.Text = strings.TrimSpace(sb.String())
	if out.Links == nil {
		out.Links = []string{}
	}
	return out, nil
}

func walk(n *html.Node, out *pageExtract, sb *strings.Builder, base *url.URL, seen map[string]struct{}) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		case "title":
			if out.Title == "" {
				out.Title = strings.TrimSpace(textOf(n))
			}
			return
		case "meta":
			if attr(n, "name") == "description" && out.Description == "" {
				out.Description = strings.TrimSpace(attr(n, "content"))
			}
		case "link":
			if attr(n, "rel") == "canonical" && out.Canonical == "" {
				out.Canonical = strings.TrimSpace(attr(n, "href"))
			}
		case "a":
			if href := resolveLink(attr(n, "href"), base); href != "" {
				if _, dup := seen[href]; !dup {
					seen[href] = struct{}{}
					out.Links = append(out.Links, href)
				}
			}
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, out, sb, base, seen)
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// resolveLink makes href absolute against base, dropping fragments,
// javascript: pseudo-links and anything unparseable.
func resolveLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
