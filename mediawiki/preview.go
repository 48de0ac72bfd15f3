package mediawiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RenderPreview asks the wiki to render wikitext into an HTML fragment
// without saving anything (action=parse).
func (c *Client) RenderPreview(ctx context.Context, wikitext, title string) (string, error) {
	params := url.Values{
		"action":             {"parse"},
		"format":             {"json"},
		"formatversion":      {"2"},
		"contentmodel":       {"wikitext"},
		"prop":               {"text"},
		"disablelimitreport": {"1"},
		"text":               {wikitext},
	}
	if title != "" {
		params.Set("title", title)
	}

	var resp struct {
		Error *apiError `json:"error"`
		Parse struct {
			Text string `json:"text"`
		} `json:"parse"`
	}
	if err := c.postForm(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("rendering preview: %w", err)
	}
	if resp.Error != nil {
		return "", &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	if resp.Parse.Text == "" {
		return "", &APIError{Code: "noparse", Info: "preview response missing rendered HTML"}
	}
	return resp.Parse.Text, nil
}

// BuildPreviewDocument wraps a rendered fragment into a standalone HTML
// page. Site-relative links and protocol-relative images are rewritten
// against baseURL so the local file browses like the live article; lang and
// dir land on the html element.
func BuildPreviewDocument(fragment, baseURL, lang, dir, title string) (string, error) {
	page := fmt.Sprintf(
		`<!DOCTYPE html><html lang=%q dir=%q><head><meta charset="utf-8"><title></title></head><body>%s</body></html>`,
		lang, dir, fragment)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing preview HTML: %w", err)
	}
	doc.Find("title").SetText(title)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		switch {
		case strings.HasPrefix(href, "//"):
			s.SetAttr("href", "https:"+href)
		case strings.HasPrefix(href, "/"):
			s.SetAttr("href", baseURL+href)
		}
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		switch {
		case strings.HasPrefix(src, "//"):
			s.SetAttr("src", "https:"+src)
		case strings.HasPrefix(src, "/"):
			s.SetAttr("src", baseURL+src)
		}
	})

	return doc.Html()
}
