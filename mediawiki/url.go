package mediawiki

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseArticleURL extracts the language edition and article title from a
// Wikipedia URL. Both the canonical /wiki/Title form and the
// index.php?title=Title form are accepted.
func ParseArticleURL(raw string) (lang, title string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("invalid URL: %s", raw)
	}

	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 3 || parts[len(parts)-2] != "wikipedia" || parts[len(parts)-1] != "org" {
		return "", "", fmt.Errorf("unsupported host: %s", u.Host)
	}
	lang = parts[0]

	if strings.HasPrefix(u.Path, "/wiki/") {
		title = strings.TrimPrefix(u.Path, "/wiki/")
		if decoded, derr := url.PathUnescape(title); derr == nil {
			title = decoded
		}
	} else {
		title = u.Query().Get("title")
	}
	if title == "" {
		return "", "", fmt.Errorf("could not parse title from URL: %s", raw)
	}

	title = strings.ReplaceAll(title, "_", " ")
	return lang, title, nil
}
