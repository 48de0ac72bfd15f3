// Package mediawiki is a minimal MediaWiki API client covering what the
// translation workflow needs: fetching article wikitext with its revision
// id, rendering previews, logging in, and publishing edits behind an
// optimistic revision check.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent identifies the tool to Wikimedia servers, which require
// a descriptive User-Agent from API clients.
const DefaultUserAgent = "wkp/0.2 (https://github.com/mgaitan/wkp)"

// Client talks to one wiki's api.php endpoint. The embedded cookie jar
// carries the login session, so a logged-in Client must not be shared
// across accounts.
type Client struct {
	apiURL     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement
// should carry a cookie jar if Login will be used.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBaseURL points the client at an arbitrary wiki (or a test server).
// base is the site root, e.g. "https://es.wikipedia.org".
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(base, "/")
		c.apiURL = c.baseURL + "/w/api.php"
	}
}

// NewClient creates a client for the given Wikipedia language edition.
func NewClient(lang string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   fmt.Sprintf("https://%s.wikipedia.org", lang),
		userAgent: DefaultUserAgent,
	}
	c.apiURL = c.baseURL + "/w/api.php"
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		jar, _ := cookiejar.New(nil)
		c.httpClient = &http.Client{Timeout: 30 * time.Second, Jar: jar}
	}
	return c
}

// BaseURL returns the wiki's site root, e.g. "https://es.wikipedia.org".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Page is an article snapshot: its wikitext together with the revision it
// came from. RevisionID seeds the publish guard later.
type Page struct {
	Title      string
	Wikitext   string
	RevisionID string
	Timestamp  string
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type pageQueryResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			Title     string `json:"title"`
			Missing   bool   `json:"missing"`
			Revisions []struct {
				RevID     int64  `json:"revid"`
				Timestamp string `json:"timestamp"`
				Slots     struct {
					Main struct {
						Content string `json:"content"`
					} `json:"main"`
				} `json:"slots"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
}

// FetchPage downloads an article's current wikitext and revision id,
// following redirects.
func (c *Client) FetchPage(ctx context.Context, title string) (*Page, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"revisions"},
		"rvprop":        {"content|ids|timestamp"},
		"rvslots":       {"main"},
		"redirects":     {"1"},
		"titles":        {title},
	}

	var resp pageQueryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("fetching %q: %w", title, err)
	}
	if resp.Error != nil {
		return nil, &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	if len(resp.Query.Pages) == 0 {
		return nil, &APIError{Code: "empty", Info: "no pages in API response"}
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return nil, &PageNotFoundError{Title: title}
	}
	if len(page.Revisions) == 0 {
		return nil, &APIError{Code: "norevisions", Info: "no revisions for " + title}
	}
	rev := page.Revisions[0]
	return &Page{
		Title:      page.Title,
		Wikitext:   rev.Slots.Main.Content,
		RevisionID: strconv.FormatInt(rev.RevID, 10),
		Timestamp:  rev.Timestamp,
	}, nil
}

// CurrentRevision returns the article's current revision id.
func (c *Client) CurrentRevision(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"revisions"},
		"rvprop":        {"ids"},
		"redirects":     {"1"},
		"titles":        {title},
	}

	var resp pageQueryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("checking revision of %q: %w", title, err)
	}
	if resp.Error != nil {
		return "", &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return "", &PageNotFoundError{Title: title}
	}
	if len(resp.Query.Pages[0].Revisions) == 0 {
		return "", &APIError{Code: "norevisions", Info: "no revisions for " + title}
	}
	return strconv.FormatInt(resp.Query.Pages[0].Revisions[0].RevID, 10), nil
}

// Login authenticates the client's session using the bot/login token flow.
func (c *Client) Login(ctx context.Context, username, password string) error {
	token, err := c.fetchToken(ctx, "login")
	if err != nil {
		return fmt.Errorf("login token: %w", err)
	}

	var resp struct {
		Error *apiError `json:"error"`
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	params := url.Values{
		"action":     {"login"},
		"format":     {"json"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {token},
	}
	if err := c.postForm(ctx, params, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Error != nil {
		return &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	if resp.Login.Result != "Success" {
		return &APIError{Code: resp.Login.Result, Info: resp.Login.Reason}
	}
	return nil
}

// fetchToken requests a token of the given type ("login", "csrf").
func (c *Client) fetchToken(ctx context.Context, typ string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"meta":          {"tokens"},
		"type":          {typ},
	}
	var resp struct {
		Error *apiError `json:"error"`
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
	}
	token := resp.Query.Tokens[typ+"token"]
	if token == "" {
		return "", &APIError{Code: "notoken", Info: "no " + typ + " token in response"}
	}
	return token, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
