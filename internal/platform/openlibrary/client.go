// Package openlibrary is a read-only client for the Open Library
// search and works APIs, used to enrich new catalog records.
package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrLookup marks transport or parse failures against the Open Library
// API. It is distinct from a search with zero results, which is not an
// error.
var ErrLookup = errors.New("open library lookup failed")

// BookInfo is the enrichment record extracted from a search hit and
// its work details. Every field is optional; a field the API did not
// return stays nil.
type BookInfo struct {
	CoverURL         *string
	Description      *string
	Rating           *float64
	FirstPublishYear *int
}

type Client struct {
	httpClient   *http.Client
	userAgent    string
	baseURL      string
	coverBaseURL string
	limiter      *rate.Limiter
	maxRetries   int
}

func NewClient(userAgent string, rps int, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:    userAgent,
		baseURL:      "https://openlibrary.org",
		coverBaseURL: "https://covers.openlibrary.org/b",
		limiter:      rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries:   maxRetries,
	}
}

// searchResponse matches search.json.
type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key              string `json:"key"`
		Title            string `json:"title"`
		FirstPublishYear *int   `json:"first_publish_year"`
		CoverID          *int   `json:"cover_i"`
	} `json:"docs"`
}

// WorkDetails matches /works/{id}.json, reduced to the fields the
// enrichment consumes.
type WorkDetails struct {
	Description *text `json:"description"`
	Rating      struct {
		Average *float64 `json:"average"`
	} `json:"rating"`
}

// text decodes a field that is either a bare JSON string or a typed
// object carrying the string under "value".
type text struct {
	Value string
}

func (t *text) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &t.Value)
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Value = obj.Value
	return nil
}

// Search looks a book up by title and optional author. It returns
// (nil, nil) when the search has no results; any transport or parse
// failure wraps ErrLookup.
func (c *Client) Search(ctx context.Context, title, author string) (*BookInfo, error) {
	query := "title:" + title
	if author != "" {
		query += " AND author:" + author
	}
	u := fmt.Sprintf("%s/search.json?q=%s", c.baseURL, url.QueryEscape(query))

	var res searchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", ErrLookup, title, err)
	}
	if len(res.Docs) == 0 {
		log.Debug().Str("query", query).Msg("open library search returned no results")
		return nil, nil
	}

	// First result only; ranking is left to the API.
	doc := res.Docs[0]
	info := &BookInfo{
		FirstPublishYear: doc.FirstPublishYear,
	}
	if doc.CoverID != nil {
		coverURL := fmt.Sprintf("%s/id/%d-M.jpg", c.coverBaseURL, *doc.CoverID)
		info.CoverURL = &coverURL
	}

	if doc.Key != "" {
		work, err := c.GetWork(ctx, path.Base(doc.Key))
		if err != nil {
			return nil, err
		}
		if work != nil {
			if work.Description != nil {
				info.Description = &work.Description.Value
			}
			info.Rating = work.Rating.Average
		}
	}

	log.Debug().Str("title", title).Msg("open library search complete")
	return info, nil
}

// GetWork fetches the extended details for a work id.
func (c *Client) GetWork(ctx context.Context, workID string) (*WorkDetails, error) {
	u := fmt.Sprintf("%s/works/%s.json", c.baseURL, url.PathEscape(workID))

	var res WorkDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, fmt.Errorf("%w: work %s: %v", ErrLookup, workID, err)
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
