package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resumeMatch/internal/api/middleware"
)

const printPath = "/internal/print/"

// errSessionGone means the web server has no results for the session any more.
var errSessionGone = errors.New("session results no longer available")

// printPageClient loads the print rendering of a session's results from the web server's
// internal route.
type printPageClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

func newPrintPageClient(baseURL, secret string) *printPageClient {
	return &printPageClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:  strings.TrimSpace(secret),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *printPageClient) Fetch(ctx context.Context, sessionID, correlationID string) ([]byte, error) {
	switch {
	case p.secret == "":
		return nil, errors.New("internal api secret missing")
	case p.baseURL == "":
		return nil, errors.New("internal api base url missing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+printPath+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("build print page request: %w", err)
	}
	req.Header.Set(middleware.InternalSecretHeader, p.secret)
	if correlationID != "" {
		req.Header.Set(middleware.CorrelationIDHeader, correlationID)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request print page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errSessionGone
	case resp.StatusCode/100 != 2:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("print page status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read print page: %w", err)
	}
	return page, nil
}
