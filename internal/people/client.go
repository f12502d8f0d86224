package people

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	people "google.golang.org/api/people/v1"
	"google.golang.org/api/option"
)

const (
	searchFields     = "names,emailAddresses"
	searchPageSize   = 10
	warmupQueryLimit = 1
)

// Contact is one autocomplete candidate.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client wraps the People service for one account.
type Client struct {
	svc *people.Service
}

// New creates a People client over an authenticated HTTP client.
func New(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := people.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating people service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Warmup primes the search index. The API serves stale results unless an
// empty-query search has been issued recently.
func (c *Client) Warmup(ctx context.Context) {
	_, _ = c.svc.People.SearchContacts().Query("").
		ReadMask(searchFields).PageSize(warmupQueryLimit).Context(ctx).Do()
	_, _ = c.svc.OtherContacts.Search().Query("").
		ReadMask(searchFields).PageSize(warmupQueryLimit).Context(ctx).Do()
}

// Search returns contacts matching query across saved and other contacts,
// deduplicated by email with saved contacts taking precedence.
func (c *Client) Search(ctx context.Context, query string) ([]Contact, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	saved, err := c.svc.People.SearchContacts().Query(query).
		ReadMask(searchFields).PageSize(searchPageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("searching contacts: %w", err)
	}

	other, err := c.svc.OtherContacts.Search().Query(query).
		ReadMask(searchFields).PageSize(searchPageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("searching other contacts: %w", err)
	}

	var results []*people.SearchResult
	results = append(results, saved.Results...)
	results = append(results, other.Results...)
	return mergeResults(results), nil
}

// mergeResults flattens search results into contacts, keeping the first
// occurrence of each email address.
func mergeResults(results []*people.SearchResult) []Contact {
	seen := make(map[string]bool)
	var contacts []Contact
	for _, result := range results {
		if result.Person == nil {
			continue
		}
		name := ""
		if len(result.Person.Names) > 0 {
			name = result.Person.Names[0].DisplayName
		}
		for _, email := range result.Person.EmailAddresses {
			addr := strings.ToLower(strings.TrimSpace(email.Value))
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			contacts = append(contacts, Contact{Name: name, Email: email.Value})
		}
	}
	return contacts
}
