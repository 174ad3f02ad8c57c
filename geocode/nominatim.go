// Package geocode looks up German street addresses on a Nominatim server.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"uebergabe/schedule"
)

const (
	MinQueryLength = 3
	DebounceDelay  = 400 * time.Millisecond
	acceptLanguage = "de-DE,de;q=0.9,en;q=0.8"
)

// ErrSuperseded is returned to a lookup replaced by a newer one before it ran.
var ErrSuperseded = errors.New("lookup superseded by a newer query")

type Address struct {
	Road         string `json:"road"`
	Pedestrian   string `json:"pedestrian"`
	Street       string `json:"street"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
}

type Suggestion struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Address     Address `json:"address"`
}

// Formatted renders "<road> <no>, <zip> <city>" when the structured parts
// allow it and the display name otherwise.
func (s Suggestion) Formatted() string {
	a := s.Address
	street := firstNonEmpty(a.Road, a.Pedestrian, a.Street)
	city := firstNonEmpty(a.City, a.Town, a.Village, a.Municipality)
	if (street == "" && city == "") || a.Postcode == "" {
		return s.DisplayName
	}
	streetPart := strings.TrimSpace(street + " " + a.HouseNumber)
	cityPart := strings.TrimSpace(a.Postcode + " " + city)
	if streetPart == "" {
		return cityPart
	}
	return streetPart + ", " + cityPart
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}

// Client queries the search endpoint. Requests are rate limited to respect
// the public server's usage policy.
type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
	Limiter   *Limiter
}

func NewClient(baseURL, userAgent string) *Client {
	return &Client{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		Limiter:   NewLimiter(BucketConf{Burst: 1, Increment: 1, Period: time.Second}),
	}
}

// Search returns up to five German address candidates. Queries shorter than
// three characters return no candidates without a request.
func (c *Client) Search(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Suggestion{}, nil
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "5")
	params.Set("countrycodes", "de")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", acceptLanguage)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var out []Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out, nil
}

// Suggester debounces lookups for a single input field: only the newest
// query within the delay reaches the server.
type Suggester struct {
	client   *Client
	debounce *schedule.Debouncer
	log      *zap.Logger
}

func NewSuggester(c *Client, delay time.Duration, log *zap.Logger) *Suggester {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suggester{
		client:   c,
		debounce: schedule.NewDebouncer(delay),
		log:      log.With(zap.String("service", "geocode")),
	}
}

// Lookup waits out the debounce delay and searches. Server failures are
// logged and yield an empty list. A lookup replaced by a newer call returns
// ErrSuperseded.
func (s *Suggester) Lookup(ctx context.Context, query string) ([]Suggestion, error) {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLength {
		s.debounce.Stop()
		return []Suggestion{}, nil
	}

	var result []Suggestion
	task := s.debounce.Schedule(func() {
		res, err := s.client.Search(ctx, query)
		if err != nil {
			s.log.Warn("address lookup failed", zap.String("query", query), zap.Error(err))
			res = []Suggestion{}
		}
		result = res
	})

	select {
	case <-task.Done():
		return result, nil
	case <-task.Cancelled():
		return nil, ErrSuperseded
	case <-ctx.Done():
		if !task.Cancel() {
			<-task.Done()
		}
		return nil, ctx.Err()
	}
}

// Close drops any pending lookup.
func (s *Suggester) Close() {
	s.debounce.Stop()
}
