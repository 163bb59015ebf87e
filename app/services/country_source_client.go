package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/country-gdp-service/utils"
	"github.com/tidwall/gjson"
)

// maxSourceBodyBytes bounds how much of an upstream response is read
const maxSourceBodyBytes = 32 << 20

var ErrInvalidSourcePayload = errors.New("invalid JSON payload")

// GatewayError reports a failed upstream fetch
type GatewayError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// CountryRecord is one entry of the upstream country catalog
// CurrencyCode is the code of the first listed currency, nil when there is none
type CountryRecord struct {
	Name         string
	Capital      *string
	Region       *string
	Population   *int64
	FlagURL      *string
	CurrencyCode *string
}

// CountrySource provides the two datasets mirrored by a refresh
type CountrySource interface {
	FetchCountries(ctx context.Context) ([]CountryRecord, error)
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// CountrySourceClient fetches the country catalog and the USD exchange rates over HTTP
type CountrySourceClient struct {
	CountriesURL string
	RatesURL     string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

func NewCountrySourceClient(countriesURL, ratesURL string, timeout time.Duration) *CountrySourceClient {
	if timeout <= 0 {
		timeout = utils.DefaultSourceTimeout
	}
	return &CountrySourceClient{
		CountriesURL: countriesURL,
		RatesURL:     ratesURL,
		HTTPClient:   &http.Client{Timeout: timeout},
		Timeout:      timeout,
	}
}

// FetchJSON performs a single GET and returns the parsed document. No retries.
func (c *CountrySourceClient) FetchJSON(ctx context.Context, url string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, &GatewayError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return gjson.Result{}, &GatewayError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return gjson.Result{}, &GatewayError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBodyBytes))
	if err != nil {
		return gjson.Result{}, &GatewayError{URL: url, Err: err}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &GatewayError{URL: url, Err: ErrInvalidSourcePayload}
	}

	return gjson.ParseBytes(body), nil
}

// FetchCountries reads the catalog array {name, capital, region, population, flag, currencies:[{code}]}
func (c *CountrySourceClient) FetchCountries(ctx context.Context) ([]CountryRecord, error) {
	doc, err := c.FetchJSON(ctx, c.CountriesURL)
	if err != nil {
		return nil, err
	}
	if !doc.IsArray() {
		return nil, &GatewayError{URL: c.CountriesURL, Err: fmt.Errorf("%w: expected an array", ErrInvalidSourcePayload)}
	}

	items := doc.Array()
	records := make([]CountryRecord, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			continue
		}
		records = append(records, CountryRecord{
			Name:         strings.TrimSpace(item.Get("name").String()),
			Capital:      stringField(item, "capital"),
			Region:       stringField(item, "region"),
			Population:   intField(item, "population"),
			FlagURL:      stringField(item, "flag"),
			CurrencyCode: utils.NilIfEmpty(stringField(item, "currencies.0.code")),
		})
	}
	return records, nil
}

// FetchRates reads the "rates" object {code: units per USD}; a missing object yields an empty map
func (c *CountrySourceClient) FetchRates(ctx context.Context) (map[string]float64, error) {
	doc, err := c.FetchJSON(ctx, c.RatesURL)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]float64)
	doc.Get("rates").ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			rates[key.String()] = value.Float()
		}
		return true
	})
	return rates, nil
}

func stringField(item gjson.Result, path string) *string {
	v := item.Get(path)
	if v.Type != gjson.String {
		return nil
	}
	s := v.String()
	return &s
}

func intField(item gjson.Result, path string) *int64 {
	v := item.Get(path)
	if v.Type != gjson.Number {
		return nil
	}
	n := v.Int()
	return &n
}
