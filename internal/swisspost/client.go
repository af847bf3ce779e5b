package swisspost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/address-validator/app/models"
	"github.com/address-validator/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// Operation names, used in logs and metric labels.
const (
	OpZips       = "zips"
	OpStreets    = "streets"
	OpHouses     = "houses"
	OpValidation = "validation"
)

// TokenSource supplies bearer tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config cấu hình client gọi address API
type Config struct {
	BaseURL           string
	LookupTimeout     time.Duration
	ValidationTimeout time.Duration
	RateLimit         float64 // requests per second, 0 disables
	RateBurst         int
}

// ZipCity một entry của ZIP lookup
type ZipCity struct {
	City18 string `json:"city18"`
	City27 string `json:"city27"`
}

// Names returns the non-empty city18 and city27 spellings, in that order.
func (z ZipCity) Names() []string {
	names := make([]string, 0, 2)
	if z.City18 != "" {
		names = append(names, z.City18)
	}
	if z.City27 != "" {
		names = append(names, z.City27)
	}
	return names
}

// ValidationRequest trường gửi tới full validation
type ValidationRequest struct {
	Firstname   string
	Lastname    string
	Company     string
	StreetName  string
	HouseNumber string
	City        string
	Postcode    string
}

// ValidationResponse quality và địa chỉ chuẩn do service trả về
type ValidationResponse struct {
	Quality     models.Quality
	Street      string
	HouseNumber string
	Raw         map[string]interface{}
}

// Client is a stateless wrapper over the four address service operations.
// Lookups degrade every failure to ErrNoMatch (the cause stays wrapped);
// ValidateAddress returns its failures as they are.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	cache   *LookupCache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates the client. cache may be nil.
func NewClient(cfg Config, tokens TokenSource, httpClient *http.Client, cache *LookupCache, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		tokens:  tokens,
		limiter: limiter,
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// LookupCity returns the zip entries registered for postcode. cityHint is
// only logged: the service is queried by postcode and matching happens in
// the caller.
func (c *Client) LookupCity(ctx context.Context, postcode, cityHint string) ([]ZipCity, error) {
	key := lookupKey(OpZips, postcode)
	if v, ok := c.cache.get(key); ok {
		c.metrics.ObserveLookupCache(OpZips, true)
		return v.([]ZipCity), nil
	}
	c.metrics.ObserveLookupCache(OpZips, false)

	body, err := c.get(ctx, OpZips, "/zips", url.Values{
		"zipCity": {postcode},
		"type":    {"DOMICILE"},
	})
	if err != nil {
		return nil, degrade(err)
	}

	var payload struct {
		Zips json.RawMessage `json:"zips"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, degrade(fmt.Errorf("%w: zips: %v", ErrMalformedResponse, err))
	}
	if isEmptyJSON(payload.Zips) {
		return nil, ErrNoMatch
	}

	var zips []ZipCity
	if err := json.Unmarshal(payload.Zips, &zips); err != nil {
		return nil, degrade(fmt.Errorf("%w: zips: %v", ErrMalformedResponse, err))
	}
	if len(zips) == 0 {
		return nil, ErrNoMatch
	}

	c.logger.Debug("ZIP lookup",
		zap.String("postcode", postcode),
		zap.String("city_hint", cityHint),
		zap.Int("entries", len(zips)))

	c.cache.add(key, zips)
	return zips, nil
}

// LookupStreet returns the first street suggested for the hint.
func (c *Client) LookupStreet(ctx context.Context, postcode, streetHint string) (string, error) {
	key := lookupKey(OpStreets, postcode, streetHint)
	if v, ok := c.cache.get(key); ok {
		c.metrics.ObserveLookupCache(OpStreets, true)
		return v.(string), nil
	}
	c.metrics.ObserveLookupCache(OpStreets, false)

	body, err := c.get(ctx, OpStreets, "/streets", url.Values{
		"zip":  {postcode},
		"name": {streetHint},
	})
	if err != nil {
		return "", degrade(err)
	}

	name, err := firstEntry(body, "streets", "name")
	if err != nil {
		return "", degrade(err)
	}

	c.cache.add(key, name)
	return name, nil
}

// LookupHouseNumber returns the first house number suggested for the hint.
func (c *Client) LookupHouseNumber(ctx context.Context, postcode, street, numberHint string) (string, error) {
	key := lookupKey(OpHouses, postcode, street, numberHint)
	if v, ok := c.cache.get(key); ok {
		c.metrics.ObserveLookupCache(OpHouses, true)
		return v.(string), nil
	}
	c.metrics.ObserveLookupCache(OpHouses, false)

	body, err := c.get(ctx, OpHouses, "/houses", url.Values{
		"zip":        {postcode},
		"streetname": {street},
		"number":     {numberHint},
	})
	if err != nil {
		return "", degrade(err)
	}

	number, err := firstEntry(body, "houses", "number")
	if err != nil {
		return "", degrade(err)
	}

	c.cache.add(key, number)
	return number, nil
}

type validationDocument struct {
	Addressee          addressee          `json:"addressee"`
	GeographicLocation geographicLocation `json:"geographicLocation"`
	FullValidation     bool               `json:"fullValidation"`
}

type addressee struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

type geographicLocation struct {
	House houseLocation `json:"house"`
	Zip   zipLocation   `json:"zip"`
}

type houseLocation struct {
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
}

type zipLocation struct {
	Zip  string `json:"zip"`
	City string `json:"city"`
}

// ValidateAddress runs the full validation. Failures are not degraded.
func (c *Client) ValidateAddress(ctx context.Context, in ValidationRequest) (*ValidationResponse, error) {
	doc := validationDocument{
		Addressee: addressee{
			FirstName:   in.Firstname,
			LastName:    in.Lastname,
			CompanyName: in.Company,
		},
		GeographicLocation: geographicLocation{
			House: houseLocation{Street: in.StreetName, HouseNumber: in.HouseNumber},
			Zip:   zipLocation{Zip: in.Postcode, City: in.City},
		},
		FullValidation: true,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal validation request: %w", err)
	}

	body, err := c.do(ctx, OpValidation, c.cfg.ValidationTimeout, http.MethodPost, "/addresses/validation", nil, payload)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: validation: %v", ErrMalformedResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: validation: empty payload", ErrMalformedResponse)
	}

	var typed struct {
		Quality *string `json:"quality"`
		Address struct {
			GeographicLocation struct {
				House houseLocation `json:"house"`
			} `json:"geographicLocation"`
		} `json:"address"`
	}
	if err := json.Unmarshal(body, &typed); err != nil {
		return nil, fmt.Errorf("%w: validation: %v", ErrMalformedResponse, err)
	}

	quality := models.QualityUnusable
	if typed.Quality != nil {
		quality = models.ParseQuality(*typed.Quality)
	}

	return &ValidationResponse{
		Quality:     quality,
		Street:      typed.Address.GeographicLocation.House.Street,
		HouseNumber: typed.Address.GeographicLocation.House.HouseNumber,
		Raw:         raw,
	}, nil
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, op, c.cfg.LookupTimeout, http.MethodGet, path, params, nil)
}

// do gắn token, chờ rate limiter rồi gửi request với timeout riêng từng call
func (c *Client) do(ctx context.Context, op string, timeout time.Duration, method, path string, params url.Values, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.metrics.ObserveUpstream(op, "auth_error", start)
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.ObserveUpstream(op, "rate_limited", start)
			return nil, fmt.Errorf("%w: %s: rate limiter: %w", ErrNetwork, op, err)
		}
	}

	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(op, "network_error", start)
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.ObserveUpstream(op, "network_error", start)
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrNetwork, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.ObserveUpstream(op, "http_"+strconv.Itoa(resp.StatusCode), start)
		return nil, &APIError{Operation: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	c.metrics.ObserveUpstream(op, "ok", start)
	return body, nil
}

// firstEntry reads body[listKey][0], which is either a string or an object
// holding field.
func firstEntry(body []byte, listKey, field string) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedResponse, listKey, err)
	}

	raw, ok := obj[listKey]
	if !ok || isEmptyJSON(raw) {
		return "", ErrNoMatch
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("%w: %s is not a list", ErrMalformedResponse, listKey)
	}
	if len(list) == 0 {
		return "", ErrNoMatch
	}

	var value string
	first := bytes.TrimSpace(list[0])
	switch {
	case len(first) > 0 && first[0] == '"':
		if err := json.Unmarshal(first, &value); err != nil {
			return "", fmt.Errorf("%w: %s entry: %v", ErrMalformedResponse, listKey, err)
		}
	case len(first) > 0 && first[0] == '{':
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(first, &entry); err != nil {
			return "", fmt.Errorf("%w: %s entry: %v", ErrMalformedResponse, listKey, err)
		}
		if f, ok := entry[field]; ok && !isEmptyJSON(f) {
			if err := json.Unmarshal(f, &value); err != nil {
				return "", fmt.Errorf("%w: %s.%s is not a string", ErrMalformedResponse, listKey, field)
			}
		}
	default:
		return "", fmt.Errorf("%w: unexpected %s entry %s", ErrMalformedResponse, listKey, truncate(string(first), 50))
	}

	if value == "" {
		return "", ErrNoMatch
	}
	return value, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// IsNoMatch reports an absorbed lookup result.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}
