package swisspost

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/address-validator/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLookupCity(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/zips", http.StatusOK, `{"zips":[{"zip":"3000","city18":"Bern","city27":"Berne"}]}`)
	c := up.newClient(nil)

	zips, err := c.LookupCity(context.Background(), "3000", "Berne")
	require.NoError(t, err)
	require.Len(t, zips, 1)
	assert.Equal(t, []string{"Bern", "Berne"}, zips[0].Names())

	q := up.query("/zips")
	assert.Equal(t, "3000", q.Get("zipCity"))
	assert.Equal(t, "DOMICILE", q.Get("type"))
	assert.Equal(t, "Bearer tok-1", up.bearer())
}

func TestLookupCity_NoEntries(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty list", body: `{"zips":[]}`},
		{name: "null", body: `{"zips":null}`},
		{name: "missing key", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.set("/zips", http.StatusOK, tt.body)
			c := up.newClient(nil)

			_, err := c.LookupCity(context.Background(), "9999", "")
			assert.ErrorIs(t, err, ErrNoMatch)
			assert.True(t, IsNoMatch(err))
		})
	}
}

func TestLookupStreet_EntryShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "object entry", body: `{"streets":[{"name":"Bahnhofstrasse"},{"name":"Bahnhofplatz"}]}`, want: "Bahnhofstrasse"},
		{name: "string entry", body: `{"streets":["Bahnhofstrasse"]}`, want: "Bahnhofstrasse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.set("/streets", http.StatusOK, tt.body)
			c := up.newClient(nil)

			got, err := c.LookupStreet(context.Background(), "8001", "Bahnhofstr")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			q := up.query("/streets")
			assert.Equal(t, "8001", q.Get("zip"))
			assert.Equal(t, "Bahnhofstr", q.Get("name"))
		})
	}
}

func TestLookupStreet_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not a list", body: `{"streets":"Bahnhofstrasse"}`},
		{name: "numeric entry", body: `{"streets":[42]}`},
		{name: "not json", body: `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.set("/streets", http.StatusOK, tt.body)
			c := up.newClient(nil)

			_, err := c.LookupStreet(context.Background(), "8001", "Bahnhof")
			assert.ErrorIs(t, err, ErrNoMatch)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestLookupStreet_EmptyName(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/streets", http.StatusOK, `{"streets":[{"name":""}]}`)
	c := up.newClient(nil)

	_, err := c.LookupStreet(context.Background(), "8001", "Bahnhof")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestLookupHouseNumber(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/houses", http.StatusOK, `{"houses":[{"number":"12a"}]}`)
	c := up.newClient(nil)

	got, err := c.LookupHouseNumber(context.Background(), "8001", "Bahnhofstrasse", "12")
	require.NoError(t, err)
	assert.Equal(t, "12a", got)

	q := up.query("/houses")
	assert.Equal(t, "8001", q.Get("zip"))
	assert.Equal(t, "Bahnhofstrasse", q.Get("streetname"))
	assert.Equal(t, "12", q.Get("number"))
}

func TestLookup_ServerErrorDegrades(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/houses", http.StatusInternalServerError, `oops`)
	c := up.newClient(nil)

	_, err := c.LookupHouseNumber(context.Background(), "8001", "Bahnhofstrasse", "12")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, ErrNetwork)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestLookup_TokenFailureDegrades(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/token", http.StatusUnauthorized, `{}`)
	up.set("/zips", http.StatusOK, `{"zips":[{"city18":"Bern"}]}`)
	c := up.newClient(nil)

	_, err := c.LookupCity(context.Background(), "3000", "Bern")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 0, up.count("/zips"))
}

func TestLookupCache_ServesRepeatedLookups(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/zips", http.StatusOK, `{"zips":[{"city18":"Zürich"}]}`)
	cache := NewLookupCache(16, time.Minute)
	c := up.newClient(cache)

	for i := 0; i < 3; i++ {
		zips, err := c.LookupCity(context.Background(), "8000", "Zürich")
		require.NoError(t, err)
		assert.Equal(t, "Zürich", zips[0].City18)
	}
	assert.Equal(t, 1, up.count("/zips"))
	assert.Equal(t, 1, cache.Len())
}

func TestLookupCache_DoesNotStoreMisses(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/streets", http.StatusOK, `{"streets":[]}`)
	cache := NewLookupCache(16, time.Minute)
	c := up.newClient(cache)

	for i := 0; i < 2; i++ {
		_, err := c.LookupStreet(context.Background(), "8000", "Nowhere")
		assert.ErrorIs(t, err, ErrNoMatch)
	}
	assert.Equal(t, 2, up.count("/streets"))
	assert.Equal(t, 0, cache.Len())
}

func TestNewLookupCache_Disabled(t *testing.T) {
	cache := NewLookupCache(0, time.Minute)
	assert.Nil(t, cache)
	assert.Equal(t, 0, cache.Len())
	cache.Purge()
}

func TestValidateAddress_RequestDocument(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/addresses/validation", http.StatusOK, `{"quality":"CERTIFIED"}`)
	c := up.newClient(nil)

	_, err := c.ValidateAddress(context.Background(), ValidationRequest{
		Firstname:   "Anna",
		Lastname:    "Muster",
		StreetName:  "Bahnhofstrasse",
		HouseNumber: "1",
		City:        "Zürich",
		Postcode:    "8001",
	})
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(up.body(), &doc))

	assert.Equal(t, true, doc["fullValidation"])
	assert.Equal(t, map[string]interface{}{"firstName": "Anna", "lastName": "Muster"}, doc["addressee"])
	assert.Equal(t, map[string]interface{}{
		"house": map[string]interface{}{"street": "Bahnhofstrasse", "houseNumber": "1"},
		"zip":   map[string]interface{}{"zip": "8001", "city": "Zürich"},
	}, doc["geographicLocation"])
}

func TestValidateAddress_ParsesResponse(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/addresses/validation", http.StatusOK, mustJSON(t, map[string]interface{}{
		"quality": "domicile_certified",
		"address": map[string]interface{}{
			"geographicLocation": map[string]interface{}{
				"house": map[string]interface{}{"street": "Bahnhofstrasse", "houseNumber": "1"},
			},
		},
	}))
	c := up.newClient(nil)

	resp, err := c.ValidateAddress(context.Background(), ValidationRequest{Postcode: "8001"})
	require.NoError(t, err)
	assert.Equal(t, models.QualityDomicileCertified, resp.Quality)
	assert.Equal(t, "Bahnhofstrasse", resp.Street)
	assert.Equal(t, "1", resp.HouseNumber)
	assert.Equal(t, "domicile_certified", resp.Raw["quality"])
}

func TestValidateAddress_MissingQuality(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/addresses/validation", http.StatusOK, `{"address":{}}`)
	c := up.newClient(nil)

	resp, err := c.ValidateAddress(context.Background(), ValidationRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.QualityUnusable, resp.Quality)
	assert.Equal(t, "", resp.Street)
}

func TestValidateAddress_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, body: `bad gateway`, want: ErrNetwork},
		{name: "token rejected", status: http.StatusUnauthorized, body: `{}`, want: ErrAuth},
		{name: "not an object", status: http.StatusOK, body: `["CERTIFIED"]`, want: ErrMalformedResponse},
		{name: "null payload", status: http.StatusOK, body: `null`, want: ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.set("/addresses/validation", tt.status, tt.body)
			c := up.newClient(nil)

			_, err := c.ValidateAddress(context.Background(), ValidationRequest{})
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, IsNoMatch(err))
		})
	}
}

func TestClient_RateLimit(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/zips", http.StatusOK, `{"zips":[{"city18":"Bern"}]}`)
	c := NewClient(Config{BaseURL: up.server.URL, RateLimit: 10, RateBurst: 1}, up.newTokenCache(), up.server.Client(), nil, zap.NewNop(), nil)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.LookupCity(context.Background(), "3000", "Bern")
		require.NoError(t, err)
	}
	// burst 1 at 10/s: the second and third call each wait ~100ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 3, up.count("/zips"))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	up := newFakeUpstream(t)
	up.set("/zips", http.StatusOK, `{"zips":[{"city18":"Bern"}]}`)
	c := NewClient(Config{BaseURL: up.server.URL, RateLimit: 0.01, RateBurst: 1}, up.newTokenCache(), up.server.Client(), nil, zap.NewNop(), nil)

	_, err := c.LookupCity(context.Background(), "3000", "Bern")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.LookupCity(ctx, "3000", "Bern")
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.ErrorIs(t, err, ErrNetwork)
}
