package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/address-validator/app/models"
	"github.com/address-validator/internal/swisspost"
)

var errUnexpectedValidation = errors.New("unexpected validation call")

type validationReply struct {
	resp *swisspost.ValidationResponse
	err  error
}

func reply(q models.Quality) validationReply {
	return validationReply{resp: &swisspost.ValidationResponse{
		Quality: q,
		Raw:     map[string]interface{}{"quality": string(q)},
	}}
}

func canonical(q models.Quality, street, house string) validationReply {
	r := reply(q)
	r.resp.Street = street
	r.resp.HouseNumber = house
	return r
}

func failure(err error) validationReply {
	return validationReply{err: err}
}

// fakeLookuper answers from fixed tables and replays validation replies in order.
type fakeLookuper struct {
	mu sync.Mutex

	zips    map[string][]swisspost.ZipCity
	streets map[string]string // postcode|hint
	houses  map[string]string // postcode|street|number
	replies []validationReply

	lookupErr error

	cityCalls   int
	streetCalls int
	houseCalls  int
	requests    []swisspost.ValidationRequest
}

func newFakeLookuper(replies ...validationReply) *fakeLookuper {
	return &fakeLookuper{
		zips:    map[string][]swisspost.ZipCity{},
		streets: map[string]string{},
		houses:  map[string]string{},
		replies: replies,
	}
}

func (f *fakeLookuper) LookupCity(ctx context.Context, postcode, cityHint string) ([]swisspost.ZipCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cityCalls++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	zips, ok := f.zips[postcode]
	if !ok {
		return nil, swisspost.ErrNoMatch
	}
	return zips, nil
}

func (f *fakeLookuper) LookupStreet(ctx context.Context, postcode, streetHint string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streetCalls++
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	street, ok := f.streets[postcode+"|"+streetHint]
	if !ok {
		return "", swisspost.ErrNoMatch
	}
	return street, nil
}

func (f *fakeLookuper) LookupHouseNumber(ctx context.Context, postcode, street, numberHint string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.houseCalls++
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	number, ok := f.houses[postcode+"|"+street+"|"+numberHint]
	if !ok {
		return "", swisspost.ErrNoMatch
	}
	return number, nil
}

func (f *fakeLookuper) ValidateAddress(ctx context.Context, in swisspost.ValidationRequest) (*swisspost.ValidationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, in)
	if len(f.replies) == 0 {
		return nil, errUnexpectedValidation
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	return next.resp, next.err
}

func (f *fakeLookuper) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cityCalls + f.streetCalls + f.houseCalls
}

func correctionTypes(res *models.ValidationResult) []string {
	types := make([]string, 0, len(res.Corrections))
	for _, c := range res.Corrections {
		types = append(types, c.Type)
	}
	return types
}
