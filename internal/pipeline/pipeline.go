package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/address-validator/app/models"
	"github.com/address-validator/internal/metrics"
	"github.com/address-validator/internal/normalizer"
	"github.com/address-validator/internal/swisspost"
	"go.uber.org/zap"
)

// Lookuper is the address service surface the pipeline drives.
// *swisspost.Client implements it.
type Lookuper interface {
	LookupCity(ctx context.Context, postcode, cityHint string) ([]swisspost.ZipCity, error)
	LookupStreet(ctx context.Context, postcode, streetHint string) (string, error)
	LookupHouseNumber(ctx context.Context, postcode, street, numberHint string) (string, error)
	ValidateAddress(ctx context.Context, in swisspost.ValidationRequest) (*swisspost.ValidationResponse, error)
}

// Pipeline sửa và validate một địa chỉ qua các bước tuần tự
type Pipeline struct {
	client  Lookuper
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New tạo pipeline. m may be nil.
func New(client Lookuper, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, logger: logger, metrics: m}
}

// run is the state of one pipeline execution.
type run struct {
	p           *Pipeline
	input       models.AddressInput
	w           models.WorkingAddress
	corrections []models.Correction
	logger      *zap.Logger
}

// Run corrects and validates one address. Lookup failures are absorbed;
// a failed validation call ends the run with an error-status result.
// Run never returns nil.
func (p *Pipeline) Run(ctx context.Context, in models.AddressInput) *models.ValidationResult {
	start := time.Now()

	r := &run{
		p:           p,
		input:       in,
		corrections: []models.Correction{},
		logger:      p.logger.With(zap.String("postcode", strings.TrimSpace(in.Postcode))),
	}
	res := r.execute(ctx)

	p.metrics.ObservePipelineRun(start, res.Status, string(res.Quality))
	r.logger.Debug("Pipeline finished",
		zap.String("status", res.Status),
		zap.String("quality", string(res.Quality)),
		zap.Int("corrections", len(res.Corrections)),
		zap.Duration("took", time.Since(start)))
	return res
}

func (r *run) execute(ctx context.Context) *models.ValidationResult {
	if missing := r.input.MissingFields(); len(missing) > 0 {
		return models.NewErrorResult(r.input, r.corrections,
			"missing required fields: "+strings.Join(missing, ", "))
	}

	r.split()
	r.capitalizeStreet()

	probe, err := r.validate(ctx)
	if err != nil {
		return r.fail(err)
	}
	if probe.Quality.IsCertified() {
		r.logger.Debug("Address accepted as given", zap.String("quality", string(probe.Quality)))
		r.enforceCanonical(probe)
		r.formatPerson()
		return r.assemble(probe)
	}

	r.swapPostcodeCity()
	r.resolveCity(ctx)
	r.expandAbbreviations()
	r.resolveStreet(ctx)
	r.resolveHouseNumber(ctx)

	final, err := r.validate(ctx)
	if err != nil {
		return r.fail(err)
	}
	r.enforceCanonical(final)

	if final.Quality == models.QualityUsable {
		final, err = r.improveUsable(ctx)
		if err != nil {
			return r.fail(err)
		}
	}

	r.formatPerson()
	return r.assemble(final)
}

func (r *run) record(correctionType, message string, old, new interface{}) {
	r.corrections = append(r.corrections, models.Correction{
		Type:    correctionType,
		Message: message,
		Old:     old,
		New:     new,
	})
	r.p.metrics.ObserveCorrection(correctionType, old, new)
	r.logger.Debug("Correction applied",
		zap.String("type", correctionType),
		zap.Any("old", old),
		zap.Any("new", new))
}

// 1. tách số nhà
func (r *run) split() {
	raw := strings.TrimSpace(r.input.Street)
	parts := normalizer.ParseStreet(raw)

	if parts.CommasCollapsed {
		r.record(models.CorrectionCommaRemoved, "Comma removed from street", raw, parts.Collapsed)
	}
	if parts.Position == normalizer.NumberLeading {
		r.record(models.CorrectionHouseNumberMoved, "House number moved from the start of the street to the end",
			parts.Collapsed, normalizer.JoinStreet(parts.Name, parts.Number))
	}

	r.w = models.WorkingAddress{
		StreetName:  parts.Name,
		HouseNumber: parts.Number,
		City:        strings.TrimSpace(r.input.City),
		Postcode:    strings.TrimSpace(r.input.Postcode),
		Firstname:   r.input.Firstname,
		Lastname:    r.input.Lastname,
		Company:     r.input.Company,
	}
}

// 2.
func (r *run) capitalizeStreet() {
	capitalized := normalizer.Capitalize(r.w.StreetName)
	if capitalized != r.w.StreetName {
		r.record(models.CorrectionStreetCapitalized, "Street name capitalized", r.w.StreetName, capitalized)
		r.w.StreetName = capitalized
	}
}

// 4. city chứa PLZ còn postcode thì không
func (r *run) swapPostcodeCity() {
	if !normalizer.IsSwissPostcode(r.w.City) || normalizer.IsSwissPostcode(r.w.Postcode) {
		return
	}
	r.record(models.CorrectionSwapPostcodeCity, "Postcode and city were swapped",
		models.PostcodeCity{Postcode: r.w.Postcode, City: r.w.City},
		models.PostcodeCity{Postcode: r.w.City, City: r.w.Postcode})
	r.w.Postcode, r.w.City = r.w.City, r.w.Postcode
}

// 5. primary pass, then the enhanced pass over the same candidates
func (r *run) resolveCity(ctx context.Context) {
	if r.w.Postcode == "" {
		return
	}
	zips, err := r.p.client.LookupCity(ctx, r.w.Postcode, r.w.City)
	if err != nil {
		r.absorb(swisspost.OpZips, err)
		return
	}

	city, strategy := r.primaryCity(zips)
	message := "City corrected via ZIP lookup"
	if city == "" {
		city, strategy = MatchCity(r.w.City, CityCandidates(zips), EnhancedCityThreshold)
		message = "City corrected via extended ZIP search"
	}
	if city == "" {
		r.logger.Debug("No city candidate accepted", zap.String("city", r.w.City), zap.Int("entries", len(zips)))
		return
	}

	if city != r.w.City {
		r.logger.Debug("City matched", zap.String("strategy", string(strategy)))
		r.record(models.CorrectionCity, message, r.w.City, city)
		r.w.City = city
	}
}

// primaryCity runs the cascade with the primary gate. When it finds nothing
// and the postcode has a single zip entry, that entry is taken as is.
func (r *run) primaryCity(zips []swisspost.ZipCity) (string, MatchStrategy) {
	if city, strategy := MatchCity(r.w.City, CityCandidates(zips), PrimaryCityThreshold); city != "" {
		return city, strategy
	}
	if len(zips) == 1 {
		if names := zips[0].Names(); len(names) > 0 {
			return names[0], MatchSingle
		}
	}
	return "", MatchNone
}

// 6.
func (r *run) expandAbbreviations() {
	expanded := normalizer.ExpandAbbreviations(r.w.StreetName)
	if expanded != r.w.StreetName {
		r.record(models.CorrectionAbbreviationExpanded, "Street abbreviation expanded", r.w.StreetName, expanded)
		r.w.StreetName = expanded
	}
}

// 7.
func (r *run) resolveStreet(ctx context.Context) {
	street, ok := r.lookupStreet(ctx)
	if ok && street != r.w.StreetName {
		r.record(models.CorrectionStreet, "Street name corrected via street lookup", r.w.StreetName, street)
		r.w.StreetName = street
	}
}

// 8.
func (r *run) resolveHouseNumber(ctx context.Context) {
	if r.w.Postcode == "" || r.w.StreetName == "" || r.w.HouseNumber == "" {
		return
	}
	number, err := r.p.client.LookupHouseNumber(ctx, r.w.Postcode, r.w.StreetName, r.w.HouseNumber)
	if err != nil {
		r.absorb(swisspost.OpHouses, err)
		return
	}
	if number != r.w.HouseNumber {
		r.record(models.CorrectionHouseNumber, "House number corrected via house lookup", r.w.HouseNumber, number)
		r.w.HouseNumber = number
	}
}

func (r *run) lookupStreet(ctx context.Context) (string, bool) {
	if r.w.Postcode == "" || r.w.StreetName == "" {
		return "", false
	}
	street, err := r.p.client.LookupStreet(ctx, r.w.Postcode, r.w.StreetName)
	if err != nil {
		r.absorb(swisspost.OpStreets, err)
		return "", false
	}
	return street, true
}

// 10. chạy tối đa một lần, tối đa hai lần validate thêm
func (r *run) improveUsable(ctx context.Context) (*swisspost.ValidationResponse, error) {
	if street, ok := r.lookupStreet(ctx); ok && street != r.w.StreetName {
		r.record(models.CorrectionStreetAfterUsable, "Street name improved via street lookup after USABLE", r.w.StreetName, street)
		r.w.StreetName = street
	}

	retry, err := r.validate(ctx)
	if err != nil {
		return nil, err
	}
	if retry.Quality.IsCertified() {
		return retry, nil
	}

	if r.w.Postcode != "" {
		zips, err := r.p.client.LookupCity(ctx, r.w.Postcode, r.w.City)
		if err != nil {
			r.absorb(swisspost.OpZips, err)
		} else if city, ok := BestBySimilarity(r.w.City, CityCandidates(zips)); ok && city != r.w.City {
			r.record(models.CorrectionCityAfterUsable, "City improved via ZIP lookup after USABLE (character overlap)", r.w.City, city)
			r.w.City = city
		}
	}

	// adopted whatever it returns, even when worse than USABLE
	return r.validate(ctx)
}

// 3./9. the service's street and house number win over local guesses
func (r *run) enforceCanonical(resp *swisspost.ValidationResponse) {
	if resp.Street != "" && resp.Street != r.w.StreetName {
		r.record(models.CorrectionStreetFromAPI, "Street adopted from address service", r.w.StreetName, resp.Street)
		r.w.StreetName = resp.Street
	}
	if resp.HouseNumber != "" && resp.HouseNumber != r.w.HouseNumber {
		r.record(models.CorrectionHouseNumberFromAPI, "House number adopted from address service", r.w.HouseNumber, resp.HouseNumber)
		r.w.HouseNumber = resp.HouseNumber
	}
}

// 11.
func (r *run) formatPerson() {
	if r.w.Firstname != "" {
		if formatted := normalizer.TitleCase(r.w.Firstname); formatted != r.w.Firstname {
			r.record(models.CorrectionFirstnameFormatted, "First name formatted", r.w.Firstname, formatted)
			r.w.Firstname = formatted
		}
	}
	if r.w.Lastname != "" {
		if formatted := normalizer.TitleCase(r.w.Lastname); formatted != r.w.Lastname {
			r.record(models.CorrectionLastnameFormatted, "Last name formatted", r.w.Lastname, formatted)
			r.w.Lastname = formatted
		}
	}
	if r.w.Company != "" {
		if normalized := normalizer.NormalizeLegalForm(r.w.Company); normalized != r.w.Company {
			r.record(models.CorrectionLegalFormNormalized, "Legal form in company name normalized", r.w.Company, normalized)
			r.w.Company = normalized
		}
	}
}

func (r *run) validate(ctx context.Context) (*swisspost.ValidationResponse, error) {
	r.p.metrics.IncrementValidationCalls()
	resp, err := r.p.client.ValidateAddress(ctx, swisspost.ValidationRequest{
		Firstname:   r.w.Firstname,
		Lastname:    r.w.Lastname,
		Company:     r.w.Company,
		StreetName:  r.w.StreetName,
		HouseNumber: r.w.HouseNumber,
		City:        r.w.City,
		Postcode:    r.w.Postcode,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Validation", zap.String("quality", string(resp.Quality)))
	return resp, nil
}

// absorb logs a lookup failure; the run continues without that correction.
func (r *run) absorb(operation string, err error) {
	if isPlainNoMatch(err) {
		r.logger.Debug("Lookup returned no match", zap.String("operation", operation))
		return
	}
	r.logger.Warn("Lookup failed, continuing without correction",
		zap.String("operation", operation),
		zap.Error(err))
}

func isPlainNoMatch(err error) bool {
	return errors.Is(err, swisspost.ErrNoMatch) &&
		!errors.Is(err, swisspost.ErrNetwork) &&
		!errors.Is(err, swisspost.ErrAuth) &&
		!errors.Is(err, swisspost.ErrMalformedResponse)
}

func (r *run) fail(err error) *models.ValidationResult {
	r.logger.Error("Address validation failed", zap.Error(err))
	return models.NewErrorResult(r.input, r.corrections, errorMessage(err))
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, swisspost.ErrConfig):
		return fmt.Sprintf("address service not configured: %v", err)
	case errors.Is(err, swisspost.ErrAuth):
		return fmt.Sprintf("authentication with address service failed: %v", err)
	case errors.Is(err, swisspost.ErrMalformedResponse):
		return fmt.Sprintf("unexpected validation response: %v", err)
	default:
		return fmt.Sprintf("address validation failed: %v", err)
	}
}

// 12.
func (r *run) assemble(resp *swisspost.ValidationResponse) *models.ValidationResult {
	score := resp.Quality.Score()
	corrected := normalizer.FormatOutput(
		r.w.StreetName, r.w.HouseNumber, r.w.City, r.w.Postcode,
		r.w.Firstname, r.w.Lastname, r.w.Company,
	)
	return &models.ValidationResult{
		Status:         models.StatusForScore(score),
		Quality:        resp.Quality,
		Score:          score,
		Corrections:    r.corrections,
		Input:          r.input,
		Corrected:      &corrected,
		Validation:     resp.Raw,
		HasCorrections: len(r.corrections) > 0,
	}
}
