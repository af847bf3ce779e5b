package models

// Correction types, in the order the pipeline can emit them.
const (
	CorrectionCommaRemoved         = "comma_removed_from_street"
	CorrectionHouseNumberMoved     = "house_number_moved_to_end"
	CorrectionStreetCapitalized    = "street_name_capitalized"
	CorrectionStreetFromAPI        = "street_from_api_enforced"
	CorrectionHouseNumberFromAPI   = "house_number_from_api_enforced"
	CorrectionSwapPostcodeCity     = "swap_plz_city"
	CorrectionCity                 = "city_corrected"
	CorrectionAbbreviationExpanded = "street_abbreviation_expanded"
	CorrectionStreet               = "street_corrected"
	CorrectionHouseNumber          = "house_number_corrected"
	CorrectionStreetAfterUsable    = "street_corrected_after_usable"
	CorrectionCityAfterUsable      = "city_corrected_after_usable"
	CorrectionFirstnameFormatted   = "firstname_formatted"
	CorrectionLastnameFormatted    = "lastname_formatted"
	CorrectionLegalFormNormalized  = "company_legal_form_normalized"
)

// Correction một bước sửa đã áp dụng. Old/New là string, trừ swap_plz_city
// dùng PostcodeCity.
type Correction struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Old     interface{} `json:"old"`
	New     interface{} `json:"new"`
}

// PostcodeCity is the old/new payload of a postcode/city swap.
type PostcodeCity struct {
	Postcode string `json:"postcode"`
	City     string `json:"city"`
}
