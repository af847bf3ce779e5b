package normalizer

import "github.com/address-validator/app/models"

// FormatOutput builds the display form. Street and city casing come from the
// validation service and pass through unchanged ("Rue de la Gare" keeps "de").
// Person names are title-cased; the company only gets legal-form casing.
func FormatOutput(streetName, houseNumber, city, postcode, firstname, lastname, company string) models.CorrectedAddress {
	return models.CorrectedAddress{
		StreetName:  streetName,
		HouseNumber: houseNumber,
		City:        city,
		Postcode:    postcode,
		StreetFull:  JoinStreet(streetName, houseNumber),
		Firstname:   TitleCase(firstname),
		Lastname:    TitleCase(lastname),
		Company:     NormalizeLegalForm(company),
	}
}
