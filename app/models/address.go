package models

import "strings"

// AddressInput địa chỉ thô nhận từ caller
type AddressInput struct {
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Company   string `json:"company,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
}

// MissingFields returns the required fields that are empty after trimming.
func (in AddressInput) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(in.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(in.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(in.Postcode) == "" {
		missing = append(missing, "postcode")
	}
	return missing
}

// WorkingAddress is the mutable form carried through one pipeline run.
type WorkingAddress struct {
	StreetName  string
	HouseNumber string
	City        string
	Postcode    string
	Firstname   string
	Lastname    string
	Company     string
}

// CorrectedAddress địa chỉ đã chuẩn hoá trả về cho caller
type CorrectedAddress struct {
	StreetName  string `json:"street_name"`
	HouseNumber string `json:"house_number"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	StreetFull  string `json:"street_full"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Company     string `json:"company"`
}
