package requests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/address-validator/app/models"
)

// Field chuỗi JSON chấp nhận cả số (postcode thường gửi dạng 8001) và null
type Field string

// UnmarshalJSON accepts a string, a number or null.
func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = Field(strconv.FormatInt(i, 10))
		return nil
	}
	*f = Field(n.String())
	return nil
}

// ValidateAddressRequest request validate địa chỉ đơn lẻ
type ValidateAddressRequest struct {
	Street    Field `json:"street"`
	City      Field `json:"city"`
	Postcode  Field `json:"postcode"`
	Firstname Field `json:"firstname,omitempty"`
	Lastname  Field `json:"lastname,omitempty"`
	Company   Field `json:"company,omitempty"`
}

// ToInput chuyển request sang AddressInput, giữ nguyên giá trị gốc
func (r ValidateAddressRequest) ToInput() models.AddressInput {
	return models.AddressInput{
		Firstname: string(r.Firstname),
		Lastname:  string(r.Lastname),
		Company:   string(r.Company),
		Street:    string(r.Street),
		City:      string(r.City),
		Postcode:  string(r.Postcode),
	}
}

// BatchValidateRequest request validate hàng loạt
type BatchValidateRequest struct {
	Addresses []ValidateAddressRequest `json:"addresses" binding:"required"`
}

// ToInputs chuyển toàn bộ batch sang AddressInput
func (r BatchValidateRequest) ToInputs() []models.AddressInput {
	out := make([]models.AddressInput, len(r.Addresses))
	for i, a := range r.Addresses {
		out[i] = a.ToInput()
	}
	return out
}
