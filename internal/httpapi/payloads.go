// ABOUTME: Request payloads and their validation rules
// ABOUTME: Optional fields distinguish absent, null and set for partial updates

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/picco-crm/picco/internal/apperr"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError names one field that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// check runs struct validation and reports failures as a validation error
// whose details list the offending fields.
func (s *Server) check(payload any) error {
	err := s.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, "invalid request", err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return apperr.Validation("invalid fields").WithDetails(fields)
}

// optionalInt records whether a JSON key was present, and if so whether it
// was null.
type optionalInt struct {
	Set   bool
	Value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type registerRequest struct {
	TelegramID json.RawMessage `json:"telegramId"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
}

// telegramID accepts the ID as a JSON number or string.
func (r registerRequest) telegramID() string {
	raw := bytes.TrimSpace(r.TelegramID)
	if len(raw) > 0 && raw[0] == '"' {
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
		return ""
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type orderRequest struct {
	UserID    string          `json:"userId"`
	ProductID string          `json:"productId"`
	StoreID   string          `json:"storeId"`
	Quantity  json.RawMessage `json:"quantity"`
}

// quantity returns nil when the value is absent or not a JSON number, which
// the order service reports as missing fields.
func (r orderRequest) quantity() (*int, error) {
	raw := bytes.TrimSpace(r.Quantity)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, nil
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil, apperr.Validation("invalid quantity")
	}
	q := int(f)
	return &q, nil
}

type productRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

type productUpdate struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       optionalInt      `json:"stock"`
}

type storeRequest struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Phone    string          `json:"phone" validate:"max=50"`
	Address  string          `json:"address" validate:"max=500"`
	Location json.RawMessage `json:"location"`
	AgentID  *string         `json:"agentId" validate:"omitempty,min=1,max=64"`
}

type storeUpdate struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Phone    *string         `json:"phone" validate:"omitempty,max=50"`
	Address  *string         `json:"address" validate:"omitempty,max=500"`
	Location json.RawMessage `json:"location"`
	AgentID  optionalString  `json:"agentId"`
}

type agentStoreRequest struct {
	AgentID  string          `json:"agentId" validate:"required"`
	Name     string          `json:"name" validate:"required,max=200"`
	Phone    string          `json:"phone" validate:"max=50"`
	Address  string          `json:"address" validate:"max=500"`
	Location json.RawMessage `json:"location"`
}

type addAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// checkPrice rejects negative prices.
func checkPrice(p *decimal.Decimal) error {
	if p != nil && p.IsNegative() {
		return apperr.Validation("invalid fields").WithDetails([]FieldError{{Field: "price", Rule: "gte"}})
	}
	return nil
}

func checkStock(n *int) error {
	if n != nil && *n < 0 {
		return apperr.Validation("invalid fields").WithDetails([]FieldError{{Field: "stock", Rule: "gte"}})
	}
	return nil
}

// checkLocation requires location, when given, to be a JSON object.
func checkLocation(raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || raw[0] == '{' {
		return nil
	}
	return apperr.Validation("invalid fields").WithDetails([]FieldError{{Field: "location", Rule: "object"}})
}

func normalizeLocation(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
