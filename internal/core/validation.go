package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// PhoneRegion is the default region used to parse local phone numbers.
const PhoneRegion = "IN"

const dateLayout = "2006-01-02"

var (
	validate       = validator.New()
	phoneCharsOnly = regexp.MustCompile(`^[0-9+\-\s()]+$`)
)

// NormalizePhone accepts local or +91-prefixed input and returns the 10-digit national number.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", validationErr("phone is required")
	}
	if !phoneCharsOnly.MatchString(raw) {
		return "", validationErr("phone %q must contain digits only", raw)
	}
	num, err := libphonenumber.Parse(raw, PhoneRegion)
	if err != nil {
		return "", validationErr("phone %q: %v", raw, err)
	}
	national := strconv.FormatUint(num.GetNationalNumber(), 10)
	if len(national) != 10 {
		return "", validationErr("phone must be exactly 10 digits, got %q", raw)
	}
	return national, nil
}

// structErr runs tag validation on v and flattens failures into one validation error.
func structErr(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return validationErr("%v", err)
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	sort.Strings(fields)
	return validationErr("%s", strings.Join(fields, ", "))
}

// parseDate parses a YYYY-MM-DD date; empty input yields today.
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, validationErr("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

// validateSlots checks quantities, rates, and duplicate product types.
// requireLine demands at least one slot with a positive quantity.
func validateSlots(slots []SlotInput, requireLine bool) error {
	seen := make(map[string]bool, len(slots))
	hasLine := false
	for i, s := range slots {
		if err := structErr(s); err != nil {
			return fmt.Errorf("slot %d: %w", i+1, err)
		}
		if seen[s.ProductType] {
			return validationErr("product %s appears more than once", s.ProductType)
		}
		seen[s.ProductType] = true
		if s.Quantity.IsNegative() {
			return validationErr("%s quantity cannot be negative", s.ProductType)
		}
		if s.Rate.IsNegative() {
			return validationErr("%s rate cannot be negative", s.ProductType)
		}
		if s.Quantity.IsPositive() {
			if IsSentinel(s.ProductType) {
				return validationErr("%s cannot carry a quantity", ProductNull)
			}
			hasLine = true
		}
	}
	if requireLine && !hasLine {
		return validationErr("at least one product line with quantity > 0 is required")
	}
	return nil
}

func validateAmount(name string, v decimal.Decimal) error {
	if v.IsNegative() {
		return validationErr("%s cannot be negative", name)
	}
	return nil
}
