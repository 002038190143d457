package form

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	zipPattern   = regexp.MustCompile(`^\d{6}$`)
)

// ValidPhone reports whether the value is a 10-digit Indian mobile number
// starting with 6-9.
func ValidPhone(value string) bool { return phonePattern.MatchString(value) }

// ValidEmail reports whether the value has a minimal local@domain.tld shape.
func ValidEmail(value string) bool { return emailPattern.MatchString(value) }

// ValidZipCode reports whether the value is exactly 6 digits.
func ValidZipCode(value string) bool { return zipPattern.MatchString(value) }

// validateRecord re-derives the full error map from the record. It never
// patches the previous map: fields that were cleared but still fail
// re-appear.
func validateRecord(record *Record) FieldErrors {
	var errs FieldErrors
	if strings.TrimSpace(record.CenterName) == "" {
		errs.CenterName = "Center name is required"
	}
	if !ValidPhone(record.Phone) {
		errs.Phone = "Invalid phone number"
	}
	if !ValidEmail(record.Email) {
		errs.Email = "Invalid email address"
	}
	if strings.TrimSpace(record.City) == "" {
		errs.City = "City is required"
	}
	if strings.TrimSpace(record.State) == "" {
		errs.State = "State is required"
	}
	if !ValidZipCode(record.ZipCode) {
		errs.ZipCode = "Invalid zip code"
	}
	if record.Latitude == "" {
		errs.Location = "Location is required"
	}
	if len(record.Categories) == 0 {
		errs.Categories = "Select at least one category"
	}
	if len(record.Images) == 0 {
		errs.Images = "Upload at least one image"
	}
	return errs
}
