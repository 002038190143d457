// Package form owns the service-center onboarding form: the mutable record,
// per-field errors, image/preview pairing, and the async submission and
// location workflows. It is the client-side counterpart of the server's
// /api/service-center endpoint.
package form

import (
	"context"
	"errors"

	"serviceonboard/geo"
)

const countryIndia = "India"

// CategoryOptions is the closed set of selectable service categories.
var CategoryOptions = []string{"Mechanic", "AC", "Electrician"}

// Attachment is a locally-held binary image the user picked for upload.
type Attachment struct {
	Name     string
	MimeType string
	Bytes    []byte
}

// Record is the mutable form entity, owned exclusively by one Controller
// for the lifetime of an onboarding session. Latitude and longitude are
// never set through UpdateField; only the location operations write them.
type Record struct {
	CenterName string
	Phone      string
	Email      string
	City       string
	State      string
	ZipCode    string
	Country    string
	Latitude   string
	Longitude  string
	Categories []string
	Images     []Attachment
}

func initialRecord() Record {
	return Record{Country: countryIndia}
}

// FieldErrors holds one optional message per validated field. A blank
// entry means the field currently passes. The shape is fixed so callers
// never probe for unknown keys.
type FieldErrors struct {
	CenterName string
	Phone      string
	Email      string
	City       string
	State      string
	ZipCode    string
	Location   string
	Categories string
	Images     string
}

// Empty reports whether no field currently fails validation.
func (e FieldErrors) Empty() bool {
	return e == FieldErrors{}
}

// Status exposes the three independent in-flight flags. Each is scoped to
// exactly one async operation and resets on completion, success or not.
type Status struct {
	Locating        bool
	FetchingAddress bool
	Submitting      bool
}

// Response is the parsed JSON body of a submission, returned verbatim.
type Response struct {
	Success   bool   `json:"success"`
	ID        int64  `json:"id"`
	CreatedAt string `json:"createdAt"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

// Locator provides a single coordinate fix.
type Locator interface {
	CurrentPosition(ctx context.Context) (geo.Coordinates, error)
}

// AddressResolver reverse-geocodes a coordinate pair.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*geo.Address, error)
}

// Submitter posts a completed record to the submission endpoint.
type Submitter interface {
	Submit(ctx context.Context, record *Record) (*Response, error)
}

// ErrNoCoordinates rejects AutofillAddress before any coordinates were captured.
var ErrNoCoordinates = errors.New("form: fetch coordinates first")

// ErrValidationFailed aborts Submit when the record fails validation.
var ErrValidationFailed = errors.New("form: fix all errors before submitting")
