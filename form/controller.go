package form

import (
	"context"
	"fmt"
	"strconv"
)

// Controller owns one onboarding session: the form record, the error map,
// the image/preview pairing, and the in-flight flags. Operations mutate
// state in place and delegate async work to the three collaborators.
// A Controller is driven from a single goroutine; it does not serialize
// overlapping async operations, and overlapping location fetches apply
// in completion order.
type Controller struct {
	record   Record
	errors   FieldErrors
	previews []Preview
	status   Status

	locator   Locator
	resolver  AddressResolver
	submitter Submitter
}

// NewController returns a controller with an empty record.
func NewController(locator Locator, resolver AddressResolver, submitter Submitter) *Controller {
	return &Controller{
		record:    initialRecord(),
		locator:   locator,
		resolver:  resolver,
		submitter: submitter,
	}
}

// Record returns a copy of the current form record.
func (c *Controller) Record() Record { return c.record }

// Errors returns the current per-field error map.
func (c *Controller) Errors() FieldErrors { return c.errors }

// Status returns the current in-flight flags.
func (c *Controller) Status() Status { return c.status }

// Previews returns the display URIs paired with the current images,
// in insertion order.
func (c *Controller) Previews() []string {
	uris := make([]string, len(c.previews))
	for i, preview := range c.previews {
		uris[i] = preview.URI
	}
	return uris
}

// UpdateField overwrites one scalar text field and clears only that
// field's error. Latitude, longitude and country are not updatable here;
// the location operations own them.
func (c *Controller) UpdateField(name, value string) error {
	switch name {
	case "centerName":
		c.record.CenterName = value
		c.errors.CenterName = ""
	case "phone":
		c.record.Phone = value
		c.errors.Phone = ""
	case "email":
		c.record.Email = value
		c.errors.Email = ""
	case "city":
		c.record.City = value
		c.errors.City = ""
	case "state":
		c.record.State = value
		c.errors.State = ""
	case "zipCode":
		c.record.ZipCode = value
		c.errors.ZipCode = ""
	default:
		return fmt.Errorf("form: field %q is not updatable", name)
	}
	return nil
}

// ToggleCategory flips membership of one label from the fixed option set.
// Insertion order is preserved for display.
func (c *Controller) ToggleCategory(label string) error {
	known := false
	for _, option := range CategoryOptions {
		if option == label {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("form: unknown category %q", label)
	}

	for i, selected := range c.record.Categories {
		if selected == label {
			c.record.Categories = append(c.record.Categories[:i], c.record.Categories[i+1:]...)
			return nil
		}
	}
	c.record.Categories = append(c.record.Categories, label)
	return nil
}

// AddImages appends the attachments in the order given, generating one
// preview per attachment, and clears any images error. Each image and its
// preview are appended as a pair, so the counts stay equal even when
// preview generation fails partway.
func (c *Controller) AddImages(files []Attachment) error {
	for _, file := range files {
		preview, err := newPreview(file)
		if err != nil {
			return err
		}
		c.record.Images = append(c.record.Images, file)
		c.previews = append(c.previews, preview)
	}
	c.errors.Images = ""
	return nil
}

// RemoveImage drops the image and its paired preview at index, releasing
// the preview handle.
func (c *Controller) RemoveImage(index int) error {
	if index < 0 || index >= len(c.record.Images) {
		return fmt.Errorf("form: image index %d out of range", index)
	}
	c.previews[index].Release()
	c.record.Images = append(c.record.Images[:index], c.record.Images[index+1:]...)
	c.previews = append(c.previews[:index], c.previews[index+1:]...)
	return nil
}

// FetchCurrentLocation requests one coordinate fix and stores it as
// fixed-precision decimal text. Repeat calls overwrite previous
// coordinates. On failure the prior coordinates are kept and a location
// error is set.
func (c *Controller) FetchCurrentLocation(ctx context.Context) error {
	c.status.Locating = true
	defer func() { c.status.Locating = false }()

	pos, err := c.locator.CurrentPosition(ctx)
	if err != nil {
		c.errors.Location = "Unable to retrieve location"
		return err
	}
	c.record.Latitude = strconv.FormatFloat(pos.Latitude, 'f', 6, 64)
	c.record.Longitude = strconv.FormatFloat(pos.Longitude, 'f', 6, 64)
	c.errors.Location = ""
	return nil
}

// AutofillAddress resolves the captured coordinates to city/state/zip and
// merges them into the record. Rejected with ErrNoCoordinates until a
// location has been captured. On lookup failure the record is untouched.
func (c *Controller) AutofillAddress(ctx context.Context) error {
	if c.record.Latitude == "" {
		return ErrNoCoordinates
	}

	c.status.FetchingAddress = true
	defer func() { c.status.FetchingAddress = false }()

	lat, err := strconv.ParseFloat(c.record.Latitude, 64)
	if err != nil {
		return fmt.Errorf("form: bad latitude %q: %w", c.record.Latitude, err)
	}
	lng, err := strconv.ParseFloat(c.record.Longitude, 64)
	if err != nil {
		return fmt.Errorf("form: bad longitude %q: %w", c.record.Longitude, err)
	}

	address, err := c.resolver.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return err
	}
	c.record.City = address.City
	c.record.State = address.State
	c.record.ZipCode = address.ZipCode
	c.record.Country = countryIndia
	c.errors.City = ""
	c.errors.State = ""
	c.errors.ZipCode = ""
	return nil
}

// Validate re-derives the whole error map from the current record and
// replaces the controller's map with it. Pure apart from that swap:
// calling it twice without intervening mutation yields the same map.
func (c *Controller) Validate() bool {
	c.errors = validateRecord(&c.record)
	return c.errors.Empty()
}

// Submit validates and, when clean, posts the record. Invalid records
// abort with ErrValidationFailed before any network call. A successful
// submission resets the session; a failed one preserves every field so
// the user can correct and retry.
func (c *Controller) Submit(ctx context.Context) (*Response, error) {
	if !c.Validate() {
		return nil, ErrValidationFailed
	}

	c.status.Submitting = true
	defer func() { c.status.Submitting = false }()

	resp, err := c.submitter.Submit(ctx, &c.record)
	if err != nil {
		return nil, err
	}
	c.reset()
	return resp, nil
}

func (c *Controller) reset() {
	for _, preview := range c.previews {
		preview.Release()
	}
	c.record = initialRecord()
	c.previews = nil
	c.errors = FieldErrors{}
}
