package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Client posts completed records to the submission endpoint as multipart
// form data. No timeout is enforced here; the underlying transport's
// defaults apply.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient returns a submission client for the given endpoint.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Endpoint: endpoint, HTTP: httpClient}
}

// Submit serializes the record into one multipart request: every scalar
// field as a text part, one repeated "categories" part per selection, one
// repeated "images" file part per attachment. The JSON response body is
// parsed regardless of status; non-2xx responses fail with the server's
// error message when present.
func (c *Client) Submit(ctx context.Context, record *Record) (*Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"centerName": record.CenterName,
		"phone":      record.Phone,
		"email":      record.Email,
		"city":       record.City,
		"state":      record.State,
		"zipCode":    record.ZipCode,
		"country":    record.Country,
		"latitude":   record.Latitude,
		"longitude":  record.Longitude,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	for _, category := range record.Categories {
		if err := writer.WriteField("categories", category); err != nil {
			return nil, err
		}
	}
	for _, image := range record.Images {
		part, err := writer.CreateFormFile("images", image.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(image.Bytes); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed Response
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("form: submission rejected: %s", parsed.Message)
		}
		if parsed.Error != "" {
			return nil, fmt.Errorf("form: submission rejected: %s", parsed.Error)
		}
		return nil, fmt.Errorf("form: failed to submit form (status %d)", resp.StatusCode)
	}
	return &parsed, nil
}
