package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAPITestServer(t *testing.T) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &App{
		cfg: &Config{
			Env:              "test",
			PublicBaseURL:    "https://api.example.com",
			AppSigningSecret: "0123456789abcdef",
		},
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		rateBuckets: make(map[string]rateBucket),
	}

	router := gin.New()
	api := router.Group("/api")
	{
		api.POST("/service-center", app.createCenterHandler)
		api.GET("/service-centers", app.listCentersHandler)
		api.GET("/service-centers/:id", app.getCenterHandler)
		api.GET("/categories", app.categoriesHandler)
	}
	return app, router
}

type submissionField struct {
	name  string
	value string
}

func validSubmissionFields() []submissionField {
	return []submissionField{
		{"centerName", "Sharma Auto Works"},
		{"phone", "9876543210"},
		{"email", "owner@sharma.in"},
		{"city", "Pune"},
		{"state", "Maharashtra"},
		{"zipCode", "411001"},
		{"country", "India"},
		{"latitude", "18.520430"},
		{"longitude", "73.856743"},
		{"categories", "Mechanic"},
	}
}

func buildSubmissionRequest(t *testing.T, fields []submissionField, imageCount int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for i := 0; i < imageCount; i++ {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="images"; filename="photo-%d.jpg"`, i+1)}
		header["Content-Type"] = []string{"image/jpeg"}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/service-center", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCreateCenterSuccess(t *testing.T) {
	app, router := newAPITestServer(t)

	var gotPayload CenterCreatePayload
	app.storeCreateCenter = func(ctx context.Context, payload CenterCreatePayload) (*ServiceCenter, error) {
		gotPayload = payload
		return &ServiceCenter{
			ID:         101,
			CreatedAt:  "2026-08-30T10:00:00Z",
			CenterName: payload.CenterName,
			City:       payload.City,
			Categories: payload.Categories,
		}, nil
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, buildSubmissionRequest(t, validSubmissionFields(), 2))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var response struct {
		Success   bool   `json:"success"`
		ID        int    `json:"id"`
		CreatedAt string `json:"createdAt"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Success || response.ID != 101 || response.CreatedAt == "" {
		t.Errorf("response = %+v", response)
	}

	if gotPayload.CenterName != "Sharma Auto Works" {
		t.Errorf("payload = %+v", gotPayload)
	}
	if len(gotPayload.Images) != 2 || gotPayload.Images[0].MimeType != "image/jpeg" {
		t.Errorf("images = %+v", gotPayload.Images)
	}
	if len(gotPayload.Categories) != 1 || gotPayload.Categories[0] != "Mechanic" {
		t.Errorf("categories = %v", gotPayload.Categories)
	}
}

func TestCreateCenterValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func([]submissionField) []submissionField
		images   int
		wantCode string
	}{
		{
			name: "Bad phone",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "phone", "12345")
			},
			images:   1,
			wantCode: "invalid_phone",
		},
		{
			name: "Bad email",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "email", "not-an-email")
			},
			images:   1,
			wantCode: "invalid_email",
		},
		{
			name: "Bad zip",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "zipCode", "1234")
			},
			images:   1,
			wantCode: "invalid_zip",
		},
		{
			name: "Missing coordinates",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "latitude", "")
			},
			images:   1,
			wantCode: "invalid_location",
		},
		{
			name: "Latitude out of range",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "latitude", "123.4")
			},
			images:   1,
			wantCode: "invalid_location",
		},
		{
			name: "Unknown category",
			mutate: func(fields []submissionField) []submissionField {
				return replaceField(fields, "categories", "Plumber")
			},
			images:   1,
			wantCode: "invalid_category",
		},
		{
			name:     "No images",
			mutate:   func(fields []submissionField) []submissionField { return fields },
			images:   0,
			wantCode: "invalid_image_count",
		},
		{
			name:     "Too many images",
			mutate:   func(fields []submissionField) []submissionField { return fields },
			images:   maxImageCount + 1,
			wantCode: "invalid_image_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, router := newAPITestServer(t)
			app.storeCreateCenter = func(ctx context.Context, payload CenterCreatePayload) (*ServiceCenter, error) {
				t.Fatal("store must not be reached for invalid payloads")
				return nil, nil
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, buildSubmissionRequest(t, tt.mutate(validSubmissionFields()), tt.images))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantCode) {
				t.Errorf("body %s missing code %s", rec.Body.String(), tt.wantCode)
			}
		})
	}
}

func replaceField(fields []submissionField, name, value string) []submissionField {
	out := make([]submissionField, 0, len(fields))
	for _, field := range fields {
		if field.name == name {
			if value != "" {
				out = append(out, submissionField{name, value})
			}
			continue
		}
		out = append(out, field)
	}
	return out
}

func TestCreateCenterRejectsUnsupportedImageType(t *testing.T) {
	app, router := newAPITestServer(t)
	app.storeCreateCenter = func(ctx context.Context, payload CenterCreatePayload) (*ServiceCenter, error) {
		t.Fatal("store must not be reached")
		return nil, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, field := range validSubmissionFields() {
		_ = writer.WriteField(field.name, field.value)
	}
	header := map[string][]string{
		"Content-Disposition": {`form-data; name="images"; filename="notes.gif"`},
		"Content-Type":        {"image/gif"},
	}
	part, _ := writer.CreatePart(header)
	_, _ = part.Write([]byte("GIF89a"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/service-center", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_image_type") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateCenterRateLimited(t *testing.T) {
	app, router := newAPITestServer(t)
	app.storeCreateCenter = func(ctx context.Context, payload CenterCreatePayload) (*ServiceCenter, error) {
		return &ServiceCenter{ID: 1, CreatedAt: "2026-08-30T10:00:00Z"}, nil
	}

	for i := 0; i < submitRateLimitRequests; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, buildSubmissionRequest(t, validSubmissionFields(), 1))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, buildSubmissionRequest(t, validSubmissionFields(), 1))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rate_limited") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListCentersHandlerPassesFilters(t *testing.T) {
	app, router := newAPITestServer(t)

	var gotFilters map[string]any
	var gotPage, gotPageSize int
	app.storeListCenters = func(ctx context.Context, filters map[string]any, page, pageSize int) (*PaginatedCenters, error) {
		gotFilters, gotPage, gotPageSize = filters, page, pageSize
		return &PaginatedCenters{
			Centers:     []ServiceCenter{{ID: 1, CenterName: "Sharma Auto Works"}},
			TotalCount:  1,
			TotalPages:  1,
			CurrentPage: page,
			PageSize:    pageSize,
		}, nil
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/service-centers?page=2&per_page=10&city=Pune&category=AC", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotPage != 2 || gotPageSize != 10 {
		t.Errorf("page/pageSize = %d/%d", gotPage, gotPageSize)
	}
	if gotFilters["city"] != "Pune" || gotFilters["category"] != "AC" {
		t.Errorf("filters = %v", gotFilters)
	}
	if !strings.Contains(rec.Body.String(), "Sharma Auto Works") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetCenterHandlerNotFound(t *testing.T) {
	app, router := newAPITestServer(t)
	app.storeGetCenterByID = func(ctx context.Context, id int) (*ServiceCenter, error) {
		return nil, nil
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/service-centers/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/service-centers/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d for non-numeric id", rec.Code)
	}
}

func TestCategoriesHandler(t *testing.T) {
	_, router := newAPITestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var response struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	want := []string{"Mechanic", "AC", "Electrician"}
	if len(response.Categories) != len(want) {
		t.Fatalf("categories = %v", response.Categories)
	}
	for i := range want {
		if response.Categories[i] != want[i] {
			t.Errorf("categories[%d] = %q, want %q", i, response.Categories[i], want[i])
		}
	}
}
