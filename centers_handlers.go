package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"serviceonboard/form"
	"serviceonboard/mailer"

	"github.com/gin-gonic/gin"
)

const centerImageCacheMaxAgeSeconds = 3600

// ServiceCenter is the persisted, server-assigned form of a submitted
// listing. Images are exposed as resolved URIs, never as raw bytes.
type ServiceCenter struct {
	ID         int      `json:"id"`
	CreatedAt  string   `json:"createdAt"`
	CenterName string   `json:"centerName"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	ZipCode    string   `json:"zipCode"`
	Country    string   `json:"country"`
	Latitude   string   `json:"latitude"`
	Longitude  string   `json:"longitude"`
	Categories []string `json:"categories"`
	ImagePaths []string `json:"imagePaths"`
}

type CenterImage struct {
	ID          int
	CenterID    int
	StoragePath string
	MimeType    string
	Filename    string
	SizeBytes   int64
	CreatedAt   string
}

type ImageUpload struct {
	Name     string
	MimeType string
	Bytes    []byte
}

type CenterCreatePayload struct {
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
	Images     []ImageUpload
	IP         string
}

type PaginatedCenters struct {
	Centers     []ServiceCenter
	TotalCount  int
	TotalPages  int
	CurrentPage int
	PageSize    int
}

func parseCenterCreatePayload(c *gin.Context) (CenterCreatePayload, error) {
	payload := CenterCreatePayload{}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return payload, &apiError{Status: http.StatusBadRequest, Code: "invalid_multipart", Message: "Invalid multipart form"}
	}

	payload.CenterName = strings.TrimSpace(c.PostForm("centerName"))
	payload.Phone = strings.TrimSpace(c.PostForm("phone"))
	payload.Email = strings.TrimSpace(c.PostForm("email"))
	payload.City = strings.TrimSpace(c.PostForm("city"))
	payload.State = strings.TrimSpace(c.PostForm("state"))
	payload.ZipCode = strings.TrimSpace(c.PostForm("zipCode"))
	payload.Country = strings.TrimSpace(c.PostForm("country"))
	payload.Latitude = strings.TrimSpace(c.PostForm("latitude"))
	payload.Longitude = strings.TrimSpace(c.PostForm("longitude"))
	payload.Categories = c.PostFormArray("categories")

	files := c.Request.MultipartForm.File["images"]
	images := make([]ImageUpload, 0, len(files))
	for idx, fileHeader := range files {
		opened, err := fileHeader.Open()
		if err != nil {
			return payload, err
		}
		data, readErr := io.ReadAll(io.LimitReader(opened, maxUploadBytes+1))
		_ = opened.Close()
		if readErr != nil {
			return payload, readErr
		}
		if len(data) > maxUploadBytes {
			return payload, &apiError{Status: http.StatusBadRequest, Code: "image_too_large", Message: "Image exceeds upload size limit"}
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
		if _, ok := allowedImageTypes[mimeType]; !ok {
			return payload, &apiError{Status: http.StatusBadRequest, Code: "invalid_image_type", Message: "Image mime type is not supported"}
		}

		name := strings.TrimSpace(fileHeader.Filename)
		if name == "" {
			name = fmt.Sprintf("image-%d.jpg", idx+1)
		}
		images = append(images, ImageUpload{Name: name, MimeType: mimeType, Bytes: data})
	}
	payload.Images = images

	return payload, nil
}

func validateCenterCreatePayload(payload CenterCreatePayload) error {
	if strings.TrimSpace(payload.CenterName) == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_center_name", Message: "Center name is required"}
	}
	if !form.ValidPhone(payload.Phone) {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_phone", Message: "Phone must be a 10-digit mobile number"}
	}
	if !form.ValidEmail(payload.Email) {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_email", Message: "Email address is invalid"}
	}
	if strings.TrimSpace(payload.City) == "" || strings.TrimSpace(payload.State) == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_address", Message: "City and state are required"}
	}
	if !form.ValidZipCode(payload.ZipCode) {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_zip", Message: "Zip code must be 6 digits"}
	}
	if payload.Latitude == "" || payload.Longitude == "" {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "Latitude and longitude are required"}
	}
	lat, err := strconv.ParseFloat(payload.Latitude, 64)
	if err != nil || lat < -90 || lat > 90 {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "Latitude is invalid"}
	}
	lng, err := strconv.ParseFloat(payload.Longitude, 64)
	if err != nil || lng < -180 || lng > 180 {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "Longitude is invalid"}
	}
	if len(payload.Categories) == 0 {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_categories", Message: "Select at least one category"}
	}
	for _, category := range payload.Categories {
		if !containsString(form.CategoryOptions, category) {
			return &apiError{Status: http.StatusBadRequest, Code: "invalid_category", Message: fmt.Sprintf("Unknown category: %s", category)}
		}
	}
	if len(payload.Images) < minImageCount || len(payload.Images) > maxImageCount {
		return &apiError{Status: http.StatusBadRequest, Code: "invalid_image_count", Message: fmt.Sprintf("Images must contain %d to %d files", minImageCount, maxImageCount)}
	}
	return nil
}

func (a *App) createCenterHandler(c *gin.Context) {
	payload, err := parseCenterCreatePayload(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	payload.IP = c.ClientIP()

	if err := validateCenterCreatePayload(payload); err != nil {
		writeAPIError(c, err)
		return
	}

	now := time.Now().UTC()
	if !a.checkRateLimit("submit:"+payload.IP, submitRateLimitRequests, submitRateLimitWindow, now) {
		writeAPIError(c, &apiError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "Too many submissions from this IP. Please retry later."})
		return
	}

	created, err := a.storeCreateCenter(c.Request.Context(), payload)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	if a.cfg.NotifyEmailTo != "" {
		go func(center ServiceCenter) {
			if err := a.sendSubmissionNotice(center); err != nil {
				a.log.Error("submission notice failed", "center_id", center.ID, "err", err)
			}
		}(*created)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"id":        created.ID,
		"createdAt": created.CreatedAt,
		"message":   "Service center registered",
	})
}

func (a *App) listCentersHandler(c *gin.Context) {
	page := parsePageQuery(c.Query("page"))
	pageSize := parsePageSizeQuery(c.Query("per_page"))

	filters := map[string]any{}
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		filters["city"] = city
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filters["category"] = category
	}

	result, err := a.storeListCenters(c.Request.Context(), filters, page, pageSize)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"centers":     result.Centers,
		"totalCount":  result.TotalCount,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
		"pageSize":    result.PageSize,
	})
}

func (a *App) getCenterHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "Invalid center ID"})
		return
	}

	center, err := a.storeGetCenterByID(c.Request.Context(), id)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if center == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Service center not found"})
		return
	}
	c.JSON(http.StatusOK, center)
}

func (a *App) centerImageHandler(c *gin.Context) {
	centerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || centerID <= 0 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "Invalid center ID"})
		return
	}
	imageID, err := strconv.Atoi(c.Param("imageID"))
	if err != nil || imageID <= 0 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "Invalid image ID"})
		return
	}

	image, err := a.storeGetCenterImage(c.Request.Context(), centerID, imageID)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if image == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Image not found"})
		return
	}

	fullPath := filepath.Join(a.cfg.DataRoot, image.StoragePath)
	if _, err := os.Stat(fullPath); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Image file missing"})
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", centerImageCacheMaxAgeSeconds))
	c.Header("Content-Type", image.MimeType)
	c.File(fullPath)
}

func (a *App) categoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": form.CategoryOptions})
}

func (a *App) sendSubmissionNotice(center ServiceCenter) error {
	subject := fmt.Sprintf("New service center: %s (%s)", center.CenterName, center.City)
	detailURL := buildPublicURL(a.cfg.PublicBaseURL, fmt.Sprintf("/admin/centers/%d", center.ID))
	html := fmt.Sprintf(
		"<p>A new service center was submitted.</p><ul><li>Name: %s</li><li>City: %s, %s %s</li><li>Phone: %s</li><li>Categories: %s</li></ul><p><a href=%q>Review in dashboard</a></p>",
		center.CenterName, center.City, center.State, center.ZipCode,
		center.Phone, strings.Join(center.Categories, ", "), detailURL,
	)
	_, err := a.mailer.Send(mailer.Message{
		To:      []string{a.cfg.NotifyEmailTo},
		Subject: subject,
		HTML:    html,
	})
	return err
}

func parsePageQuery(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parsePageSizeQuery(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size < 1 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

func containsString(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

func buildPublicURL(baseURL, path string) string {
	if strings.HasPrefix(path, "/") {
		return strings.TrimRight(baseURL, "/") + path
	}
	return strings.TrimRight(baseURL, "/") + "/" + path
}

// geocodeCenter fills missing city/state/zip on a stored row from its
// coordinates. Used by the backfill subcommand only; live submissions
// always arrive with an address.
func (a *App) geocodeCenter(ctx context.Context, center ServiceCenter) error {
	lat, err := strconv.ParseFloat(center.Latitude, 64)
	if err != nil {
		return fmt.Errorf("center %d has bad latitude %q", center.ID, center.Latitude)
	}
	lng, err := strconv.ParseFloat(center.Longitude, 64)
	if err != nil {
		return fmt.Errorf("center %d has bad longitude %q", center.ID, center.Longitude)
	}

	address, err := a.resolver.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE service_centers
		SET city = COALESCE(NULLIF(city, ''), $1),
		    state = COALESCE(NULLIF(state, ''), $2),
		    zip_code = COALESCE(NULLIF(zip_code, ''), $3)
		WHERE id = $4
	`, address.City, address.State, address.ZipCode, center.ID)
	return err
}

func (a *App) backfillAddresses(ctx context.Context) (int, error) {
	centers, err := a.storeListCenterRows(ctx, map[string]any{"missing_address": true})
	if err != nil {
		return 0, err
	}

	backfilled := 0
	for _, center := range centers {
		geocodeCtx, cancel := context.WithTimeout(ctx, geocodeBackfillTimeout)
		err := a.geocodeCenter(geocodeCtx, center)
		cancel()
		if err != nil {
			a.log.Error("geocoding failed", "id", center.ID, "err", err)
			continue
		}
		backfilled++
	}
	return backfilled, nil
}
