package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultPageSize             = 20
	maxPageSize                 = 100
	imageStorageNameRandomBytes = 16
)

func (a *App) createCenter(ctx context.Context, payload CenterCreatePayload) (*ServiceCenter, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var centerID int
	var createdAt time.Time
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO service_centers (
			center_name, phone, email, city, state, zip_code, country,
			latitude, longitude, categories, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`, payload.CenterName, payload.Phone, payload.Email, payload.City, payload.State,
		payload.ZipCode, payload.Country, payload.Latitude, payload.Longitude,
		categoriesToJSON(payload.Categories)).Scan(&centerID, &createdAt); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := a.saveCenterImagesTx(ctx, tx, centerID, payload.Images); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return a.getCenterByID(ctx, centerID)
}

func (a *App) saveCenterImagesTx(ctx context.Context, tx *sql.Tx, centerID int, images []ImageUpload) error {
	centerDir := filepath.Join(a.cfg.DataRoot, "uploads", "centers", strconv.Itoa(centerID))
	if err := os.MkdirAll(centerDir, 0o755); err != nil {
		return err
	}
	for _, image := range images {
		ext := extensionFromMime(image.MimeType, image.Name)
		var imageID int
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO center_images (center_id, storage_path, mime_type, filename, size_bytes)
			VALUES ($1, '', $2, $3, $4)
			RETURNING id
		`, centerID, image.MimeType, image.Name, len(image.Bytes)).Scan(&imageID); err != nil {
			return err
		}

		fileName, err := generateImageStorageFileName(ext)
		if err != nil {
			return err
		}
		fullPath := filepath.Join(centerDir, fileName)
		relPath, _ := filepath.Rel(a.cfg.DataRoot, fullPath)

		if err := os.WriteFile(fullPath, image.Bytes, 0o644); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE center_images SET storage_path = $1 WHERE id = $2
		`, relPath, imageID); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) getCenterByID(ctx context.Context, centerID int) (*ServiceCenter, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, created_at, center_name, phone, email, city, state, zip_code,
		       country, latitude, longitude, categories
		FROM service_centers
		WHERE id = $1
	`, centerID)

	center, err := scanCenter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := a.attachImagePaths(ctx, &center); err != nil {
		return nil, err
	}
	return &center, nil
}

func (a *App) listCentersPaginated(ctx context.Context, filters map[string]any, page, pageSize int) (*PaginatedCenters, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	whereClause, args := buildCenterFilters(filters)
	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT id, created_at, center_name, phone, email, city, state, zip_code,
		       country, latitude, longitude, categories,
		       COUNT(*) OVER() AS total_count
		FROM service_centers
		WHERE 1=1%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	centers := []ServiceCenter{}
	totalCount := 0
	for rows.Next() {
		var center ServiceCenter
		var createdAt time.Time
		var categoriesRaw []byte
		if err := rows.Scan(
			&center.ID, &createdAt, &center.CenterName, &center.Phone, &center.Email,
			&center.City, &center.State, &center.ZipCode, &center.Country,
			&center.Latitude, &center.Longitude, &categoriesRaw, &totalCount,
		); err != nil {
			return nil, err
		}
		center.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		center.Categories = parseCategoriesJSON(categoriesRaw)
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range centers {
		if err := a.attachImagePaths(ctx, &centers[i]); err != nil {
			return nil, err
		}
	}

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}

	return &PaginatedCenters{
		Centers:     centers,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}, nil
}

func (a *App) listCenters(ctx context.Context, filters map[string]any) ([]ServiceCenter, error) {
	whereClause, args := buildCenterFilters(filters)
	query := fmt.Sprintf(`
		SELECT id, created_at, center_name, phone, email, city, state, zip_code,
		       country, latitude, longitude, categories
		FROM service_centers
		WHERE 1=1%s
		ORDER BY created_at DESC
	`, whereClause)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	centers := []ServiceCenter{}
	for rows.Next() {
		center, err := scanCenter(rows)
		if err != nil {
			return nil, err
		}
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range centers {
		if err := a.attachImagePaths(ctx, &centers[i]); err != nil {
			return nil, err
		}
	}
	return centers, nil
}

func (a *App) listCenterCities(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT city FROM service_centers
		WHERE city <> ''
		ORDER BY city ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cities := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func (a *App) listCenterImages(ctx context.Context, centerID int) ([]CenterImage, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, center_id, storage_path, mime_type, filename, size_bytes, created_at
		FROM center_images
		WHERE center_id = $1
		ORDER BY id ASC
	`, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]CenterImage, 0)
	for rows.Next() {
		var image CenterImage
		var createdAt time.Time
		if err := rows.Scan(
			&image.ID, &image.CenterID, &image.StoragePath, &image.MimeType,
			&image.Filename, &image.SizeBytes, &createdAt,
		); err != nil {
			return nil, err
		}
		image.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		images = append(images, image)
	}
	return images, rows.Err()
}

func (a *App) getCenterImageByID(ctx context.Context, centerID, imageID int) (*CenterImage, error) {
	var image CenterImage
	var createdAt time.Time
	err := a.db.QueryRowContext(ctx, `
		SELECT id, center_id, storage_path, mime_type, filename, size_bytes, created_at
		FROM center_images
		WHERE id = $1 AND center_id = $2
	`, imageID, centerID).Scan(
		&image.ID, &image.CenterID, &image.StoragePath, &image.MimeType,
		&image.Filename, &image.SizeBytes, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	image.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return &image, nil
}

func (a *App) attachImagePaths(ctx context.Context, center *ServiceCenter) error {
	images, err := a.listCenterImages(ctx, center.ID)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(images))
	for _, image := range images {
		paths = append(paths, a.buildCenterImageURL(center.ID, image.ID))
	}
	center.ImagePaths = paths
	return nil
}

func (a *App) buildCenterImageURL(centerID, imageID int) string {
	return buildPublicURL(a.cfg.PublicBaseURL, fmt.Sprintf("/api/service-centers/%d/images/%d", centerID, imageID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCenter(scanner rowScanner) (ServiceCenter, error) {
	var center ServiceCenter
	var createdAt time.Time
	var categoriesRaw []byte
	if err := scanner.Scan(
		&center.ID, &createdAt, &center.CenterName, &center.Phone, &center.Email,
		&center.City, &center.State, &center.ZipCode, &center.Country,
		&center.Latitude, &center.Longitude, &categoriesRaw,
	); err != nil {
		return ServiceCenter{}, err
	}
	center.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	center.Categories = parseCategoriesJSON(categoriesRaw)
	return center, nil
}

func categoriesToJSON(categories []string) []byte {
	encoded, _ := json.Marshal(categories)
	return encoded
}

func parseCategoriesJSON(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var categories []string
	if err := json.Unmarshal(raw, &categories); err != nil {
		return []string{}
	}
	return categories
}

func extensionFromMime(mimeType string, fallbackName string) string {
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	if ext := filepath.Ext(fallbackName); ext != "" {
		return ext
	}
	return ".bin"
}

func generateImageStorageFileName(ext string) (string, error) {
	buf := make([]byte, imageStorageNameRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + ext, nil
}
