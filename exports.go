package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

func buildCentersCSV(centers []ServiceCenter) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)

	header := []string{
		"id", "created_at", "center_name", "phone", "email",
		"city", "state", "zip_code", "country",
		"latitude", "longitude", "categories", "image_count",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}
	for _, center := range centers {
		row := []string{
			strconv.Itoa(center.ID),
			center.CreatedAt,
			center.CenterName,
			center.Phone,
			center.Email,
			center.City,
			center.State,
			center.ZipCode,
			center.Country,
			center.Latitude,
			center.Longitude,
			strings.Join(center.Categories, "|"),
			strconv.Itoa(len(center.ImagePaths)),
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func buildCentersPDF(centers []ServiceCenter, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, title)

	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Total centers: %d", len(centers)))
	pdf.Ln(10)

	cityCounts := map[string]int{}
	categoryCounts := map[string]int{}
	for _, center := range centers {
		cityCounts[valueOrDash(center.City)]++
		for _, category := range center.Categories {
			categoryCounts[category]++
		}
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Centers per city")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	cityKeys := make([]string, 0, len(cityCounts))
	for key := range cityCounts {
		cityKeys = append(cityKeys, key)
	}
	sort.Slice(cityKeys, func(i, j int) bool { return cityCounts[cityKeys[i]] > cityCounts[cityKeys[j]] })
	for _, key := range cityKeys {
		pdf.Cell(0, 6, fmt.Sprintf("- %s: %d", key, cityCounts[key]))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Categories")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	categoryKeys := make([]string, 0, len(categoryCounts))
	for key := range categoryCounts {
		categoryKeys = append(categoryKeys, key)
	}
	sort.Slice(categoryKeys, func(i, j int) bool { return categoryCounts[categoryKeys[i]] > categoryCounts[categoryKeys[j]] })
	for _, key := range categoryKeys {
		pdf.Cell(0, 6, fmt.Sprintf("- %s: %d", key, categoryCounts[key]))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Listings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	for _, center := range centers {
		line := fmt.Sprintf("#%d %s - %s, %s %s - %s",
			center.ID, center.CenterName, valueOrDash(center.City),
			valueOrDash(center.State), valueOrDash(center.ZipCode),
			strings.Join(center.Categories, ", "))
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
