package main

import (
	"encoding/csv"
	"strings"
	"testing"
)

func exportFixtureCenters() []ServiceCenter {
	return []ServiceCenter{
		{
			ID:         1,
			CreatedAt:  "2026-08-30T10:00:00Z",
			CenterName: "Sharma Auto Works",
			Phone:      "9876543210",
			Email:      "owner@sharma.in",
			City:       "Pune",
			State:      "Maharashtra",
			ZipCode:    "411001",
			Country:    "India",
			Latitude:   "18.520430",
			Longitude:  "73.856743",
			Categories: []string{"Mechanic", "AC"},
			ImagePaths: []string{"a", "b"},
		},
		{
			ID:         2,
			CreatedAt:  "2026-08-29T09:00:00Z",
			CenterName: "Cool Breeze AC Care",
			Phone:      "9123456780",
			Email:      "hello@coolbreeze.in",
			City:       "Pune",
			State:      "Maharashtra",
			ZipCode:    "411002",
			Country:    "India",
			Latitude:   "18.530000",
			Longitude:  "73.860000",
			Categories: []string{"AC"},
		},
	}
}

func TestBuildCentersCSV(t *testing.T) {
	payload, err := buildCentersCSV(exportFixtureCenters())
	if err != nil {
		t.Fatalf("buildCentersCSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[0][0] != "id" || records[0][11] != "categories" {
		t.Errorf("header = %v", records[0])
	}

	first := records[1]
	if first[2] != "Sharma Auto Works" {
		t.Errorf("center_name = %q", first[2])
	}
	if first[11] != "Mechanic|AC" {
		t.Errorf("categories = %q, want pipe-joined", first[11])
	}
	if first[12] != "2" {
		t.Errorf("image_count = %q", first[12])
	}
}

func TestBuildCentersCSVEmpty(t *testing.T) {
	payload, err := buildCentersCSV(nil)
	if err != nil {
		t.Fatalf("buildCentersCSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(payload)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("rows = %d, want header only", len(records))
	}
}

func TestBuildCentersPDF(t *testing.T) {
	payload, err := buildCentersPDF(exportFixtureCenters(), "Service centers")
	if err != nil {
		t.Fatalf("buildCentersPDF: %v", err)
	}
	if len(payload) == 0 || !strings.HasPrefix(string(payload[:4]), "%PDF") {
		t.Error("expected PDF payload")
	}
}
