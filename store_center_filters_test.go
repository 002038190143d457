package main

import (
	"strings"
	"testing"
)

func TestBuildCenterFilters(t *testing.T) {
	tests := []struct {
		name      string
		filters   map[string]any
		wantParts []string
		wantArgs  []any
	}{
		{
			name:      "No filters",
			filters:   map[string]any{},
			wantParts: []string{},
			wantArgs:  []any{},
		},
		{
			name: "Common filters",
			filters: map[string]any{
				"city":     "Pune",
				"category": "Mechanic",
				"from":     "2026-01-01T00:00:00Z",
				"to":       "2026-01-31T00:00:00Z",
			},
			wantParts: []string{
				"LOWER(service_centers.city) = LOWER($1)",
				"service_centers.categories::jsonb ? $2",
				"service_centers.created_at >= $3",
				"service_centers.created_at <= $4",
			},
			wantArgs: []any{"Pune", "Mechanic", "2026-01-01T00:00:00Z", "2026-01-31T00:00:00Z"},
		},
		{
			name: "Missing address filter",
			filters: map[string]any{
				"missing_address": true,
			},
			wantParts: []string{
				"(service_centers.city = '' OR service_centers.state = '' OR service_centers.zip_code = '')",
			},
			wantArgs: []any{},
		},
		{
			name: "Empty values ignored",
			filters: map[string]any{
				"city":            "",
				"category":        "",
				"missing_address": false,
			},
			wantParts: []string{},
			wantArgs:  []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			whereClause, args := buildCenterFilters(tt.filters)
			for _, part := range tt.wantParts {
				if !strings.Contains(whereClause, part) {
					t.Fatalf("where clause missing %q in %q", part, whereClause)
				}
			}
			if len(tt.wantParts) == 0 && whereClause != "" {
				t.Fatalf("expected empty where clause, got %q", whereClause)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args length mismatch: got %d want %d", len(args), len(tt.wantArgs))
			}
			for i, want := range tt.wantArgs {
				if args[i] != want {
					t.Fatalf("arg %d = %v, want %v", i, args[i], want)
				}
			}
		})
	}
}
