package main

import "fmt"

func buildCenterFilters(filters map[string]any) (string, []any) {
	whereClause := ""
	args := make([]any, 0)
	argIndex := 1

	if city, ok := filters["city"].(string); ok && city != "" {
		whereClause += fmt.Sprintf(" AND LOWER(service_centers.city) = LOWER($%d)", argIndex)
		args = append(args, city)
		argIndex++
	}
	if category, ok := filters["category"].(string); ok && category != "" {
		whereClause += fmt.Sprintf(" AND service_centers.categories::jsonb ? $%d", argIndex)
		args = append(args, category)
		argIndex++
	}
	if from, ok := filters["from"].(string); ok && from != "" {
		whereClause += fmt.Sprintf(" AND service_centers.created_at >= $%d", argIndex)
		args = append(args, from)
		argIndex++
	}
	if to, ok := filters["to"].(string); ok && to != "" {
		whereClause += fmt.Sprintf(" AND service_centers.created_at <= $%d", argIndex)
		args = append(args, to)
		argIndex++
	}
	if missing, ok := filters["missing_address"].(bool); ok && missing {
		whereClause += " AND (service_centers.city = '' OR service_centers.state = '' OR service_centers.zip_code = '')"
	}

	return whereClause, args
}
