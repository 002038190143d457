package main

import "time"

const (
	adminDisplayTimestampLayout = "2006-01-02 15:04"
	adminTemplateLoginPath      = "templates/admin/login.tmpl"
	adminTemplateCentersPath    = "templates/admin/centers.tmpl"
	adminTemplateCenterPath     = "templates/admin/center_detail.tmpl"
	adminTemplateMapPath        = "templates/admin/map.tmpl"
)

type adminBaseViewData struct {
	Title         string
	Session       *AdminSession
	CurrentPath   string
	ActiveNav     string
	ErrorMessage  string
	NoticeMessage string
	IncludeMap    bool
}

type adminLoginViewData struct {
	adminBaseViewData
	Email string
	Next  string
}

type adminCenterRowView struct {
	ID              int
	CenterName      string
	DetailURL       string
	PreviewImageURL string
	City            string
	State           string
	ZipCode         string
	Phone           string
	CategoriesLabel string
	CreatedAt       string
}

type adminCentersFiltersView struct {
	City     string
	Category string
}

type adminCentersViewData struct {
	adminBaseViewData
	Filters     adminCentersFiltersView
	CityOptions []string
	Categories  []string
	Centers     []adminCenterRowView
	Pagination  adminPaginationViewData
}

type adminCenterImageView struct {
	URL      string
	Filename string
}

type adminCenterDetailViewData struct {
	adminBaseViewData
	Center          ServiceCenter
	BackURL         string
	CategoriesLabel string
	CreatedAt       string
	Images          []adminCenterImageView
	MapURL          string
}

type adminMapMarker struct {
	ID         int     `json:"id"`
	CenterName string  `json:"centerName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DetailURL  string  `json:"detailUrl"`
}

type adminMapViewData struct {
	adminBaseViewData
	MarkersJSON string
}

type adminPaginationViewData struct {
	CurrentPage   int
	TotalPages    int
	TotalCount    int
	NextPage      int
	PrevPage      int
	HasNext       bool
	HasPrev       bool
	PageURL       string
	PageSeparator string
}

func formatAdminTimestamp(iso string) string {
	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return parsed.UTC().Format(adminDisplayTimestampLayout)
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
