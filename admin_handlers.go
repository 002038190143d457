package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"serviceonboard/form"

	"github.com/gin-gonic/gin"
)

func (a *App) registerAdminRoutes(r *gin.Engine) {
	staticFS, err := adminStaticFileSystem(a.cfg.Env)
	if err != nil {
		panic(err)
	}
	r.StaticFS("/admin/static", staticFS)

	r.GET("/admin/login", a.adminLoginPageHandler)
	r.POST("/admin/login", a.adminLoginSubmitHandler)
	r.POST("/admin/logout", a.adminLogoutSubmitHandler)

	admin := r.Group("/admin")
	admin.Use(a.requireAdminSessionHTML())
	{
		admin.GET("", a.adminCentersPageHandler)
		admin.GET("/", a.adminCentersPageHandler)
		admin.GET("/centers/:id", a.adminCenterDetailPageHandler)
		admin.GET("/map", a.adminMapPageHandler)
		admin.GET("/export", a.adminExportDownloadHandler)
	}
}

func (a *App) adminLoginPageHandler(c *gin.Context) {
	if token, err := c.Cookie(adminCookieName); err == nil {
		if _, verifyErr := a.verifyAdminSessionToken(token); verifyErr == nil {
			c.Redirect(http.StatusSeeOther, "/admin")
			return
		}
	}

	next := sanitizeAdminRedirectTarget(c.Query("next"))
	data := adminLoginViewData{
		adminBaseViewData: a.adminBaseData(c, "Admin login", ""),
		Email:             "",
		Next:              next,
	}
	a.renderAdminTemplate(c, http.StatusOK, adminTemplateLoginPath, data)
}

func (a *App) adminLoginSubmitHandler(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	next := sanitizeAdminRedirectTarget(c.PostForm("next"))

	if err := a.adminAuthenticate(c.Request.Context(), email, password); err != nil {
		base := a.adminBaseData(c, "Admin login", "")
		base.ErrorMessage = "Invalid email or password."
		data := adminLoginViewData{
			adminBaseViewData: base,
			Email:             email,
			Next:              next,
		}
		a.renderAdminTemplate(c, http.StatusUnauthorized, adminTemplateLoginPath, data)
		return
	}

	if err := a.startAdminSession(c, AdminSession{Email: email}); err != nil {
		writeAPIError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

func (a *App) adminLogoutSubmitHandler(c *gin.Context) {
	a.clearAdminSession(c)
	c.Redirect(http.StatusSeeOther, "/admin/login")
}

func parseAdminCentersFilters(c *gin.Context) adminCentersFiltersView {
	return adminCentersFiltersView{
		City:     strings.TrimSpace(c.Query("city")),
		Category: strings.TrimSpace(c.Query("category")),
	}
}

func (f adminCentersFiltersView) toStoreFilters() map[string]any {
	filters := map[string]any{}
	if f.City != "" {
		filters["city"] = f.City
	}
	if f.Category != "" {
		filters["category"] = f.Category
	}
	return filters
}

func (f adminCentersFiltersView) currentURL() string {
	values := url.Values{}
	if f.City != "" {
		values.Set("city", f.City)
	}
	if f.Category != "" {
		values.Set("category", f.Category)
	}
	if encoded := values.Encode(); encoded != "" {
		return "/admin?" + encoded
	}
	return "/admin"
}

func (a *App) adminCentersPageHandler(c *gin.Context) {
	filters := parseAdminCentersFilters(c)
	page := parseAdminPage(c.Query("page"))

	cityOptions, err := a.storeListCenterCities(c.Request.Context())
	if err != nil {
		a.log.Error("list center city options failed", "err", err)
		cityOptions = []string{}
	}

	result, err := a.storeListCenters(c.Request.Context(), filters.toStoreFilters(), page, adminDefaultPerPage)
	if err != nil {
		base := a.adminBaseData(c, "Service centers", "centers")
		base.ErrorMessage = "Loading service centers failed."
		a.renderAdminTemplate(c, http.StatusInternalServerError, adminTemplateCentersPath, adminCentersViewData{
			adminBaseViewData: base,
			Filters:           filters,
			CityOptions:       cityOptions,
			Categories:        form.CategoryOptions,
			Centers:           []adminCenterRowView{},
		})
		return
	}

	currentURL := filters.currentURL()
	rows := make([]adminCenterRowView, 0, len(result.Centers))
	for _, center := range result.Centers {
		preview := ""
		if len(center.ImagePaths) > 0 {
			preview = center.ImagePaths[0]
		}
		rows = append(rows, adminCenterRowView{
			ID:              center.ID,
			CenterName:      center.CenterName,
			DetailURL:       fmt.Sprintf("/admin/centers/%d?next=%s", center.ID, url.QueryEscape(currentURL)),
			PreviewImageURL: preview,
			City:            valueOrDash(center.City),
			State:           valueOrDash(center.State),
			ZipCode:         valueOrDash(center.ZipCode),
			Phone:           center.Phone,
			CategoriesLabel: strings.Join(center.Categories, ", "),
			CreatedAt:       formatAdminTimestamp(center.CreatedAt),
		})
	}

	data := adminCentersViewData{
		adminBaseViewData: a.adminBaseData(c, "Service centers", "centers"),
		Filters:           filters,
		CityOptions:       cityOptions,
		Categories:        form.CategoryOptions,
		Centers:           rows,
		Pagination: buildAdminPaginationView(
			result.TotalCount,
			result.CurrentPage,
			result.PageSize,
			currentURL,
		),
	}
	a.renderAdminTemplate(c, http.StatusOK, adminTemplateCentersPath, data)
}

func (a *App) adminCenterDetailPageHandler(c *gin.Context) {
	centerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || centerID <= 0 {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}

	center, err := a.storeGetCenterByID(c.Request.Context(), centerID)
	if err != nil || center == nil {
		base := a.adminBaseData(c, "Service center", "centers")
		base.ErrorMessage = "Loading service center failed."
		a.renderAdminTemplate(c, http.StatusNotFound, adminTemplateCenterPath, adminCenterDetailViewData{
			adminBaseViewData: base,
			BackURL:           "/admin",
		})
		return
	}

	backURL := sanitizeAdminRedirectTarget(c.Query("next"))
	images := make([]adminCenterImageView, 0, len(center.ImagePaths))
	for i, path := range center.ImagePaths {
		images = append(images, adminCenterImageView{
			URL:      path,
			Filename: fmt.Sprintf("image-%d", i+1),
		})
	}

	data := adminCenterDetailViewData{
		adminBaseViewData: a.adminBaseData(c, center.CenterName, "centers"),
		Center:            *center,
		BackURL:           backURL,
		CategoriesLabel:   strings.Join(center.Categories, ", "),
		CreatedAt:         formatAdminTimestamp(center.CreatedAt),
		Images:            images,
		MapURL:            fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=15/%s/%s", center.Latitude, center.Longitude, center.Latitude, center.Longitude),
	}
	a.renderAdminTemplate(c, http.StatusOK, adminTemplateCenterPath, data)
}

func (a *App) adminMapPageHandler(c *gin.Context) {
	centers, err := a.storeListCenterRows(c.Request.Context(), map[string]any{})
	if err != nil {
		base := a.adminBaseData(c, "Map", "map")
		base.ErrorMessage = "Loading service centers failed."
		a.renderAdminTemplate(c, http.StatusInternalServerError, adminTemplateMapPath, adminMapViewData{
			adminBaseViewData: base,
			MarkersJSON:       "[]",
		})
		return
	}

	markers := make([]adminMapMarker, 0, len(centers))
	for _, center := range centers {
		lat, latErr := strconv.ParseFloat(center.Latitude, 64)
		lng, lngErr := strconv.ParseFloat(center.Longitude, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		markers = append(markers, adminMapMarker{
			ID:         center.ID,
			CenterName: center.CenterName,
			City:       center.City,
			Lat:        lat,
			Lng:        lng,
			DetailURL:  fmt.Sprintf("/admin/centers/%d", center.ID),
		})
	}
	encoded, err := json.Marshal(markers)
	if err != nil {
		encoded = []byte("[]")
	}

	base := a.adminBaseData(c, "Map", "map")
	base.IncludeMap = true
	data := adminMapViewData{
		adminBaseViewData: base,
		MarkersJSON:       string(encoded),
	}
	a.renderAdminTemplate(c, http.StatusOK, adminTemplateMapPath, data)
}

func (a *App) adminExportDownloadHandler(c *gin.Context) {
	format := strings.TrimSpace(c.Query("format"))
	if format != "pdf" {
		format = "csv"
	}

	centers, err := a.storeListCenterRows(c.Request.Context(), map[string]any{})
	if err != nil {
		writeAPIError(c, err)
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch format {
	case "pdf":
		payload, err := buildCentersPDF(centers, "Service centers")
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=service-centers-%s.pdf", stamp))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		payload, err := buildCentersCSV(centers)
		if err != nil {
			writeAPIError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=service-centers-%s.csv", stamp))
		c.Data(http.StatusOK, "text/csv", []byte(payload))
	}
}

func (a *App) renderAdminTemplate(c *gin.Context, status int, contentTemplatePath string, data any) {
	templates, err := a.adminTemplates.templatesForRender(contentTemplatePath)
	if err != nil {
		a.log.Error("admin template parse failed", "template", contentTemplatePath, "err", err)
		c.String(http.StatusInternalServerError, "template error")
		return
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(c.Writer, "layout.tmpl", data); err != nil {
		a.log.Error("admin template render failed", "template", contentTemplatePath, "err", err)
	}
}

func (a *App) adminBaseData(c *gin.Context, title, activeNav string) adminBaseViewData {
	data := adminBaseViewData{
		Title:       title,
		CurrentPath: c.Request.URL.Path,
		ActiveNav:   activeNav,
	}
	if session, ok := getAdminSession(c); ok {
		data.Session = &session
	}
	return data
}
