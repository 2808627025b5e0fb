// Package service exposes the POI repository and export engine over HTTP.
package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Netonia/POIMapper/internal/export"
	"github.com/Netonia/POIMapper/internal/metrics"
	"github.com/Netonia/POIMapper/internal/middleware"
	"github.com/Netonia/POIMapper/internal/models"
	"github.com/Netonia/POIMapper/internal/repository"
)

// POIService implements the JSON API.
type POIService struct {
	repo     *repository.Repository
	exporter *export.Exporter
	metrics  *metrics.Metrics
}

// NewPOIService creates a POIService. m may be nil to disable metrics.
func NewPOIService(repo *repository.Repository, exporter *export.Exporter, m *metrics.Metrics) *POIService {
	return &POIService{repo: repo, exporter: exporter, metrics: m}
}

// Register mounts the API routes on r.
func (s *POIService) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pois", s.ListPOIs).Methods(http.MethodGet)
	api.HandleFunc("/pois", s.CreatePOI).Methods(http.MethodPost)
	api.HandleFunc("/pois/categories", s.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/pois/bounds", s.GetBounds).Methods(http.MethodGet)
	api.HandleFunc("/pois/{id}", s.GetPOI).Methods(http.MethodGet)
	api.HandleFunc("/pois/{id}", s.UpdatePOI).Methods(http.MethodPut)
	api.HandleFunc("/pois/{id}", s.DeletePOI).Methods(http.MethodDelete)
	api.HandleFunc("/export/template", s.ExportTemplate).Methods(http.MethodPost)
	api.HandleFunc("/export/{format}", s.Export).Methods(http.MethodGet)
}

// POIRequest is the body accepted by create and update.
type POIRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func decodePOIRequest(r *http.Request) (*POIRequest, error) {
	var req POIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, middleware.NewAPIError("INVALID_INPUT", "Request body is not valid JSON", http.StatusBadRequest, err.Error())
	}
	if req.Latitude == nil || req.Longitude == nil {
		return nil, middleware.NewAPIError("INVALID_INPUT", "latitude and longitude are required", http.StatusBadRequest)
	}
	if err := models.CheckCoordinates(*req.Latitude, *req.Longitude); err != nil {
		return nil, middleware.NewAPIError("INVALID_INPUT", err.Error(), http.StatusBadRequest)
	}
	return &req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ListPOIs returns POIs filtered by the optional category and q parameters.
func (s *POIService) ListPOIs(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	text := r.URL.Query().Get("q")

	pois := s.repo.Query(category, text)
	slog.Debug("ListPOIs", "category", category, "q", text, "count", len(pois))
	writeJSON(w, http.StatusOK, pois)
}

// GetPOI returns a single POI.
func (s *POIService) GetPOI(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := s.repo.GetByID(id)
	if !ok {
		middleware.WriteError(w, middleware.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePOI builds a new POI with a fresh ID and creation time.
func (s *POIService) CreatePOI(w http.ResponseWriter, r *http.Request) {
	req, err := decodePOIRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	p := models.NewPOI(req.Name, req.Description, req.Category, *req.Latitude, *req.Longitude)
	if err := s.repo.Add(r.Context(), p); err != nil {
		slog.Error("CreatePOI failed", "error", err)
		middleware.WriteError(w, err)
		return
	}

	slog.Info("POI created", "poi_id", p.ID, "category", p.Category)
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePOI replaces every field except ID and CreatedAt.
func (s *POIService) UpdatePOI(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := decodePOIRequest(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	existing, ok := s.repo.GetByID(id)
	if !ok {
		middleware.WriteError(w, middleware.ErrNotFound)
		return
	}

	category := req.Category
	if category == "" {
		category = models.DefaultCategory
	}
	existing.Name = req.Name
	existing.Description = req.Description
	existing.Category = category
	existing.Latitude = *req.Latitude
	existing.Longitude = *req.Longitude

	updated, err := s.repo.Update(r.Context(), existing)
	if err != nil {
		slog.Error("UpdatePOI failed", "poi_id", id, "error", err)
		middleware.WriteError(w, err)
		return
	}
	if !updated {
		// Deleted between lookup and update.
		middleware.WriteError(w, middleware.ErrNotFound)
		return
	}

	slog.Info("POI updated", "poi_id", id)
	writeJSON(w, http.StatusOK, existing)
}

// DeletePOI removes a POI. It succeeds whether or not the ID exists.
func (s *POIService) DeletePOI(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.repo.Delete(r.Context(), id); err != nil {
		slog.Error("DeletePOI failed", "poi_id", id, "error", err)
		middleware.WriteError(w, err)
		return
	}
	slog.Info("POI deleted", "poi_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns the distinct categories in use.
func (s *POIService) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.repo.Categories()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// BoundsResponse describes the area covering a set of POIs.
type BoundsResponse struct {
	Empty  bool       `json:"empty"`
	South  float64    `json:"south"`
	West   float64    `json:"west"`
	North  float64    `json:"north"`
	East   float64    `json:"east"`
	Center [2]float64 `json:"center"` // [lat, lon]
}

// GetBounds returns the bounding box of the filtered POIs for map fitting.
func (s *POIService) GetBounds(w http.ResponseWriter, r *http.Request) {
	pois := s.repo.Query(r.URL.Query().Get("category"), r.URL.Query().Get("q"))
	b, ok := export.Bounds(pois)
	if !ok {
		writeJSON(w, http.StatusOK, BoundsResponse{Empty: true})
		return
	}
	c := b.Center()
	writeJSON(w, http.StatusOK, BoundsResponse{
		South:  b.Min.Lat(),
		West:   b.Min.Lon(),
		North:  b.Max.Lat(),
		East:   b.Max.Lon(),
		Center: [2]float64{c.Lat(), c.Lon()},
	})
}

func writeDownload(w http.ResponseWriter, status int, format export.Format, body string) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pois.%s"`, format.Extension()))
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func (s *POIService) recordExport(format export.Format, err error) {
	if s.metrics != nil {
		s.metrics.RecordExport(string(format), err)
	}
}

// Export serves the filtered collection as JSON, CSV or GeoJSON.
func (s *POIService) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(mux.Vars(r)["format"])
	if err != nil || format == export.FormatTemplate {
		middleware.WriteError(w, middleware.NewAPIError("INVALID_INPUT", "Unsupported export format", http.StatusBadRequest))
		return
	}

	pois := s.repo.Query(r.URL.Query().Get("category"), r.URL.Query().Get("q"))

	var body string
	switch format {
	case export.FormatJSON:
		body, err = s.exporter.ExportAsJSON(pois)
	case export.FormatCSV:
		body = s.exporter.ExportAsCSV(pois)
	case export.FormatGeoJSON:
		body, err = s.exporter.ExportAsGeoJSON(pois)
	}
	s.recordExport(format, err)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	slog.Info("Export generated", "format", format, "count", len(pois))
	writeDownload(w, http.StatusOK, format, body)
}

// TemplateExportRequest is the body accepted by ExportTemplate.
type TemplateExportRequest struct {
	Template string `json:"template"`
	Category string `json:"category"`
	Query    string `json:"q"`
}

// ExportTemplate renders a user-supplied template once per POI. Template
// failures are returned as text with status 422.
func (s *POIService) ExportTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, middleware.NewAPIError("INVALID_INPUT", "Request body is not valid JSON", http.StatusBadRequest, err.Error()))
		return
	}

	pois := s.repo.Query(req.Category, req.Query)
	out := s.exporter.ExportWithTemplate(pois, req.Template)

	resultErr := export.ResultError(out)
	s.recordExport(export.FormatTemplate, resultErr)
	if resultErr != nil {
		slog.Warn("Template export failed", "error", resultErr)
		writeDownload(w, http.StatusUnprocessableEntity, export.FormatTemplate, out)
		return
	}

	slog.Info("Export generated", "format", export.FormatTemplate, "count", len(pois))
	writeDownload(w, http.StatusOK, export.FormatTemplate, out)
}
