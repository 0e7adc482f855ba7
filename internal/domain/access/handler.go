package access

import (
	"net/http"
	"strings"

	"medical-records-sharing/internal/domain/content"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/middleware"
	"medical-records-sharing/internal/platform/exceptions"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

func RegisterRoutes(r chi.Router, res *Resolver) {
	r.Route("/doctor/patients/{patientID}", func(pr chi.Router) {
		pr.Get("/summary", summaryHandler(res))
		pr.Get("/records", recordsManyHandler(res))
		pr.Get("/records/{category}", recordsHandler(res))
	})
}

type summaryResponse struct {
	Category     records.Category `json:"category"`
	Count        int              `json:"count"`
	HasAllAccess bool             `json:"has_all_access"`
}

type sectionResponse struct {
	Category records.Category `json:"category"`
	Records  any              `json:"records"`
	Error    string           `json:"error,omitempty"`
}

// summaryHandler godoc
// @Summary Resumen de acceso por categoría
// @Description Para cada categoría con al menos un grant activo del paciente hacia el médico autenticado: cantidad de registros visibles y si el acceso es total (wildcard).
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param Authorization header string false "Bearer token en producción"
// @Param patientID path string true "ID del paciente"
// @Success 200 {array} summaryResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "profile not found"
// @Router /doctor/patients/{patientID}/summary [get]
func summaryHandler(res *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := res.Summarize(r.Context(), claims, chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]summaryResponse, 0, len(items))
		for _, s := range items {
			out = append(out, summaryResponse{Category: s.Category, Count: s.Count, HasAllAccess: s.HasAllAccess})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// recordsHandler godoc
// @Summary Registros visibles de una categoría
// @Description Devuelve los registros que el médico puede ver. Sin grant la lista es vacía (no es error). Los documentos llevan `signed_url` (null si no se pudo firmar).
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param patientID path string true "ID del paciente"
// @Param category path string true "Categoría" Enums(document,prescription,medication,allergy,vaccine,antecedent,report)
// @Success 200 {array} records.Record
// @Failure 400 {string} string "unknown category"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /doctor/patients/{patientID}/records/{category} [get]
func recordsHandler(res *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cat, ok := records.ParseCategory(chi.URLParam(r, "category"))
		if !ok {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}
		patientID := chi.URLParam(r, "patientID")

		if cat == records.CategoryDocument {
			docs, err := res.ResolveDocuments(r.Context(), claims, patientID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, nonNilDocs(docs))
			return
		}

		recs, err := res.Resolve(r.Context(), claims, patientID, cat)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNilRecords(recs))
	}
}

// recordsManyHandler godoc
// @Summary Registros visibles de varias categorías
// @Description Resuelve en paralelo. Cada sección trae su propio `error` si falló.
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param patientID path string true "ID del paciente"
// @Param categories query string false "CSV de categorías; vacío => todas"
// @Success 200 {array} sectionResponse
// @Failure 400 {string} string "unknown category"
// @Failure 401 {string} string "unauthorized"
// @Router /doctor/patients/{patientID}/records [get]
func recordsManyHandler(res *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cats, ok := parseCategories(r.URL.Query().Get("categories"))
		if !ok {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}

		sections, err := res.ResolveMany(r.Context(), claims, chi.URLParam(r, "patientID"), cats)
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]sectionResponse, 0, len(sections))
		for _, s := range sections {
			sr := sectionResponse{Category: s.Category}
			switch {
			case s.Err != nil:
				middleware.SetError(r.Context(), s.Err)
				sr.Records = []records.Record{}
				sr.Error = exceptions.ClientMessage(s.Err)
			case s.Category == records.CategoryDocument:
				sr.Records = nonNilDocs(s.Documents)
			default:
				sr.Records = nonNilRecords(s.Records)
			}
			out = append(out, sr)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseCategories(raw string) ([]records.Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	out := make([]records.Category, 0)
	for _, p := range strings.Split(raw, ",") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		c, ok := records.ParseCategory(p)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

func nonNilRecords(in []records.Record) []records.Record {
	if in == nil {
		return []records.Record{}
	}
	return in
}

func nonNilDocs(in []content.SignedDocument) []content.SignedDocument {
	if in == nil {
		return []content.SignedDocument{}
	}
	return in
}

// writeError responde el mensaje público; el error completo va al log del request.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.SetError(r.Context(), err)
	http.Error(w, exceptions.ClientMessage(err), exceptions.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
