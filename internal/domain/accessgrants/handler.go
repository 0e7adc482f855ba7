package accessgrants

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/middleware"
	"medical-records-sharing/internal/platform/exceptions"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var validate = validator.New()

func RegisterRoutes(r chi.Router, svc *Service) {
	// Paciente: administra lo que comparte
	r.Route("/me/shares", func(sr chi.Router) {
		sr.Post("/", shareHandler(svc))
		sr.Get("/", listSharesHandler(svc))
		sr.Delete("/{grantID}", revokeHandler(svc))
		sr.Delete("/doctors/{doctorID}/categories/{category}", revokeCategoryHandler(svc))
		sr.Get("/doctors/{doctorID}/access", hasAccessHandler(svc))
	})

	// Médico: pacientes que le compartieron algo
	r.Get("/doctor/patients", sharedPatientsHandler(svc))
}

// shareRequest es el cuerpo para compartir una categoría (o un registro) con un médico.
type shareRequest struct {
	DoctorID   string     `json:"doctor_id" validate:"required,max=128"`
	Category   string     `json:"category" validate:"required" enums:"document,prescription,medication,allergy,vaccine,antecedent,report"`
	ResourceID *string    `json:"resource_id,omitempty" validate:"omitempty,min=1,max=128"` // ausente => toda la categoría
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`                                     // RFC3339
	Notes      string     `json:"notes,omitempty" validate:"max=500"`
}

type grantResponse struct {
	ID         string           `json:"id"`
	PatientID  string           `json:"patient_id"`
	DoctorID   string           `json:"doctor_id"`
	Category   records.Category `json:"category"`
	Scope      Scope            `json:"scope"`
	ResourceID *string          `json:"resource_id"`
	GrantedAt  time.Time        `json:"granted_at"`
	ExpiresAt  *time.Time       `json:"expires_at"`
	Notes      string           `json:"notes,omitempty"`
	Expired    bool             `json:"expired"`
}

type sharedPatientResponse struct {
	PatientID  string             `json:"patient_id"`
	Categories []records.Category `json:"categories"`
}

// shareHandler godoc
// @Summary Compartir con un médico
// @Description Crea un grant del paciente autenticado. Sin `resource_id` comparte toda la categoría (wildcard). Si ya existe un grant activo idéntico lo devuelve con 200.
// @Tags shares
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body shareRequest true "Grant a crear"
// @Success 201 {object} grantResponse
// @Success 200 {object} grantResponse
// @Failure 400 {string} string "invalid json / validación"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "profile not found"
// @Router /me/shares [post]
func shareHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req shareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cat, ok := records.ParseCategory(req.Category)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown category %q", req.Category), http.StatusBadRequest)
			return
		}
		if req.ResourceID != nil && strings.TrimSpace(*req.ResourceID) == "" {
			http.Error(w, "resource_id must not be blank", http.StatusBadRequest)
			return
		}

		g, created, err := svc.Share(r.Context(), claims, ShareInput{
			DoctorID:   req.DoctorID,
			Category:   cat,
			ResourceID: req.ResourceID,
			ExpiresAt:  req.ExpiresAt,
			Notes:      req.Notes,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toGrantResponse(g, false))
	}
}

// listSharesHandler godoc
// @Summary Listar mis grants
// @Description Grants del paciente autenticado, más recientes primero. Los vencidos se marcan con `expired=true`.
// @Tags shares
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param doctor_id query string false "Filtra por médico"
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/shares [get]
func listSharesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListGrants(r.Context(), claims, r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toGrantResponse(it.Grant, it.Expired))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// revokeHandler godoc
// @Summary Revocar un grant
// @Tags shares
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param grantID path string true "ID del grant"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "not found"
// @Router /me/shares/{grantID} [delete]
func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Revoke(r.Context(), claims, chi.URLParam(r, "grantID")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// revokeCategoryHandler godoc
// @Summary Revocar toda una categoría para un médico
// @Description Borra todos los grants (wildcard y específicos) del paciente hacia el médico en la categoría.
// @Tags shares
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param doctorID path string true "ID del médico"
// @Param category path string true "Categoría"
// @Success 200 {object} map[string]int
// @Failure 400 {string} string "unknown category"
// @Failure 401 {string} string "unauthorized"
// @Router /me/shares/doctors/{doctorID}/categories/{category} [delete]
func revokeCategoryHandler(svc *Service) http.HandlerFunc {
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

		n, err := svc.RevokeAllOfCategory(r.Context(), claims, chi.URLParam(r, "doctorID"), cat)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	}
}

// hasAccessHandler godoc
// @Summary Consultar si un médico tiene acceso
// @Tags shares
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Param doctorID path string true "ID del médico"
// @Param category query string true "Categoría"
// @Param resource_id query string false "Registro puntual"
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "unknown category"
// @Router /me/shares/doctors/{doctorID}/access [get]
func hasAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		cat, ok := records.ParseCategory(q.Get("category"))
		if !ok {
			http.Error(w, "unknown category", http.StatusBadRequest)
			return
		}

		has, err := svc.HasAccess(r.Context(), claims, chi.URLParam(r, "doctorID"), cat, q.Get("resource_id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"has_access": has})
	}
}

// sharedPatientsHandler godoc
// @Summary Pacientes que compartieron conmigo
// @Tags doctor
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-Role header string false "Solo en modo dev: patient | doctor"
// @Success 200 {array} sharedPatientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /doctor/patients [get]
func sharedPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.SharedPatients(r.Context(), claims)
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := make([]sharedPatientResponse, 0, len(items))
		for _, p := range items {
			out = append(out, sharedPatientResponse{PatientID: p.PatientID, Categories: p.Categories})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toGrantResponse(g Grant, expired bool) grantResponse {
	return grantResponse{
		ID:         g.ID,
		PatientID:  g.PatientID,
		DoctorID:   g.DoctorID,
		Category:   g.Category,
		Scope:      g.Scope,
		ResourceID: g.ResourceID,
		GrantedAt:  g.GrantedAt,
		ExpiresAt:  g.ExpiresAt,
		Notes:      strings.TrimSpace(g.Notes),
		Expired:    expired,
	}
}

// writeError responde el mensaje público; el error completo va al log del request.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.SetError(r.Context(), err)
	http.Error(w, exceptions.ClientMessage(err), exceptions.HTTPStatus(err))
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
