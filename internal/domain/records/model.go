package records

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Record es el sobre común de cualquier registro de paciente.
// Attributes guarda la fila completa tal como la devuelve el store.
type Record struct {
	ID         string         `json:"id"`
	PatientID  string         `json:"patient_id"`
	Category   Category       `json:"category"`
	Kind       HistoryKind    `json:"kind,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type Prescription struct {
	ID           string    `json:"id"`
	DoctorName   string    `json:"doctor_name"`
	Diagnosis    string    `json:"diagnosis"`
	Notes        string    `json:"notes"`
	PrescribedAt time.Time `json:"prescribed_at"`
}

type Medication struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type Allergy struct {
	ID        string    `json:"id"`
	Allergen  string    `json:"allergen"`
	Severity  string    `json:"severity"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_at"`
}

type Vaccine struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Dose           string    `json:"dose"`
	AdministeredAt time.Time `json:"administered_at"`
}

// Antecedent es la unión etiquetada de antecedentes personales y familiares.
type Antecedent struct {
	ID           string      `json:"id"`
	Kind         HistoryKind `json:"kind"`
	Condition    string      `json:"condition"`
	Relationship string      `json:"relationship,omitempty"` // solo family
	Notes        string      `json:"notes"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Report struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	ReportDate time.Time `json:"report_date"`
}

// As decodifica Attributes en una de las formas tipadas. Kind viene de la
// tabla de origen, no de la fila, y se agrega si la fila no lo trae.
func As[T any](r Record) (T, error) {
	var out T
	attrs := r.Attributes
	if _, ok := attrs["kind"]; r.Kind != "" && !ok {
		attrs = make(map[string]any, len(r.Attributes)+1)
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		attrs["kind"] = r.Kind
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return out, fmt.Errorf("record %s: encode attributes: %w", r.ID, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("record %s: decode attributes: %w", r.ID, err)
	}
	return out, nil
}

// Typed decodifica el registro en la forma de su categoría.
func Typed(r Record) (any, error) {
	switch r.Category {
	case CategoryDocument:
		return As[Document](r)
	case CategoryPrescription:
		return As[Prescription](r)
	case CategoryMedication:
		return As[Medication](r)
	case CategoryAllergy:
		return As[Allergy](r)
	case CategoryVaccine:
		return As[Vaccine](r)
	case CategoryAntecedent:
		return As[Antecedent](r)
	case CategoryReport:
		return As[Report](r)
	default:
		return nil, fmt.Errorf("record %s: unknown category %q", r.ID, r.Category)
	}
}

// StoragePath devuelve la ruta del binario de un documento, o "".
func (r Record) StoragePath() string {
	if r.Category != CategoryDocument {
		return ""
	}
	d, err := As[Document](r)
	if err != nil {
		return ""
	}
	return d.StoragePath
}
