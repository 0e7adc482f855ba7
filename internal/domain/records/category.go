package records

import "strings"

// Category identifica uno de los siete dominios de datos médicos compartibles.
type Category string

const (
	CategoryDocument     Category = "document"
	CategoryPrescription Category = "prescription"
	CategoryMedication   Category = "medication"
	CategoryAllergy      Category = "allergy"
	CategoryVaccine      Category = "vaccine"
	CategoryAntecedent   Category = "antecedent"
	CategoryReport       Category = "report"
)

var orderedCategories = []Category{
	CategoryDocument,
	CategoryPrescription,
	CategoryMedication,
	CategoryAllergy,
	CategoryVaccine,
	CategoryAntecedent,
	CategoryReport,
}

// Categories devuelve las categorías en orden de presentación.
func Categories() []Category {
	out := make([]Category, len(orderedCategories))
	copy(out, orderedCategories)
	return out
}

// ParseCategory acepta singular o plural ("documents", "allergies").
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "documents":
		s = "document"
	case "prescriptions":
		s = "prescription"
	case "medications":
		s = "medication"
	case "allergies":
		s = "allergy"
	case "vaccines":
		s = "vaccine"
	case "antecedents":
		s = "antecedent"
	case "reports":
		s = "report"
	}
	c := Category(s)
	return c, c.Valid()
}

func (c Category) Valid() bool {
	for _, k := range orderedCategories {
		if k == c {
			return true
		}
	}
	return false
}

// HistoryKind etiqueta los antecedentes (personales o familiares).
type HistoryKind string

const (
	KindPersonal HistoryKind = "personal"
	KindFamily   HistoryKind = "family"
)
