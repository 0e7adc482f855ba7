package records

import "fmt"

// Table describe una tabla física de registros de paciente.
type Table struct {
	Name        string
	Category    Category
	Kind        HistoryKind // solo antecedentes
	OwnerColumn string
	IDColumn    string
	OrderColumn string
}

// MergeFunc combina los resultados por tabla (en el orden de Spec.Tables).
type MergeFunc func(perTable [][]Record) []Record

// Spec es la configuración de resolución de una categoría.
type Spec struct {
	Category Category
	Tables   []Table
	Merge    MergeFunc // nil => concatenar en orden de tablas
}

func (s Spec) MergeResults(perTable [][]Record) []Record {
	if s.Merge != nil {
		return s.Merge(perTable)
	}
	return concat(perTable)
}

// Catalog mapea cada categoría a su Spec.
type Catalog map[Category]Spec

// DefaultCatalog es el esquema relacional de registros del producto.
func DefaultCatalog() Catalog {
	single := func(c Category, table, order string) Spec {
		return Spec{
			Category: c,
			Tables: []Table{{
				Name:        table,
				Category:    c,
				OwnerColumn: "patient_id",
				IDColumn:    "id",
				OrderColumn: order,
			}},
		}
	}

	return Catalog{
		CategoryDocument:     single(CategoryDocument, "documents", "uploaded_at"),
		CategoryPrescription: single(CategoryPrescription, "prescriptions", "prescribed_at"),
		CategoryMedication:   single(CategoryMedication, "medications", "start_date"),
		CategoryAllergy:      single(CategoryAllergy, "allergies", "created_at"),
		CategoryVaccine:      single(CategoryVaccine, "vaccines", "administered_at"),
		CategoryReport:       single(CategoryReport, "reports", "report_date"),
		CategoryAntecedent: {
			Category: CategoryAntecedent,
			Tables: []Table{
				{
					Name:        "personal_history",
					Category:    CategoryAntecedent,
					Kind:        KindPersonal,
					OwnerColumn: "patient_id",
					IDColumn:    "id",
					OrderColumn: "created_at",
				},
				{
					Name:        "family_history",
					Category:    CategoryAntecedent,
					Kind:        KindFamily,
					OwnerColumn: "patient_id",
					IDColumn:    "id",
					OrderColumn: "created_at",
				},
			},
			Merge: mergeTagged,
		},
	}
}

func (c Catalog) Lookup(cat Category) (Spec, error) {
	s, ok := c[cat]
	if !ok || len(s.Tables) == 0 {
		return Spec{}, fmt.Errorf("unknown category %q", cat)
	}
	return s, nil
}

func concat(perTable [][]Record) []Record {
	n := 0
	for _, rs := range perTable {
		n += len(rs)
	}
	out := make([]Record, 0, n)
	for _, rs := range perTable {
		out = append(out, rs...)
	}
	return out
}

// mergeTagged concatena personales y luego familiares; descarta filas sin Kind.
func mergeTagged(perTable [][]Record) []Record {
	all := concat(perTable)
	out := all[:0]
	for _, r := range all {
		if r.Kind == KindPersonal || r.Kind == KindFamily {
			out = append(out, r)
		}
	}
	return out
}
