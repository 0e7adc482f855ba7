package memory

import (
	"time"

	"medical-records-sharing/internal/domain/records"
)

// SeedDemo carga un registro por tabla del catálogo para patientID.
// Pensado para levantar el servicio sin base de datos y probar los endpoints.
func SeedDemo(s *RecordStore, patientID string) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	i := 0
	for _, spec := range records.DefaultCatalog() {
		for _, t := range spec.Tables {
			rec := records.Record{
				ID:         "demo-" + t.Name,
				PatientID:  patientID,
				OccurredAt: base.Add(time.Duration(i) * time.Hour),
				Attributes: map[string]any{},
			}
			if t.Category == records.CategoryDocument {
				rec.Attributes["storage_path"] = "patients/" + patientID + "/demo.pdf"
			}
			s.Add(t, rec)
			i++
		}
	}
}
