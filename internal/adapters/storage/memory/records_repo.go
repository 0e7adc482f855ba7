package memory

import (
	"context"
	"sort"
	"sync"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/privilege"
)

// RecordStore simula las siete tablas de registros. Add/Remove existen para
// sembrar datos en modo dev y en tests; el motor solo lee.
type RecordStore struct {
	mu      sync.RWMutex
	byTable map[string]map[string]records.Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{byTable: map[string]map[string]records.Record{}}
}

// Add guarda rec en la tabla t, completando Category y Kind desde la tabla.
func (s *RecordStore) Add(t records.Table, rec records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Category = t.Category
	rec.Kind = t.Kind
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	rec.Attributes[t.IDColumn] = rec.ID
	rec.Attributes[t.OwnerColumn] = rec.PatientID

	if s.byTable[t.Name] == nil {
		s.byTable[t.Name] = map[string]records.Record{}
	}
	s.byTable[t.Name][rec.ID] = rec
}

func (s *RecordStore) Remove(t records.Table, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byTable[t.Name], id)
}

func (s *RecordStore) ListOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) ([]records.Record, error) {
	if err := tok.Require(); err != nil {
		return nil, err
	}
	return s.filter(t, patientID, nil), nil
}

func (s *RecordStore) ListOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) ([]records.Record, error) {
	if err := tok.Require(); err != nil {
		return nil, err
	}
	ids = records.UniqueIDs(ids)
	if len(ids) == 0 {
		return []records.Record{}, nil
	}
	return s.filter(t, patientID, ids), nil
}

func (s *RecordStore) CountOwned(ctx context.Context, tok privilege.Token, t records.Table, patientID string) (int, error) {
	rows, err := s.ListOwned(ctx, tok, t, patientID)
	return len(rows), err
}

func (s *RecordStore) CountOwnedByIDs(ctx context.Context, tok privilege.Token, t records.Table, patientID string, ids []string) (int, error) {
	rows, err := s.ListOwnedByIDs(ctx, tok, t, patientID, ids)
	return len(rows), err
}

func (s *RecordStore) filter(t records.Table, patientID string, ids []string) []records.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table := s.byTable[t.Name]
	out := make([]records.Record, 0)

	if ids == nil {
		for _, rec := range table {
			if rec.PatientID == patientID {
				out = append(out, rec)
			}
		}
	} else {
		for _, id := range ids {
			if rec, ok := table[id]; ok && rec.PatientID == patientID {
				out = append(out, rec)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
