package profile

import (
	"context"
	"fmt"
	"sync"

	"lifeline/internal/emergency/models"
	"lifeline/pkg/platform/sentinel"
)

type digestKey struct {
	kind   models.MethodKind
	digest string
}

// InMemoryStore keeps profiles and a digest index in memory.
// Profiles are cloned on the way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[models.ProfileID]*models.EmergencyAccessProfile
	active   map[models.PatientID]models.ProfileID
	digests  map[digestKey]models.ProfileID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[models.ProfileID]*models.EmergencyAccessProfile),
		active:   make(map[models.PatientID]models.ProfileID),
		digests:  make(map[digestKey]models.ProfileID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.EmergencyAccessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return fmt.Errorf("profile %s: %w", p.ID, sentinel.ErrConflict)
	}
	if p.IsActive {
		if _, exists := s.active[p.PatientID]; exists {
			return fmt.Errorf("patient already has an active profile: %w", sentinel.ErrConflict)
		}
	}
	if err := s.checkDigestsLocked(p); err != nil {
		return err
	}

	s.putLocked(p.Clone())
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id models.ProfileID) (*models.EmergencyAccessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) GetActiveByPatient(_ context.Context, patientID models.PatientID) (*models.EmergencyAccessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.profiles[id].Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, p *models.EmergencyAccessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.profiles[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.IsActive && !prev.IsActive {
		if other, exists := s.active[p.PatientID]; exists && other != p.ID {
			return fmt.Errorf("patient already has an active profile: %w", sentinel.ErrConflict)
		}
	}
	if err := s.checkDigestsLocked(p); err != nil {
		return err
	}

	s.dropIndexesLocked(prev)
	s.putLocked(p.Clone())
	return nil
}

func (s *InMemoryStore) FindByDigest(_ context.Context, kind models.MethodKind, digest string) (models.ProfileID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.digests[digestKey{kind: kind, digest: digest}]
	if !ok {
		return models.ProfileID{}, sentinel.ErrNotFound
	}
	return id, nil
}

func (s *InMemoryStore) checkDigestsLocked(p *models.EmergencyAccessProfile) error {
	for kind, m := range p.Methods {
		tm, ok := m.(models.TokenMethod)
		if !ok || tm.LookupDigest() == "" {
			continue
		}
		if owner, exists := s.digests[digestKey{kind, tm.LookupDigest()}]; exists && owner != p.ID {
			return fmt.Errorf("%s digest already registered: %w", kind, sentinel.ErrConflict)
		}
	}
	return nil
}

func (s *InMemoryStore) dropIndexesLocked(p *models.EmergencyAccessProfile) {
	if s.active[p.PatientID] == p.ID {
		delete(s.active, p.PatientID)
	}
	for key, owner := range s.digests {
		if owner == p.ID {
			delete(s.digests, key)
		}
	}
}

func (s *InMemoryStore) putLocked(p *models.EmergencyAccessProfile) {
	s.profiles[p.ID] = p
	if p.IsActive {
		s.active[p.PatientID] = p.ID
	}
	for kind, m := range p.Methods {
		if tm, ok := m.(models.TokenMethod); ok && tm.LookupDigest() != "" {
			s.digests[digestKey{kind, tm.LookupDigest()}] = p.ID
		}
	}
}
