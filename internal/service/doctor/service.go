package doctor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/patient-api/internal/repository"
	"github.com/jwalitptl/patient-api/pkg/logger"
)

// DefaultDisplayName is used when a doctor has no usable name.
const DefaultDisplayName = "Your Doctor"

// Directory resolves the name shown to patients in invitations.
type Directory interface {
	DisplayName(ctx context.Context, doctorID uuid.UUID) string
}

type Service struct {
	repo  repository.DoctorRepository
	cache *cache.Cache
	log   *logger.Logger
}

func NewService(repo repository.DoctorRepository, ttl, cleanupInterval time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(ttl, cleanupInterval),
		log:   log,
	}
}

// DisplayName never fails. Lookup errors fall back to DefaultDisplayName
// and are not cached.
func (s *Service) DisplayName(ctx context.Context, doctorID uuid.UUID) string {
	key := doctorID.String()
	if name, ok := s.cache.Get(key); ok {
		return name.(string)
	}

	doctor, err := s.repo.Get(ctx, doctorID)
	if err != nil {
		s.log.Warn("failed to load doctor profile", "doctor_id", key, "error", err.Error())
		return DefaultDisplayName
	}

	name := DefaultDisplayName
	if doctor.Name != nil && strings.TrimSpace(*doctor.Name) != "" {
		name = strings.TrimSpace(*doctor.Name)
	}
	s.cache.SetDefault(key, name)
	return name
}
