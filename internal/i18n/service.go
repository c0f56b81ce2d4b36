package i18n

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-documents/internal/identity"
	"github.com/goliatone/go-documents/internal/logging"
	"github.com/goliatone/go-documents/pkg/interfaces"
)

// Service exposes locale resolution for document operations.
type Service interface {
	GetDefaultLocale(ctx context.Context) (string, error)
	IsSupported(ctx context.Context, code string) (bool, error)
	Locales(ctx context.Context) ([]string, error)
}

type service struct {
	repo   LocaleRepository
	config Config
	logger interfaces.Logger
}

// Option customizes the locale service.
type Option func(*service)

// WithLogger attaches a logger provider to the service.
func WithLogger(provider interfaces.LoggerProvider) Option {
	return func(s *service) {
		s.logger = logging.ModuleLogger(provider, "documents.i18n")
	}
}

// NewService builds a locale service over the given repository. Configuration
// acts as the fallback when storage holds no default locale.
func NewService(repo LocaleRepository, cfg Config, opts ...Option) Service {
	svc := &service{
		repo:   repo,
		config: cfg,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *service) GetDefaultLocale(ctx context.Context) (string, error) {
	if s.repo != nil {
		locales, err := s.repo.List(ctx)
		if err != nil {
			return "", err
		}
		for _, loc := range locales {
			if loc.IsDefault {
				return strings.ToLower(loc.Code), nil
			}
		}
	}
	if code := strings.TrimSpace(s.config.DefaultLocale); code != "" {
		return strings.ToLower(code), nil
	}
	return "", ErrNoDefaultLocale
}

func (s *service) IsSupported(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	if s.repo != nil {
		if _, err := s.repo.GetByCode(ctx, code); err == nil {
			return true, nil
		} else if !errors.Is(err, ErrLocaleNotFound) {
			return false, err
		}
	}
	for _, candidate := range s.config.Locales {
		if strings.EqualFold(candidate, code) {
			return true, nil
		}
	}
	return strings.EqualFold(s.config.DefaultLocale, code), nil
}

func (s *service) Locales(ctx context.Context) ([]string, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			codes := make([]string, 0, len(records))
			for _, loc := range records {
				codes = append(codes, strings.ToLower(loc.Code))
			}
			return codes, nil
		}
	}
	codes := make([]string, 0, len(s.config.Locales))
	for _, code := range s.config.Locales {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			codes = append(codes, strings.ToLower(trimmed))
		}
	}
	return codes, nil
}

// Seed fills a memory repository from configuration. Locale identifiers stay
// stable across restarts so references survive reseeding.
func Seed(repo *MemoryLocaleRepository, cfg Config) {
	if repo == nil {
		return
	}

	locales := cfg.Locales
	if len(locales) == 0 {
		locales = []string{cfg.DefaultLocale}
	}

	seen := map[string]struct{}{}
	for _, code := range locales {
		normalized := strings.TrimSpace(code)
		if normalized == "" {
			continue
		}
		lower := strings.ToLower(normalized)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		repo.Put(&Locale{
			ID:        identity.LocaleUUID(lower),
			Code:      lower,
			Display:   normalized,
			IsActive:  true,
			IsDefault: strings.EqualFold(normalized, cfg.DefaultLocale),
		})
	}
}
