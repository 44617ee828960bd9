// Package configstore loads and validates the persisted search settings.
package configstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/validator"
	"github.com/SrinivasareddyGatla/open-commerce-search/services/search/internal/domain"
)

// Store loads the complete settings.
type Store interface {
	Load(ctx context.Context) (*domain.Settings, error)
}

// Validate checks the struct constraints of s and that every index field
// list and query condition can be used.
func Validate(s *domain.Settings) error {
	if err := validator.Validate(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if _, err := domain.NewFieldIndex(s.DefaultIndex.Fields); err != nil {
		return fmt.Errorf("default index: %w", err)
	}
	for name, ic := range s.Indexes {
		if _, err := domain.NewFieldIndex(ic.Fields); err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
	}

	if err := validateQueries("default tenant", s.DefaultTenant.QueryConfigs); err != nil {
		return err
	}
	for name, tc := range s.Tenants {
		if err := validateQueries("tenant "+name, tc.QueryConfigs); err != nil {
			return err
		}
	}
	return nil
}

func validateQueries(owner string, configs []domain.QueryConfiguration) error {
	for _, qc := range configs {
		if qc.Condition.MatchingRegex == "" {
			continue
		}
		if _, err := regexp.Compile(qc.Condition.MatchingRegex); err != nil {
			return fmt.Errorf("%s: query %s: %w", owner, qc.Name, err)
		}
	}
	return nil
}
