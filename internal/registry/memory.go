package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

// MemoryStore is an in-memory Store for tests and one-shot CLI runs that have
// no database behind them.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*entity.PromptTemplate
	feedback  map[string]*entity.BrandFeedback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]*entity.PromptTemplate),
		feedback:  make(map[string]*entity.BrandFeedback),
	}
}

func (s *MemoryStore) PutTemplate(tpl entity.PromptTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tplKey(tpl.CountryCode, tpl.BrandName, tpl.ProcessingMethod)] = &tpl
}

func (s *MemoryStore) PutFeedback(fb entity.BrandFeedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[fbKey(fb.CountryCode, fb.BrandName)] = &fb
}

func (s *MemoryStore) GetPromptTemplate(ctx context.Context, countryCode, brandName, method string) (*entity.PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[tplKey(countryCode, brandName, method)]
	if !ok || !tpl.IsActive {
		return nil, common.ErrNotFound
	}
	return tpl, nil
}

func (s *MemoryStore) GetBrandFeedback(ctx context.Context, countryCode, brandName string) (*entity.BrandFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fb, ok := s.feedback[fbKey(countryCode, brandName)]
	if !ok {
		return nil, common.ErrNotFound
	}
	return fb, nil
}

func tplKey(country, brand, method string) string {
	return country + "|" + strings.ToLower(brand) + "|" + method
}

func fbKey(country, brand string) string {
	return country + "|" + strings.ToLower(brand)
}
