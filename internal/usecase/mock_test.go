//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/adapter"
	"pos-activation/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock FeatureRepository ----

type MockFeatureRepo struct {
	mu     sync.Mutex
	byName map[string]*model.Feature
	order  []string

	CreateFunc     func(ctx context.Context, tx repository.Tx, f *model.Feature) error
	FindByNameFunc func(ctx context.Context, tx repository.Tx, name string) (*model.Feature, error)
	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.Feature, error)

	FindByNameCalls int
}

var _ repository.FeatureRepository = (*MockFeatureRepo)(nil)

func NewMockFeatureRepo() *MockFeatureRepo {
	return &MockFeatureRepo{byName: map[string]*model.Feature{}}
}

func (r *MockFeatureRepo) Create(ctx context.Context, tx repository.Tx, f *model.Feature) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, f)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[f.Name]; ok {
		return domain.ErrDuplicateFeature
	}
	cp := *f
	r.byName[f.Name] = &cp
	r.order = append(r.order, f.Name)
	return nil
}

func (r *MockFeatureRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Feature, error) {
	if r.FindByNameFunc != nil {
		return r.FindByNameFunc(ctx, tx, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindByNameCalls++
	if f, ok := r.byName[name]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockFeatureRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Feature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.byName {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockFeatureRepo) SetEnabled(ctx context.Context, tx repository.Tx, name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byName[name]
	if !ok {
		return domain.ErrNotFound
	}
	f.Enabled = enabled
	return nil
}

func (r *MockFeatureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Feature, error) {
	if r.ListAllFunc != nil {
		return r.ListAllFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Feature, 0, len(r.order))
	for _, n := range r.order {
		cp := *r.byName[n]
		out = append(out, &cp)
	}
	return out, nil
}

// ---- Mock ActivationKeyRepository ----

type MockActivationKeyRepo struct {
	mu       sync.Mutex
	byDigest map[string]*model.ActivationKey

	CreateFunc       func(ctx context.Context, tx repository.Tx, k *model.ActivationKey) error
	FindByDigestFunc func(ctx context.Context, tx repository.Tx, digest string) (*model.ActivationKey, error)
	MarkUsedFunc     func(ctx context.Context, tx repository.Tx, id string, usedAt time.Time) (bool, error)
}

var _ repository.ActivationKeyRepository = (*MockActivationKeyRepo)(nil)

func NewMockActivationKeyRepo() *MockActivationKeyRepo {
	return &MockActivationKeyRepo{byDigest: map[string]*model.ActivationKey{}}
}

func (r *MockActivationKeyRepo) Create(ctx context.Context, tx repository.Tx, k *model.ActivationKey) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, k)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byDigest[k.KeyDigest]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *k
	r.byDigest[k.KeyDigest] = &cp
	return nil
}

func (r *MockActivationKeyRepo) FindByDigest(ctx context.Context, tx repository.Tx, digest string) (*model.ActivationKey, error) {
	if r.FindByDigestFunc != nil {
		return r.FindByDigestFunc(ctx, tx, digest)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.byDigest[digest]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// MarkUsed mirrors the conditional UPDATE of the real stores: only the first caller wins.
func (r *MockActivationKeyRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, usedAt time.Time) (bool, error) {
	if r.MarkUsedFunc != nil {
		return r.MarkUsedFunc(ctx, tx, id, usedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.byDigest {
		if k.ID == id {
			if k.Used {
				return false, nil
			}
			k.Used = true
			t := usedAt
			k.UsedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (r *MockActivationKeyRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.ActivationKey, error) {
	all, _ := r.ListAll(ctx, tx)
	out := all[:0]
	for _, k := range all {
		if k.BusinessID == businessID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *MockActivationKeyRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.ActivationKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.ActivationKey, 0, len(r.byDigest))
	for _, k := range r.byDigest {
		cp := *k
		out = append(out, &cp)
	}
	// ULIDs sort by issuance.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Get returns the stored key by its ID (test helper).
func (r *MockActivationKeyRepo) Get(id string) *model.ActivationKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.byDigest {
		if k.ID == id {
			cp := *k
			return &cp
		}
	}
	return nil
}

// ---- Mock BusinessFeatureRepository ----

type MockBusinessFeatureRepo struct {
	mu   sync.Mutex
	rows map[string]*model.BusinessFeature // key: businessID|featureID

	UpsertFunc func(ctx context.Context, tx repository.Tx, bf *model.BusinessFeature) error
	FindFunc   func(ctx context.Context, tx repository.Tx, businessID, featureID string) (*model.BusinessFeature, error)

	UpsertCalls int
}

var _ repository.BusinessFeatureRepository = (*MockBusinessFeatureRepo)(nil)

func NewMockBusinessFeatureRepo() *MockBusinessFeatureRepo {
	return &MockBusinessFeatureRepo{rows: map[string]*model.BusinessFeature{}}
}

func ledgerKey(businessID, featureID string) string { return businessID + "|" + featureID }

func (r *MockBusinessFeatureRepo) Upsert(ctx context.Context, tx repository.Tx, bf *model.BusinessFeature) error {
	r.mu.Lock()
	r.UpsertCalls++
	r.mu.Unlock()
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, bf)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := ledgerKey(bf.BusinessID, bf.FeatureID)
	cp := *bf
	if existing, ok := r.rows[k]; ok {
		cp.ID = existing.ID
	}
	r.rows[k] = &cp
	return nil
}

func (r *MockBusinessFeatureRepo) Find(ctx context.Context, tx repository.Tx, businessID, featureID string) (*model.BusinessFeature, error) {
	if r.FindFunc != nil {
		return r.FindFunc(ctx, tx, businessID, featureID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if bf, ok := r.rows[ledgerKey(businessID, featureID)]; ok {
		cp := *bf
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockBusinessFeatureRepo) SetActive(ctx context.Context, tx repository.Tx, businessID, featureID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bf, ok := r.rows[ledgerKey(businessID, featureID)]
	if !ok {
		return domain.ErrNotFound
	}
	bf.Active = active
	return nil
}

func (r *MockBusinessFeatureRepo) ListByBusiness(ctx context.Context, tx repository.Tx, businessID string) ([]*model.BusinessFeature, error) {
	all, _ := r.ListAll(ctx, tx)
	out := all[:0]
	for _, bf := range all {
		if bf.BusinessID == businessID {
			out = append(out, bf)
		}
	}
	return out, nil
}

func (r *MockBusinessFeatureRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.BusinessFeature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.BusinessFeature, 0, len(r.rows))
	for _, bf := range r.rows {
		cp := *bf
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivatedAt.Before(out[j].ActivatedAt) })
	return out, nil
}

// Count returns the number of ledger rows (test helper).
func (r *MockBusinessFeatureRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ---- Mock BusinessRepository ----

type MockBusinessRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Business

	ExistsFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.BusinessRepository = (*MockBusinessRepo)(nil)

func NewMockBusinessRepo(ids ...string) *MockBusinessRepo {
	r := &MockBusinessRepo{byID: map[string]*model.Business{}}
	for _, id := range ids {
		r.byID[id] = &model.Business{ID: id, Name: "Business " + id, CreatedAt: time.Now()}
	}
	return r
}

func (r *MockBusinessRepo) Exists(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.ExistsFunc != nil {
		return r.ExistsFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *MockBusinessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockBusinessRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Business, 0, len(r.byID))
	for _, b := range r.byID {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockBusinessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.byID[b.ID] = &cp
	return nil
}

// =============================
// Transactions & adapters
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory AttemptLimiter ----

type MockLimiter struct {
	mu     sync.Mutex
	counts map[string]int

	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ adapter.AttemptLimiter = (*MockLimiter)(nil)

func NewMockLimiter() *MockLimiter {
	return &MockLimiter{counts: map[string]int{}}
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
