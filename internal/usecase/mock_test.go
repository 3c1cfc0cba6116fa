//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/adapter"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/usecase"
)

// =============================
// In-memory store
// =============================

// memStore is the shared backing state for every mock repository. Rows are stored
// by value so a snapshot is a plain map copy.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	codes       map[string]model.RedemptionCode
	plans       map[int64]model.Plan
	accounts    map[int64]model.Account
	subs        map[int64]model.Subscription
	commissions map[int64]model.Commission
	withdrawals map[int64]model.Withdrawal
}

func newMemStore() *memStore {
	return &memStore{
		codes:       map[string]model.RedemptionCode{},
		plans:       map[int64]model.Plan{},
		accounts:    map[int64]model.Account{},
		subs:        map[int64]model.Subscription{},
		commissions: map[int64]model.Commission{},
		withdrawals: map[int64]model.Withdrawal{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memSnapshot struct {
	nextID      int64
	codes       map[string]model.RedemptionCode
	plans       map[int64]model.Plan
	accounts    map[int64]model.Account
	subs        map[int64]model.Subscription
	commissions map[int64]model.Commission
	withdrawals map[int64]model.Withdrawal
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	return memSnapshot{
		nextID:      s.nextID,
		codes:       copyMap(s.codes),
		plans:       copyMap(s.plans),
		accounts:    copyMap(s.accounts),
		subs:        copyMap(s.subs),
		commissions: copyMap(s.commissions),
		withdrawals: copyMap(s.withdrawals),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.nextID = snap.nextID
	s.codes = snap.codes
	s.plans = snap.plans
	s.accounts = snap.accounts
	s.subs = snap.subs
	s.commissions = snap.commissions
	s.withdrawals = snap.withdrawals
}

// memTx marks calls made inside MockTxManager.WithTx, where the store lock is already held.
type memTx struct{}

func (s *memStore) lock(tx repository.Tx) func() {
	if _, ok := tx.(*memTx); ok {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// seed helpers bypass the repositories.

func (s *memStore) addPlan(p model.Plan) *model.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.plans[p.ID] = p
	return &p
}

func (s *memStore) addAccount(a model.Account) *model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	if a.Role == "" {
		a.Role = model.RoleUser
	}
	if a.Status == "" {
		a.Status = model.AccountStatusActive
	}
	if a.ReferralCode == "" {
		a.ReferralCode = fmt.Sprintf("REF%05d", a.ID)
	}
	s.accounts[a.ID] = a
	return &a
}

func (s *memStore) addCode(c model.RedemptionCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.Status == "" {
		c.Status = model.CodeStatusUnused
	}
	s.codes[c.Code] = c
}

func (s *memStore) addSub(sub model.Subscription) *model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.id()
	s.subs[sub.ID] = sub
	return &sub
}

func (s *memStore) addCommission(c model.Commission) *model.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.commissions[c.ID] = c
	return &c
}

func (s *memStore) addWithdrawal(w model.Withdrawal) *model.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.id()
	if w.Status == "" {
		w.Status = model.WithdrawalStatusPending
	}
	s.withdrawals[w.ID] = w
	return &w
}

func (s *memStore) withdrawal(id int64) model.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withdrawals[id]
}

func (s *memStore) commission(id int64) model.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commissions[id]
}

func (s *memStore) code(code string) (model.RedemptionCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	return c, ok
}

func (s *memStore) account(id int64) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memStore) accountByEmail(email string) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return model.Account{}, false
}

func (s *memStore) subsOf(accountID int64) []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Subscription
	for _, sub := range s.subs {
		if sub.AccountID == accountID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) countCodes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *memStore) countCommissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commissions)
}

func (s *memStore) allCommissions() []model.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Commission, 0, len(s.commissions))
	for _, c := range s.commissions {
		out = append(out, c)
	}
	return out
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	store      *memStore
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Calls      int
}

func NewMockTxManager(store *memStore) *MockTxManager {
	return &MockTxManager{store: store}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx serializes callbacks on the store and restores the snapshot taken before
// fn when fn fails, mimicking a rollback.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	if m.store == nil {
		return fn(ctx, repository.NoTX)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.Calls++
	snap := m.store.snapshot()
	if err := fn(ctx, &memTx{}); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// =============================
// Repositories
// =============================

// ---- Redemption codes ----

type MockCodeRepo struct {
	store *memStore

	InsertFunc       func(ctx context.Context, tx repository.Tx, c *model.RedemptionCode) (bool, error)
	MarkRedeemedFunc func(ctx context.Context, tx repository.Tx, code string, accountID int64, at time.Time) (bool, error)
	InsertCalls      int
}

func NewMockCodeRepo(store *memStore) *MockCodeRepo { return &MockCodeRepo{store: store} }

var _ repository.RedemptionCodeRepository = (*MockCodeRepo)(nil)

func (r *MockCodeRepo) Insert(ctx context.Context, tx repository.Tx, c *model.RedemptionCode) (bool, error) {
	r.InsertCalls++
	if r.InsertFunc != nil {
		return r.InsertFunc(ctx, tx, c)
	}
	defer r.store.lock(tx)()
	if _, taken := r.store.codes[c.Code]; taken {
		return false, nil
	}
	c.ID = r.store.id()
	r.store.codes[c.Code] = *c
	return true, nil
}

func (r *MockCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	defer r.store.lock(tx)()
	c, ok := r.store.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *MockCodeRepo) MarkRedeemed(ctx context.Context, tx repository.Tx, code string, accountID int64, at time.Time) (bool, error) {
	if r.MarkRedeemedFunc != nil {
		return r.MarkRedeemedFunc(ctx, tx, code, accountID, at)
	}
	return r.markRedeemed(tx, code, accountID, at)
}

func (r *MockCodeRepo) markRedeemed(tx repository.Tx, code string, accountID int64, at time.Time) (bool, error) {
	defer r.store.lock(tx)()
	c, ok := r.store.codes[code]
	if !ok || c.IsUsed() || c.IsExpired(at) {
		return false, nil
	}
	c.Status = model.CodeStatusUsed
	c.RedeemedBy = &accountID
	c.RedeemedAt = &at
	r.store.codes[code] = c
	return true, nil
}

func (r *MockCodeRepo) List(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.RedemptionCode, int, error) {
	defer r.store.lock(tx)()
	var matched []*model.RedemptionCode
	for _, c := range r.store.codes {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.PlanID != 0 && c.PlanID != f.PlanID {
			continue
		}
		if f.Search != "" && !strings.Contains(c.Code, f.Search) {
			continue
		}
		c := c
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r *MockCodeRepo) DeleteUnused(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	defer r.store.lock(tx)()
	c, ok := r.store.codes[code]
	if !ok || c.IsUsed() {
		return false, nil
	}
	delete(r.store.codes, code)
	return true, nil
}

// ---- Plans ----

type MockPlanRepo struct {
	store *memStore

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error)
}

func NewMockPlanRepo(store *memStore) *MockPlanRepo { return &MockPlanRepo{store: store} }

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	defer r.store.lock(tx)()
	if p.ID == 0 {
		p.ID = r.store.id()
	} else if _, ok := r.store.plans[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.plans[p.ID] = *p
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	defer r.store.lock(tx)()
	p, ok := r.store.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	defer r.store.lock(tx)()
	out := make([]*model.Plan, 0, len(r.store.plans))
	for _, p := range r.store.plans {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Accounts ----

type MockAccountRepo struct {
	store *memStore

	CreateFunc func(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error)
	DebitFunc  func(ctx context.Context, tx repository.Tx, id int64, amount int64) (bool, error)
}

func NewMockAccountRepo(store *memStore) *MockAccountRepo { return &MockAccountRepo{store: store} }

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func (r *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Account, error) {
	defer r.store.lock(tx)()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *MockAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	defer r.store.lock(tx)()
	for _, a := range r.store.accounts {
		if a.Email == email {
			a := a
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAccountRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Account, error) {
	defer r.store.lock(tx)()
	for _, a := range r.store.accounts {
		if a.ReferralCode == code {
			a := a
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) (bool, error) {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, a)
	}
	return r.create(tx, a)
}

func (r *MockAccountRepo) create(tx repository.Tx, a *model.Account) (bool, error) {
	defer r.store.lock(tx)()
	for _, existing := range r.store.accounts {
		if existing.Email == a.Email || existing.ReferralCode == a.ReferralCode {
			return false, nil
		}
	}
	a.ID = r.store.id()
	r.store.accounts[a.ID] = *a
	return true, nil
}

func (r *MockAccountRepo) List(ctx context.Context, tx repository.Tx, search string, offset, limit int) ([]*model.Account, int, error) {
	defer r.store.lock(tx)()
	var matched []*model.Account
	for _, a := range r.store.accounts {
		if search != "" && !strings.Contains(a.Email, search) {
			continue
		}
		a := a
		matched = append(matched, &a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, offset, limit), len(matched), nil
}

func (r *MockAccountRepo) ListReferred(ctx context.Context, tx repository.Tx, referrerID int64, offset, limit int) ([]*model.Account, int, error) {
	defer r.store.lock(tx)()
	var matched []*model.Account
	for _, a := range r.store.accounts {
		if a.ReferredBy == nil || *a.ReferredBy != referrerID {
			continue
		}
		a := a
		matched = append(matched, &a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, offset, limit), len(matched), nil
}

func (r *MockAccountRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id int64, status model.AccountStatus) error {
	defer r.store.lock(tx)()
	a, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	r.store.accounts[id] = a
	return nil
}

func (r *MockAccountRepo) DebitCommissionBalance(ctx context.Context, tx repository.Tx, id int64, amount int64) (bool, error) {
	if r.DebitFunc != nil {
		return r.DebitFunc(ctx, tx, id, amount)
	}
	defer r.store.lock(tx)()
	a, ok := r.store.accounts[id]
	if !ok || a.CommissionBalance < amount {
		return false, nil
	}
	a.CommissionBalance -= amount
	r.store.accounts[id] = a
	return true, nil
}

func (r *MockAccountRepo) AddCommissionBalance(ctx context.Context, tx repository.Tx, id int64, amount int64) error {
	defer r.store.lock(tx)()
	a, ok := r.store.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.CommissionBalance += amount
	r.store.accounts[id] = a
	return nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	store *memStore

	LockedAccounts []int64
}

func NewMockSubscriptionRepo(store *memStore) *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: store}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (r *MockSubscriptionRepo) LockAccount(ctx context.Context, tx repository.Tx, accountID int64) error {
	if _, ok := tx.(*memTx); !ok {
		return domain.ErrInvalidExecContext
	}
	r.LockedAccounts = append(r.LockedAccounts, accountID)
	return nil
}

func (r *MockSubscriptionRepo) FindActiveByAccount(ctx context.Context, tx repository.Tx, accountID int64) (*model.Subscription, error) {
	defer r.store.lock(tx)()
	var latest *model.Subscription
	for _, s := range r.store.subs {
		if s.AccountID != accountID || s.Status != model.SubscriptionStatusActive {
			continue
		}
		if latest == nil || s.EndDate.After(latest.EndDate) {
			s := s
			latest = &s
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	defer r.store.lock(tx)()
	if s.ID == 0 {
		for _, other := range r.store.subs {
			if other.AccountID == s.AccountID && other.Status == model.SubscriptionStatusActive && s.Status == model.SubscriptionStatusActive {
				return errors.New("duplicate active subscription")
			}
		}
		s.ID = r.store.id()
	}
	r.store.subs[s.ID] = *s
	return nil
}

func (r *MockSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	defer r.store.lock(tx)()
	n := 0
	for id, s := range r.store.subs {
		if s.Status == model.SubscriptionStatusActive && !s.EndDate.After(now) {
			s.Status = model.SubscriptionStatusExpired
			r.store.subs[id] = s
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	defer r.store.lock(tx)()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.store.subs {
		out[s.Status]++
	}
	return out, nil
}

// ---- Commissions ----

type MockCommissionRepo struct {
	store *memStore

	CreateFunc func(ctx context.Context, tx repository.Tx, c *model.Commission) error
}

func NewMockCommissionRepo(store *memStore) *MockCommissionRepo {
	return &MockCommissionRepo{store: store}
}

var _ repository.CommissionRepository = (*MockCommissionRepo)(nil)

func (r *MockCommissionRepo) Create(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, c)
	}
	defer r.store.lock(tx)()
	for _, existing := range r.store.commissions {
		if existing.SourceRef == c.SourceRef {
			return domain.ErrAlreadyExists
		}
	}
	c.ID = r.store.id()
	r.store.commissions[c.ID] = *c
	return nil
}

func (r *MockCommissionRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Commission, error) {
	defer r.store.lock(tx)()
	c, ok := r.store.commissions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *MockCommissionRepo) List(ctx context.Context, tx repository.Tx, f model.CommissionFilter) ([]*model.Commission, int, error) {
	defer r.store.lock(tx)()
	var matched []*model.Commission
	for _, c := range r.store.commissions {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.ReferrerAccountID != 0 && c.ReferrerAccountID != f.ReferrerAccountID {
			continue
		}
		c := c
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r *MockCommissionRepo) MarkSettled(ctx context.Context, tx repository.Tx, id int64, at time.Time) (bool, error) {
	defer r.store.lock(tx)()
	c, ok := r.store.commissions[id]
	if !ok || c.Status != model.CommissionStatusPending {
		return false, nil
	}
	c.Status = model.CommissionStatusSettled
	c.SettledAt = &at
	r.store.commissions[id] = c
	return true, nil
}

// MarkWithdrawn mirrors the SQL: the budget is approved withdrawals minus already
// withdrawn commissions, spent on settled commissions oldest first.
func (r *MockCommissionRepo) MarkWithdrawn(ctx context.Context, tx repository.Tx, referrerID, withdrawalID int64) (int, error) {
	defer r.store.lock(tx)()
	var budget int64
	for _, w := range r.store.withdrawals {
		if w.AccountID == referrerID && w.Status == model.WithdrawalStatusApproved {
			budget += w.Amount
		}
	}
	var settled []model.Commission
	for _, c := range r.store.commissions {
		if c.ReferrerAccountID != referrerID {
			continue
		}
		switch c.Status {
		case model.CommissionStatusWithdrawn:
			budget -= c.Amount
		case model.CommissionStatusSettled:
			settled = append(settled, c)
		}
	}
	settledAt := func(c model.Commission) time.Time {
		if c.SettledAt == nil {
			return time.Time{}
		}
		return *c.SettledAt
	}
	sort.Slice(settled, func(i, j int) bool {
		ti, tj := settledAt(settled[i]), settledAt(settled[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return settled[i].ID < settled[j].ID
	})

	moved := 0
	var running int64
	for _, c := range settled {
		running += c.Amount
		if running > budget {
			break
		}
		c.Status = model.CommissionStatusWithdrawn
		c.WithdrawalID = &withdrawalID
		r.store.commissions[c.ID] = c
		moved++
	}
	return moved, nil
}

func (r *MockCommissionRepo) TotalsByStatus(ctx context.Context, tx repository.Tx, referrerID int64) (map[model.CommissionStatus]int64, error) {
	defer r.store.lock(tx)()
	out := map[model.CommissionStatus]int64{}
	for _, c := range r.store.commissions {
		if c.ReferrerAccountID == referrerID {
			out[c.Status] += c.Amount
		}
	}
	return out, nil
}

// ---- Withdrawals ----

type MockWithdrawalRepo struct {
	store *memStore
}

func NewMockWithdrawalRepo(store *memStore) *MockWithdrawalRepo {
	return &MockWithdrawalRepo{store: store}
}

var _ repository.WithdrawalRepository = (*MockWithdrawalRepo)(nil)

func (r *MockWithdrawalRepo) Create(ctx context.Context, tx repository.Tx, w *model.Withdrawal) error {
	defer r.store.lock(tx)()
	w.ID = r.store.id()
	r.store.withdrawals[w.ID] = *w
	return nil
}

func (r *MockWithdrawalRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Withdrawal, error) {
	defer r.store.lock(tx)()
	w, ok := r.store.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &w, nil
}

func (r *MockWithdrawalRepo) List(ctx context.Context, tx repository.Tx, f model.WithdrawalFilter) ([]*model.Withdrawal, int, error) {
	defer r.store.lock(tx)()
	var matched []*model.Withdrawal
	for _, w := range r.store.withdrawals {
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		if f.AccountID != 0 && w.AccountID != f.AccountID {
			continue
		}
		w := w
		matched = append(matched, &w)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, f.Offset, f.Limit), len(matched), nil
}

func (r *MockWithdrawalRepo) PendingTotal(ctx context.Context, tx repository.Tx, accountID int64) (int64, error) {
	defer r.store.lock(tx)()
	var total int64
	for _, w := range r.store.withdrawals {
		if w.AccountID == accountID && w.Status == model.WithdrawalStatusPending {
			total += w.Amount
		}
	}
	return total, nil
}

func (r *MockWithdrawalRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id int64, status model.WithdrawalStatus, note string, at time.Time) (bool, error) {
	defer r.store.lock(tx)()
	w, ok := r.store.withdrawals[id]
	if !ok || w.Status != model.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = status
	w.AdminNote = note
	w.ProcessedAt = &at
	r.store.withdrawals[id] = w
	return true, nil
}

// =============================
// Adapters
// =============================

type MockEventPublisher struct {
	mu     sync.Mutex
	Events []adapter.ActivationEvent

	PublishFunc func(ctx context.Context, ev adapter.ActivationEvent) error
}

var _ adapter.EventPublisher = (*MockEventPublisher)(nil)

func (p *MockEventPublisher) PublishActivation(ctx context.Context, ev adapter.ActivationEvent) error {
	if p.PublishFunc != nil {
		return p.PublishFunc(ctx, ev)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, ev)
	return nil
}

func (p *MockEventPublisher) Close() error { return nil }

func (p *MockEventPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}

// =============================
// Utilities
// =============================

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// fixedClock returns a Now func pinned to t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// constReader yields the same byte forever, which makes every generated suffix identical.
type constReader byte

func (r constReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

// seqReader serves each chunk once and then falls back to rest.
type seqReader struct {
	chunks [][]byte
	rest   io.Reader
}

func (r *seqReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return r.rest.Read(p)
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// fixture wires every mock around one shared store.
type fixture struct {
	store       *memStore
	tm          *MockTxManager
	codes       *MockCodeRepo
	plans       *MockPlanRepo
	accounts    *MockAccountRepo
	subs        *MockSubscriptionRepo
	commissions *MockCommissionRepo
	withdrawals *MockWithdrawalRepo
	events      *MockEventPublisher
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store:       store,
		tm:          NewMockTxManager(store),
		codes:       NewMockCodeRepo(store),
		plans:       NewMockPlanRepo(store),
		accounts:    NewMockAccountRepo(store),
		subs:        NewMockSubscriptionRepo(store),
		commissions: NewMockCommissionRepo(store),
		withdrawals: NewMockWithdrawalRepo(store),
		events:      &MockEventPublisher{},
	}
}

func (f *fixture) codeManager(policy usecase.CodePolicy) usecase.CodeManager {
	return usecase.NewCodeManager(f.codes, f.plans, f.tm, policy, newTestLogger())
}

func (f *fixture) activation(now time.Time) usecase.ActivationUseCase {
	return f.activationWith(usecase.ActivationPolicy{CommissionPercent: 10, Now: fixedClock(now)})
}

func (f *fixture) activationWith(policy usecase.ActivationPolicy) usecase.ActivationUseCase {
	return usecase.NewActivationUseCase(
		f.codes, f.plans, f.accounts, f.subs, f.commissions, f.tm, f.events,
		policy, newTestLogger(),
	)
}

func (f *fixture) referrals() usecase.ReferralUseCase {
	return usecase.NewReferralUseCase(f.accounts, f.commissions, newTestLogger())
}

func (f *fixture) withdrawalUC(now time.Time) usecase.WithdrawalUseCase {
	return usecase.NewWithdrawalUseCase(f.withdrawals, f.accounts, f.commissions, f.tm,
		usecase.WithdrawalPolicy{MinAmount: 100, Now: fixedClock(now)}, newTestLogger())
}
