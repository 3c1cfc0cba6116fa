// File: internal/usecase/redemption_code_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"xpanel/internal/domain"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/logging"
	"xpanel/internal/infra/metrics"
)

// Compile-time check
var _ CodeManager = (*codeManager)(nil)

// CodePolicy holds the generation limits. Zero values fall back to the defaults below.
type CodePolicy struct {
	CodeLength   int
	MaxRetries   int
	MaxBatch     int
	MaxPrefixLen int
	Rand         io.Reader
	Now          func() time.Time
}

func (p CodePolicy) withDefaults() CodePolicy {
	if p.CodeLength <= 0 {
		p.CodeLength = 12
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 5
	}
	if p.MaxBatch <= 0 {
		p.MaxBatch = 10000
	}
	if p.MaxPrefixLen <= 0 {
		p.MaxPrefixLen = 16
	}
	if p.Rand == nil {
		p.Rand = rand.Reader
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

type GenerateRequest struct {
	PlanID    int64
	Quantity  int
	Prefix    string
	ExpiresAt *time.Time
	CreatedBy *int64
}

// GeneratedBatch lists the committed codes in generation order.
type GeneratedBatch struct {
	BatchID string
	PlanID  int64
	Codes   []string
}

type CodeQuery struct {
	Page
	Status model.CodeStatus
	Search string
	PlanID int64
}

// CodeManager issues and administers redemption codes.
type CodeManager interface {
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedBatch, error)
	Lookup(ctx context.Context, code string) (*model.RedemptionCode, error)
	List(ctx context.Context, q CodeQuery) ([]*model.RedemptionCode, int, error)
	Delete(ctx context.Context, code string) error
}

type codeManager struct {
	codes  repository.RedemptionCodeRepository
	plans  repository.PlanRepository
	tm     repository.TransactionManager
	policy CodePolicy
	log    *zerolog.Logger
}

func NewCodeManager(
	codes repository.RedemptionCodeRepository,
	plans repository.PlanRepository,
	tm repository.TransactionManager,
	policy CodePolicy,
	logger *zerolog.Logger,
) *codeManager {
	return &codeManager{
		codes:  codes,
		plans:  plans,
		tm:     tm,
		policy: policy.withDefaults(),
		log:    logger,
	}
}

func (m *codeManager) validate(req GenerateRequest) error {
	if req.PlanID <= 0 {
		return invalidArg("plan_id is required")
	}
	if req.Quantity < 1 || req.Quantity > m.policy.MaxBatch {
		return invalidArg("quantity must be between 1 and %d", m.policy.MaxBatch)
	}
	if len(req.Prefix) > m.policy.MaxPrefixLen || !prefixPattern.MatchString(req.Prefix) {
		return invalidArg("prefix must be at most %d alphanumeric characters", m.policy.MaxPrefixLen)
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(m.policy.Now()) {
		return invalidArg("expires_at must be in the future")
	}
	return nil
}

// Generate creates Quantity unused codes for a plan in one transaction. Either the
// whole batch is committed or nothing is.
func (m *codeManager) Generate(ctx context.Context, req GenerateRequest) (*GeneratedBatch, error) {
	defer logging.TraceDuration(m.log, "CodeManager.Generate")()

	if err := m.validate(req); err != nil {
		return nil, err
	}

	batch := &GeneratedBatch{
		BatchID: ulid.Make().String(),
		PlanID:  req.PlanID,
	}

	err := m.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := m.plans.FindByID(ctx, tx, req.PlanID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}

		codes := make([]string, 0, req.Quantity)
		for i := 0; i < req.Quantity; i++ {
			code, err := m.insertUnique(ctx, tx, req, batch.BatchID)
			if err != nil {
				return err
			}
			codes = append(codes, code)
		}
		batch.Codes = codes
		return nil
	})
	if err != nil {
		log := logging.With(ctx, m.log)
		log.Error().Err(err).Str("batch_id", batch.BatchID).Int64("plan_id", req.PlanID).Msg("code generation failed")
		return nil, translateErr(err)
	}

	metrics.AddCodesGenerated(len(batch.Codes))
	log := logging.With(ctx, m.log)
	log.Info().
		Str("batch_id", batch.BatchID).
		Int64("plan_id", req.PlanID).
		Int("quantity", len(batch.Codes)).
		Msg("redemption codes generated")
	return batch, nil
}

// insertUnique draws candidates until one is stored or the retry budget runs out.
func (m *codeManager) insertUnique(ctx context.Context, tx repository.Tx, req GenerateRequest, batchID string) (string, error) {
	for attempt := 0; attempt < m.policy.MaxRetries; attempt++ {
		candidate, err := generateCandidate(m.policy.Rand, req.Prefix, m.policy.CodeLength)
		if err != nil {
			return "", errors.Join(domain.ErrCodeGeneration, err)
		}
		rc, err := model.NewRedemptionCode(candidate, req.PlanID, batchID, req.ExpiresAt, req.CreatedBy)
		if err != nil {
			return "", err
		}
		ok, err := m.codes.Insert(ctx, tx, rc)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
		m.log.Debug().Str("batch_id", batchID).Int("attempt", attempt+1).Msg("code collision, redrawing")
	}
	return "", domain.ErrCodeGeneration
}

func (m *codeManager) Lookup(ctx context.Context, code string) (*model.RedemptionCode, error) {
	if code == "" {
		return nil, invalidArg("code is required")
	}
	rc, err := m.codes.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, translateErr(err)
	}
	return rc, nil
}

func (m *codeManager) List(ctx context.Context, q CodeQuery) ([]*model.RedemptionCode, int, error) {
	defer logging.TraceDuration(m.log, "CodeManager.List")()

	switch q.Status {
	case "", model.CodeStatusUnused, model.CodeStatusUsed:
	default:
		return nil, 0, invalidArg("unknown status %q", q.Status)
	}

	page := q.Page.Normalize()
	codes, total, err := m.codes.List(ctx, repository.NoTX, model.CodeFilter{
		Status: q.Status,
		Search: q.Search,
		PlanID: q.PlanID,
		Offset: page.Offset(),
		Limit:  page.Limit,
	})
	if err != nil {
		return nil, 0, translateErr(err)
	}
	return codes, total, nil
}

// Delete removes a code that nobody has redeemed yet.
func (m *codeManager) Delete(ctx context.Context, code string) error {
	if code == "" {
		return invalidArg("code is required")
	}
	err := m.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		rc, err := m.codes.FindByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrCodeNotFound
			}
			return err
		}
		if rc.IsUsed() {
			return domain.ErrCodeAlreadyUsed
		}
		ok, err := m.codes.DeleteUnused(ctx, tx, code)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrCodeAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return translateErr(err)
	}
	log := logging.With(ctx, m.log)
	log.Info().Str("code", code).Msg("redemption code deleted")
	return nil
}
