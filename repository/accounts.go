package repository

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/pulseapp/pulse-auth"
	"github.com/uptrace/bun"
)

// AccountModel is the Bun model for accounts.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID              uuid.UUID `bun:"id,pk"`
	Email           string    `bun:"email,notnull"`
	PasswordHash    string    `bun:"password_hash,notnull"`
	FullName        string    `bun:"full_name,notnull"`
	Department      string    `bun:"department,notnull"`
	AcademicYear    string    `bun:"academic_year,notnull"`
	Role            string    `bun:"role,notnull"`
	IsHOC           bool      `bun:"is_hoc,notnull"`
	IsHOCPending    bool      `bun:"is_hoc_pending,notnull"`
	Phone           string    `bun:"phone,nullzero"`
	StudentID       string    `bun:"student_id,nullzero"`
	Qualification   string    `bun:"qualification,nullzero"`
	Experience      string    `bun:"experience,nullzero"`
	Office          string    `bun:"office,nullzero"`
	Specializations []string  `bun:"specializations,nullzero"`
	Bio             string    `bun:"bio,nullzero"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

var profileColumns = []string{
	"full_name",
	"department",
	"academic_year",
	"password_hash",
	"phone",
	"student_id",
	"qualification",
	"experience",
	"office",
	"specializations",
	"bio",
	"updated_at",
}

// AccountRepository implements auth.AccountStore. Reads and plain writes go
// through the generic bun repository; state swaps are a conditional UPDATE.
type AccountRepository struct {
	repository.Repository[*AccountModel]
	db  *bun.DB
	now func() time.Time
}

var _ auth.AccountStore = (*AccountRepository)(nil)

// NewAccountRepository creates a new repository.
func NewAccountRepository(db *bun.DB) *AccountRepository {
	repo := repository.NewRepository[*AccountModel](db, repository.ModelHandlers[*AccountModel]{
		NewRecord: func() *AccountModel { return &AccountModel{} },
		GetID: func(m *AccountModel) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *AccountModel, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &AccountRepository{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (r *AccountRepository) WithClock(now func() time.Time) *AccountRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// RunInTx runs f inside a transaction
func (r *AccountRepository) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return r.db.RunInTx(ctx, opts, f)
	}
}

// FindByEmail implements auth.AccountStore.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	email = auth.NormalizeEmail(email)
	model, err := r.Repository.GetByIdentifier(ctx, email)
	if err != nil {
		return nil, mapDBError(err, map[string]any{"email": email})
	}
	return toDomain(model)
}

// FindByID implements auth.AccountStore.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	return r.findByIDTx(ctx, r.db, id)
}

// Create implements auth.AccountStore. The unique index on email is the
// authority for duplicate detection.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}

	model := fromDomain(account)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}

	now := r.now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = model.CreatedAt

	if _, err := r.Repository.CreateTx(ctx, r.db, model); err != nil {
		return nil, mapDBError(err, map[string]any{"email": model.Email})
	}

	return toDomain(model)
}

// Update implements auth.AccountStore. Only profile columns are written so a
// concurrent state swap is never overwritten.
func (r *AccountRepository) Update(ctx context.Context, id uuid.UUID, patch auth.AccountPatch) (*auth.Account, error) {
	var updated *auth.Account

	err := r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := r.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		next := patch.Apply(current)
		next.UpdatedAt = r.now().UTC()

		model := fromDomain(next)
		if _, err := r.Repository.UpdateTx(ctx, tx, model,
			repository.UpdateByID(id.String()),
			profileColumnsOnly,
		); err != nil {
			return mapDBError(err, map[string]any{"id": id.String()})
		}

		updated, err = toDomain(model)
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func profileColumnsOnly(q *bun.UpdateQuery) *bun.UpdateQuery {
	return q.Column(profileColumns...)
}

// CompareAndSwapState implements auth.AccountStore. The flag check and the
// write happen in a single conditional UPDATE.
func (r *AccountRepository) CompareAndSwapState(ctx context.Context, id uuid.UUID, from, to auth.AccountState) (*auth.Account, error) {
	fromRole, fromHOC, fromPending := from.StorageFlags()
	toRole, toHOC, toPending := to.StorageFlags()

	var updated *auth.Account

	err := r.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*AccountModel)(nil)).
			Set("role = ?", string(toRole)).
			Set("is_hoc = ?", toHOC).
			Set("is_hoc_pending = ?", toPending).
			Set("updated_at = ?", r.now().UTC()).
			Where("id = ?", id).
			Where("role = ?", string(fromRole)).
			Where("is_hoc = ?", fromHOC).
			Where("is_hoc_pending = ?", fromPending).
			Exec(ctx)
		if err != nil {
			return mapDBError(err, map[string]any{"id": id.String()})
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return mapDBError(err, map[string]any{"id": id.String()})
		}

		current, err := r.findByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if affected == 0 {
			clone := auth.ErrInvalidState.Clone()
			return clone.WithMetadata(map[string]any{
				"id":      id.String(),
				"current": current.State,
				"from":    from,
				"to":      to,
			})
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

var listByStateSQL = `SELECT * FROM "accounts"
WHERE "role" = ? AND "is_hoc" = ? AND "is_hoc_pending" = ?
ORDER BY "created_at" ASC;`

// ListByState implements auth.AccountStore.
func (r *AccountRepository) ListByState(ctx context.Context, state auth.AccountState) ([]*auth.Account, error) {
	role, isHOC, isPending := state.StorageFlags()

	models, err := r.Repository.RawTx(ctx, r.db, listByStateSQL, string(role), isHOC, isPending)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return []*auth.Account{}, nil
		}
		return nil, mapDBError(err, map[string]any{"state": state})
	}

	accounts := make([]*auth.Account, 0, len(models))
	for _, m := range models {
		account, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *AccountRepository) findByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.Account, error) {
	model, err := r.Repository.GetByIdentifierTx(ctx, tx, id.String())
	if err != nil {
		return nil, mapDBError(err, map[string]any{"id": id.String()})
	}
	return toDomain(model)
}

func toDomain(m *AccountModel) (*auth.Account, error) {
	state, err := auth.StateFromStorage(auth.Role(m.Role), m.IsHOC, m.IsHOCPending)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "corrupt account record").
			WithTextCode(auth.TextCodeInternal).
			WithMetadata(map[string]any{"id": m.ID.String()})
	}

	account := &auth.Account{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FullName:     m.FullName,
		Department:   m.Department,
		AcademicYear: m.AcademicYear,
		State:        state,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.Phone != "" || m.StudentID != "" {
		account.HOC = &auth.HOCProfile{
			Phone:     m.Phone,
			StudentID: m.StudentID,
		}
	}

	if state == auth.StateInstructor {
		account.Instructor = &auth.InstructorProfile{
			Qualification:   m.Qualification,
			Experience:      m.Experience,
			Office:          m.Office,
			Specializations: m.Specializations,
			Bio:             m.Bio,
		}
	}

	return account, nil
}

func fromDomain(a *auth.Account) *AccountModel {
	role, isHOC, isPending := a.State.StorageFlags()

	model := &AccountModel{
		ID:           a.ID,
		Email:        auth.NormalizeEmail(a.Email),
		PasswordHash: a.PasswordHash,
		FullName:     a.FullName,
		Department:   a.Department,
		AcademicYear: a.AcademicYear,
		Role:         string(role),
		IsHOC:        isHOC,
		IsHOCPending: isPending,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}

	if a.HOC != nil {
		model.Phone = a.HOC.Phone
		model.StudentID = a.HOC.StudentID
	}

	if a.Instructor != nil {
		model.Qualification = a.Instructor.Qualification
		model.Experience = a.Instructor.Experience
		model.Office = a.Instructor.Office
		model.Specializations = a.Instructor.Specializations
		model.Bio = a.Instructor.Bio
	}

	return model
}
