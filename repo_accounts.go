package hospital

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultSearchLimit caps patient search results
const DefaultSearchLimit = 12

// CodeUpdate sets or clears a one-time code and its expiry.
// The zero value clears both columns.
type CodeUpdate struct {
	Value     string
	ExpiresAt time.Time
}

// SetCode returns a CodeUpdate carrying value and expiry
func SetCode(value string, expiresAt time.Time) *CodeUpdate {
	return &CodeUpdate{Value: value, ExpiresAt: expiresAt}
}

// ClearCode returns a CodeUpdate that removes the stored code
func ClearCode() *CodeUpdate {
	return &CodeUpdate{}
}

// AccountPatch is a partial update. Nil fields are left untouched.
type AccountPatch struct {
	FirstName       *string
	LastName        *string
	Phone           *string
	Age             *int
	Gender          *Gender
	Password        *string
	IsVerified      *bool
	IsActivated     *bool
	IsGoogleUser    *bool
	OTP             *CodeUpdate
	ActivationToken *CodeUpdate
}

// IsEmpty reports whether the patch would write nothing
func (p AccountPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.Age == nil && p.Gender == nil && (p.Password == nil || *p.Password == "") &&
		p.IsVerified == nil && p.IsActivated == nil && p.IsGoogleUser == nil &&
		p.OTP == nil && p.ActivationToken == nil
}

type Accounts interface {
	repository.Repository[*Account]

	FindByEmail(ctx context.Context, email string, role Role) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string, role Role) (*Account, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)

	Register(ctx context.Context, record *Account, password string) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Account, password string) (*Account, error)

	Patch(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error)
	PatchTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch AccountPatch) (*Account, error)

	SearchPatients(ctx context.Context, term string, limit int) ([]*Account, error)

	Remove(ctx context.Context, id uuid.UUID) error
	RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	repository.Repository[*Account]
	db     *bun.DB
	hasher PasswordHasher
	now    func() time.Time
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

type AccountsOption func(*accounts)

// WithAccountsHasher overrides the bcrypt hasher
func WithAccountsHasher(h PasswordHasher) AccountsOption {
	return func(a *accounts) {
		if h != nil {
			a.hasher = h
		}
	}
}

// WithAccountsClock injects the clock used for updated_at
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
		hasher:     BcryptHasher{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

// NormalizeEmail trims and lower-cases an address for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *accounts) FindByEmail(ctx context.Context, email string, role Role) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email, role)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string, role Role) (*Account, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"email": email,
			})
	}

	record := &Account{}
	q := tx.NewSelect().
		Model(record).
		Where("LOWER(?TableAlias.email) = ?", normalized)

	if role != "" {
		q = q.Where("?TableAlias.role = ?", role)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if IsNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": normalized,
					"role":  string(role),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Register(ctx context.Context, record *Account, password string) (*Account, error) {
	return a.RegisterTx(ctx, a.db, record, password)
}

// RegisterTx inserts a new account, hashing password when one is given
func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, record *Account, password string) (*Account, error) {
	if password != "" {
		hash, err := a.hasher.HashPassword(password)
		if err != nil {
			return nil, err
		}
		record.PasswordHash = hash
	}

	prepareAccountDefaults(record)

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *accounts) Patch(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error) {
	return a.PatchTx(ctx, a.db, id, patch)
}

// PatchTx writes only the fields set on patch and returns the fresh record
func (a *accounts) PatchTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch AccountPatch) (*Account, error) {
	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Where("id = ?", id)

	if patch.FirstName != nil {
		q = q.Set("first_name = ?", *patch.FirstName)
	}
	if patch.LastName != nil {
		q = q.Set("last_name = ?", *patch.LastName)
	}
	if patch.Phone != nil {
		q = q.Set("phone = ?", *patch.Phone)
	}
	if patch.Age != nil {
		q = q.Set("age = ?", *patch.Age)
	}
	if patch.Gender != nil {
		q = q.Set("gender = ?", string(*patch.Gender))
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := a.hasher.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		q = q.Set("password_hash = ?", hash)
	}
	if patch.IsVerified != nil {
		q = q.Set("is_verified = ?", *patch.IsVerified)
	}
	if patch.IsActivated != nil {
		q = q.Set("is_account_activated = ?", *patch.IsActivated)
	}
	if patch.IsGoogleUser != nil {
		q = q.Set("is_google_user = ?", *patch.IsGoogleUser)
	}
	if patch.OTP != nil {
		q = setCode(q, "otp", "otp_expiry", patch.OTP)
	}
	if patch.ActivationToken != nil {
		q = setCode(q, "activation_token", "activation_token_expiry", patch.ActivationToken)
	}

	q = q.Set("updated_at = ?", a.now())

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return a.FindByIDTx(ctx, tx, id)
}

func (a *accounts) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *accounts) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func setCode(q *bun.UpdateQuery, valueColumn, expiryColumn string, code *CodeUpdate) *bun.UpdateQuery {
	if code.Value == "" {
		return q.
			Set("? = NULL", bun.Ident(valueColumn)).
			Set("? = NULL", bun.Ident(expiryColumn))
	}
	return q.
		Set("? = ?", bun.Ident(valueColumn), code.Value).
		Set("? = ?", bun.Ident(expiryColumn), code.ExpiresAt)
}

// SearchPatients matches term as a case-insensitive substring of
// first name, last name, email or phone
func (a *accounts) SearchPatients(ctx context.Context, term string, limit int) ([]*Account, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Account{}, nil
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"

	records := make([]*Account, 0, limit)
	err := a.db.NewSelect().
		Model(&records).
		Column("id", "first_name", "last_name", "email", "phone", "is_account_activated").
		Where("?TableAlias.role = ?", RolePatient).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr(`LOWER(?TableAlias.first_name) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(?TableAlias.last_name) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(?TableAlias.email) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(?TableAlias.phone) LIKE ? ESCAPE '\'`, pattern)
		}).
		OrderExpr("?TableAlias.first_name ASC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accounts) Remove(ctx context.Context, id uuid.UUID) error {
	return a.RemoveTx(ctx, a.db, id)
}

func (a *accounts) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// IsNotFound reports a missing row from either the repository or the driver
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RolePatient
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
