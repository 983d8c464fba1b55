package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/lib/pq"
)

var (
	ErrOfficialNotFound      = errors.New("official not found")
	ErrOfficialEmailConflict = errors.New("official email conflict")
)

type OfficialRepository interface {
	Create(ctx context.Context, official *models.Official) error
	GetByEmail(ctx context.Context, email string) (*models.Official, error)
}

type postgresOfficialRepository struct {
	db *sql.DB
}

func NewPostgresOfficialRepository(db *sql.DB) OfficialRepository {
	return &postgresOfficialRepository{db: db}
}

func (r *postgresOfficialRepository) Create(ctx context.Context, official *models.Official) error {
	query := `
		INSERT INTO officials (email, full_name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(official.Email),
		official.FullName,
		official.Role,
		official.PasswordHash,
	).Scan(&official.ID, &official.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "officials_email_key" {
			return ErrOfficialEmailConflict
		}
		return fmt.Errorf("failed to insert official: %w", err)
	}
	return nil
}

func (r *postgresOfficialRepository) GetByEmail(ctx context.Context, email string) (*models.Official, error) {
	query := `
		SELECT id, email, full_name, role, password_hash, created_at
		FROM officials
		WHERE email = $1`

	var (
		official models.Official
		role     string
	)
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&official.ID,
		&official.Email,
		&official.FullName,
		&role,
		&official.PasswordHash,
		&official.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfficialNotFound
		}
		return nil, fmt.Errorf("failed to scan official by email: %w", err)
	}
	official.Role = models.Role(role)
	return &official, nil
}
