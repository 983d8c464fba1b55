package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/lib/pq"
)

var (
	ErrPairingsNotFound     = errors.New("pairings not found")
	ErrPairingsExist        = errors.New("pairings already exist for competition")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match was modified concurrently")
)

// PairingsRepository хранит матчи соревнования как отдельные записи с версией.
type PairingsRepository interface {
	GetByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error)
	// Create stores a freshly generated match list. Versions start at 1.
	Create(ctx context.Context, competitionID string, matches []models.Match) error
	// ApplyMatchUpdates writes the given matches atomically. Each match must carry
	// the version it was read at; on success the slice elements get their new
	// version. A non-nil correction is stored in the same transaction.
	ApplyMatchUpdates(ctx context.Context, competitionID string, updates []models.Match, correction *models.WinnerCorrection) error
	ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error)
	ListCompetitionIDs(ctx context.Context) ([]string, error)
}

type postgresPairingsRepository struct {
	db *sql.DB
}

func NewPostgresPairingsRepository(db *sql.DB) PairingsRepository {
	return &postgresPairingsRepository{db: db}
}

const matchColumns = `match_index, athlete1_id, athlete2_id, round, stage, status, winner_id, mat,
	from1, from2, group_category, group_gender, group_weight, group_index, version, updated_at`

func (r *postgresPairingsRepository) GetByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error) {
	query := `SELECT ` + matchColumns + `
		FROM competition_matches
		WHERE competition_id = $1
		ORDER BY match_index ASC`

	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for competition %s: %w", competitionID, err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrPairingsNotFound
	}

	return &models.Pairings{CompetitionID: competitionID, Matches: matches}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                      models.Match
		athlete1, athlete2     sql.NullString
		winner                 sql.NullString
		from1, from2           sql.NullInt64
		stage, status          string
		category, gender, wcls string
	)
	err := row.Scan(
		&m.Index,
		&athlete1,
		&athlete2,
		&m.Round,
		&stage,
		&status,
		&winner,
		&m.Mat,
		&from1,
		&from2,
		&category,
		&gender,
		&wcls,
		&m.GroupIndex,
		&m.Version,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Stage = models.MatchStage(stage)
	m.Status = models.MatchStatus(status)
	m.Group = models.GroupKey{Category: category, Gender: gender, Weight: wcls}
	m.Athlete1ID = nullStringPtr(athlete1)
	m.Athlete2ID = nullStringPtr(athlete2)
	m.WinnerID = nullStringPtr(winner)
	m.From1 = nullIntPtr(from1)
	m.From2 = nullIntPtr(from2)
	return &m, nil
}

func (r *postgresPairingsRepository) Create(ctx context.Context, competitionID string, matches []models.Match) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM competition_matches WHERE competition_id = $1)`, competitionID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check existing pairings for competition %s: %w", competitionID, err)
		}
		if exists {
			return ErrPairingsExist
		}

		query := `
			INSERT INTO competition_matches
				(competition_id, match_index, athlete1_id, athlete2_id, round, stage, status, winner_id, mat,
				 from1, from2, group_category, group_gender, group_weight, group_index, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
			RETURNING version, updated_at`

		for i := range matches {
			m := &matches[i]
			err := tx.QueryRowContext(ctx, query,
				competitionID,
				m.Index,
				m.Athlete1ID,
				m.Athlete2ID,
				m.Round,
				m.Stage,
				m.Status,
				m.WinnerID,
				m.Mat,
				m.From1,
				m.From2,
				m.Group.Category,
				m.Group.Gender,
				m.Group.Weight,
				m.GroupIndex,
			).Scan(&m.Version, &m.UpdatedAt)
			if err != nil {
				return r.handleMatchError(err)
			}
		}
		return nil
	})
}

func (r *postgresPairingsRepository) ApplyMatchUpdates(ctx context.Context, competitionID string, updates []models.Match, correction *models.WinnerCorrection) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE competition_matches
			SET athlete1_id = $1, athlete2_id = $2, status = $3, winner_id = $4,
			    version = version + 1, updated_at = now()
			WHERE competition_id = $5 AND match_index = $6 AND version = $7
			RETURNING version, updated_at`

		for i := range updates {
			m := &updates[i]
			err := tx.QueryRowContext(ctx, query,
				m.Athlete1ID,
				m.Athlete2ID,
				m.Status,
				m.WinnerID,
				competitionID,
				m.Index,
				m.Version,
			).Scan(&m.Version, &m.UpdatedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return r.classifyMissingUpdate(ctx, tx, competitionID, m.Index)
			}
			if err != nil {
				return fmt.Errorf("failed to update match %d of competition %s: %w", m.Index, competitionID, r.handleMatchError(err))
			}
		}

		if correction != nil {
			if err := insertCorrection(ctx, tx, correction); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postgresPairingsRepository) classifyMissingUpdate(ctx context.Context, exec SQLExecutor, competitionID string, index int) error {
	var version int64
	err := exec.QueryRowContext(ctx,
		`SELECT version FROM competition_matches WHERE competition_id = $1 AND match_index = $2`,
		competitionID, index,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("match %d of competition %s: %w", index, competitionID, ErrMatchNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read version of match %d: %w", index, err)
	}
	return fmt.Errorf("match %d of competition %s (stored version %d): %w", index, competitionID, version, ErrMatchVersionConflict)
}

func insertCorrection(ctx context.Context, exec SQLExecutor, c *models.WinnerCorrection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO match_corrections
			(id, competition_id, match_index, previous_winner_id, new_winner_id, reason, edited_by_role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := exec.ExecContext(ctx, query,
		c.ID,
		c.CompetitionID,
		c.MatchIndex,
		c.PreviousWinnerID,
		c.NewWinnerID,
		c.Reason,
		c.EditedByRole,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction for match %d: %w", c.MatchIndex, err)
	}
	return nil
}

func (r *postgresPairingsRepository) ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error) {
	query := `
		SELECT id, competition_id, match_index, previous_winner_id, new_winner_id, reason, edited_by_role, created_at
		FROM match_corrections
		WHERE competition_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections for competition %s: %w", competitionID, err)
	}
	defer rows.Close()

	corrections := make([]models.WinnerCorrection, 0)
	for rows.Next() {
		var (
			c        models.WinnerCorrection
			previous sql.NullString
			role     string
		)
		if err := rows.Scan(&c.ID, &c.CompetitionID, &c.MatchIndex, &previous, &c.NewWinnerID, &c.Reason, &role, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction row: %w", err)
		}
		c.PreviousWinnerID = nullStringPtr(previous)
		c.EditedByRole = models.Role(role)
		corrections = append(corrections, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during correction rows iteration: %w", err)
	}
	return corrections, nil
}

func (r *postgresPairingsRepository) ListCompetitionIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT competition_id FROM competition_matches ORDER BY competition_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan competition id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresPairingsRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "competition_matches_pkey" {
				return ErrPairingsExist
			}
		case "23514": // check_violation
			return fmt.Errorf("match record rejected by constraint %s: %w", pqErr.Constraint, err)
		}
	}
	return err
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullIntPtr(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}
