package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	competitionsCollection = "competitions"
	matchesCollection      = "matches"
	correctionsCollection  = "corrections"
)

// firestorePairingsRepository keeps one document per match under
// competitions/{competitionID}/matches/{index}.
type firestorePairingsRepository struct {
	client *firestore.Client
}

func NewFirestorePairingsRepository(client *firestore.Client) PairingsRepository {
	return &firestorePairingsRepository{client: client}
}

type competitionDoc struct {
	CompetitionID string    `firestore:"competition_id"`
	MatchCount    int       `firestore:"match_count"`
	CreatedAt     time.Time `firestore:"created_at"`
}

func (r *firestorePairingsRepository) competition(competitionID string) *firestore.DocumentRef {
	return r.client.Collection(competitionsCollection).Doc(competitionID)
}

func (r *firestorePairingsRepository) matchRef(competitionID string, index int) *firestore.DocumentRef {
	return r.competition(competitionID).Collection(matchesCollection).Doc(fmt.Sprintf("%05d", index))
}

func (r *firestorePairingsRepository) GetByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error) {
	iter := r.competition(competitionID).Collection(matchesCollection).
		OrderBy("index", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	matches := make([]models.Match, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read matches of competition %s: %w", competitionID, err)
		}
		var m models.Match
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("failed to decode match document %s: %w", doc.Ref.ID, err)
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil, ErrPairingsNotFound
	}
	return &models.Pairings{CompetitionID: competitionID, Matches: matches}, nil
}

func (r *firestorePairingsRepository) Create(ctx context.Context, competitionID string, matches []models.Match) error {
	now := time.Now().UTC()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		compRef := r.competition(competitionID)
		_, err := tx.Get(compRef)
		if err == nil {
			return ErrPairingsExist
		}
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to check competition %s: %w", competitionID, err)
		}

		if err := tx.Create(compRef, competitionDoc{
			CompetitionID: competitionID,
			MatchCount:    len(matches),
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		for _, m := range matches {
			m.Version = 1
			m.UpdatedAt = now
			if err := tx.Create(r.matchRef(competitionID, m.Index), m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPairingsExist) {
			return ErrPairingsExist
		}
		return fmt.Errorf("failed to store pairings of competition %s: %w", competitionID, err)
	}

	for i := range matches {
		matches[i].Version = 1
		matches[i].UpdatedAt = now
	}
	return nil
}

func (r *firestorePairingsRepository) ApplyMatchUpdates(ctx context.Context, competitionID string, updates []models.Match, correction *models.WinnerCorrection) error {
	now := time.Now().UTC()
	if correction != nil && correction.CreatedAt.IsZero() {
		correction.CreatedAt = now
	}

	refs := make([]*firestore.DocumentRef, len(updates))
	for i, m := range updates {
		refs[i] = r.matchRef(competitionID, m.Index)
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return fmt.Errorf("failed to read matches: %w", err)
		}
		for i, snap := range snaps {
			if !snap.Exists() {
				return fmt.Errorf("match %d of competition %s: %w", updates[i].Index, competitionID, ErrMatchNotFound)
			}
			raw, err := snap.DataAt("version")
			if err != nil {
				return fmt.Errorf("match %d has no version: %w", updates[i].Index, err)
			}
			stored, ok := raw.(int64)
			if !ok || stored != updates[i].Version {
				return fmt.Errorf("match %d of competition %s (stored version %v): %w", updates[i].Index, competitionID, raw, ErrMatchVersionConflict)
			}
		}

		for i, m := range updates {
			m.Version++
			m.UpdatedAt = now
			if err := tx.Set(refs[i], m); err != nil {
				return err
			}
		}
		if correction != nil {
			ref := r.competition(competitionID).Collection(correctionsCollection).Doc(correction.ID.String())
			if err := tx.Create(ref, correction); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMatchVersionConflict) || errors.Is(err, ErrMatchNotFound) {
			return err
		}
		return fmt.Errorf("failed to update matches of competition %s: %w", competitionID, err)
	}

	for i := range updates {
		updates[i].Version++
		updates[i].UpdatedAt = now
	}
	return nil
}

func (r *firestorePairingsRepository) ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error) {
	iter := r.competition(competitionID).Collection(correctionsCollection).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	corrections := make([]models.WinnerCorrection, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read corrections of competition %s: %w", competitionID, err)
		}
		var c models.WinnerCorrection
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to decode correction %s: %w", doc.Ref.ID, err)
		}
		if id, err := uuid.Parse(doc.Ref.ID); err == nil {
			c.ID = id
		}
		corrections = append(corrections, c)
	}
	return corrections, nil
}

func (r *firestorePairingsRepository) ListCompetitionIDs(ctx context.Context) ([]string, error) {
	refs, err := r.client.Collection(competitionsCollection).DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}
