package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Dosada05/judo-pairings/brackets"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultMaxWriteAttempts = 3

var (
	confirmRoles  = []models.Role{models.RoleTableOfficial, models.RoleSupervisor, models.RoleAdmin}
	correctRoles  = []models.Role{models.RoleSupervisor, models.RoleAdmin}
	generateRoles = []models.Role{models.RoleSupervisor, models.RoleAdmin}
)

// Broadcaster publishes live updates to the clients watching a competition.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type PairingService interface {
	GetPairingsByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error)
	EvaluateMatch(ctx context.Context, competitionID string, matchIndex int) (*MatchGate, error)
	SetMatchWinner(ctx context.Context, competitionID string, matchIndex int, winnerID string, confirmedByRole models.Role) (*MatchUpdate, error)
	EditMatchWinner(ctx context.Context, competitionID string, matchIndex int, winnerID, reason string, editedByRole models.Role) (*MatchUpdate, error)
	GeneratePairings(ctx context.Context, competitionID string, input GeneratePairingsInput, role models.Role) (*models.Pairings, error)
	GetMedals(ctx context.Context, competitionID string, medal models.MedalType) ([]models.MedalEntry, error)
	GetPodiums(ctx context.Context, competitionID string) ([]models.GroupPodium, error)
	ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error)
	GetCompetitionBoard(ctx context.Context, competitionID string) (*CompetitionBoard, error)
}

// MatchGate is the confirmability of one match as shown to a table official.
type MatchGate struct {
	CompetitionID string             `json:"competition_id"`
	MatchIndex    int                `json:"match_index"`
	Status        models.MatchStatus `json:"status"`
	IsBye         bool               `json:"is_bye"`
	brackets.GateDecision
}

// MatchUpdate is the outcome of a confirmation or correction.
type MatchUpdate struct {
	CompetitionID   string                   `json:"competition_id"`
	Match           models.Match             `json:"match"`
	Advanced        []models.Match           `json:"advanced,omitempty"`
	StaleDependents []int                    `json:"stale_dependents,omitempty"`
	Correction      *models.WinnerCorrection `json:"correction,omitempty"`
}

type GeneratePairingsInput struct {
	Entries  []brackets.Entry `json:"entries"`
	MatCount int              `json:"mat_count"`
	Shuffle  bool             `json:"shuffle"`
}

// CompetitionBoard: сводка соревнования для табло и планшетов судей.
type CompetitionBoard struct {
	CompetitionID string                    `json:"competition_id"`
	Matches       []models.Match            `json:"matches"`
	Confirmable   []int                     `json:"confirmable"`
	Podiums       []models.GroupPodium      `json:"podiums"`
	Corrections   []models.WinnerCorrection `json:"corrections"`
}

type PairingServiceOption func(*pairingService)

// WithMaxWriteAttempts bounds how often a write is re-evaluated after a
// concurrent modification.
func WithMaxWriteAttempts(n int) PairingServiceOption {
	return func(s *pairingService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithDefaultMatCount(n int) PairingServiceOption {
	return func(s *pairingService) {
		s.matCount = n
	}
}

func WithClock(now func() time.Time) PairingServiceOption {
	return func(s *pairingService) {
		s.now = now
	}
}

type pairingService struct {
	repo        repositories.PairingsRepository
	generator   brackets.BracketGenerator
	broadcaster Broadcaster
	logger      *slog.Logger
	matCount    int
	maxAttempts int
	now         func() time.Time
}

func NewPairingService(
	repo repositories.PairingsRepository,
	generator brackets.BracketGenerator,
	broadcaster Broadcaster,
	logger *slog.Logger,
	opts ...PairingServiceOption,
) PairingService {
	s := &pairingService{
		repo:        repo,
		generator:   generator,
		broadcaster: broadcaster,
		logger:      logger,
		matCount:    brackets.DefaultMatCount,
		maxAttempts: defaultMaxWriteAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *pairingService) GetPairingsByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error) {
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, ErrCompetitionIDRequired
	}
	pairings, err := s.repo.GetByCompetition(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrPairingsNotFound) {
			return nil, fmt.Errorf("competition %s: %w", competitionID, ErrPairingsNotFound)
		}
		return nil, fmt.Errorf("failed to load pairings of competition %s: %w", competitionID, err)
	}
	return pairings, nil
}

func (s *pairingService) EvaluateMatch(ctx context.Context, competitionID string, matchIndex int) (*MatchGate, error) {
	pairings, err := s.GetPairingsByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	decision, err := brackets.EvaluateGate(pairings.Matches, matchIndex)
	if err != nil {
		return nil, mapBracketError(err)
	}
	m := &pairings.Matches[matchIndex]
	return &MatchGate{
		CompetitionID: pairings.CompetitionID,
		MatchIndex:    matchIndex,
		Status:        m.Status,
		IsBye:         m.IsBye(),
		GateDecision:  decision,
	}, nil
}

func (s *pairingService) SetMatchWinner(ctx context.Context, competitionID string, matchIndex int, winnerID string, confirmedByRole models.Role) (*MatchUpdate, error) {
	if !roleAllowed(confirmedByRole, confirmRoles) {
		return nil, fmt.Errorf("confirm winner as %q: %w", confirmedByRole, ErrRoleNotAllowed)
	}
	winnerID = strings.TrimSpace(winnerID)
	if winnerID == "" {
		return nil, fmt.Errorf("%w: winner id is required", ErrValidationFailed)
	}

	update, err := s.writeWithRetry(ctx, competitionID, matchIndex, func(matches []models.Match) (brackets.Resolution, *models.WinnerCorrection, error) {
		res, err := brackets.SetWinner(matches, matchIndex, winnerID)
		return res, nil, err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match winner confirmed",
		slog.String("competition_id", update.CompetitionID),
		slog.Int("match_index", matchIndex),
		slog.String("winner_id", winnerID),
		slog.String("role", string(confirmedByRole)),
		slog.Int("advanced", len(update.Advanced)),
	)
	s.broadcast(update.CompetitionID, brackets.MessageMatchConfirmed, update)
	return update, nil
}

func (s *pairingService) EditMatchWinner(ctx context.Context, competitionID string, matchIndex int, winnerID, reason string, editedByRole models.Role) (*MatchUpdate, error) {
	if !roleAllowed(editedByRole, correctRoles) {
		return nil, fmt.Errorf("correct winner as %q: %w", editedByRole, ErrRoleNotAllowed)
	}
	winnerID = strings.TrimSpace(winnerID)
	if winnerID == "" {
		return nil, fmt.Errorf("%w: winner id is required", ErrValidationFailed)
	}

	update, err := s.writeWithRetry(ctx, competitionID, matchIndex, func(matches []models.Match) (brackets.Resolution, *models.WinnerCorrection, error) {
		res, err := brackets.EditWinner(matches, matchIndex, winnerID, reason)
		if err != nil {
			return res, nil, err
		}
		var correction *models.WinnerCorrection
		for _, e := range res.Effects {
			if e.Kind != brackets.EffectRecordCorrection {
				continue
			}
			correction = &models.WinnerCorrection{
				ID:               uuid.New(),
				CompetitionID:    competitionID,
				MatchIndex:       e.MatchIndex,
				PreviousWinnerID: e.PreviousWinnerID,
				NewWinnerID:      e.WinnerID,
				Reason:           e.Reason,
				EditedByRole:     editedByRole,
				CreatedAt:        s.now().UTC(),
			}
		}
		return res, correction, nil
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{
		slog.String("competition_id", update.CompetitionID),
		slog.Int("match_index", matchIndex),
		slog.String("winner_id", winnerID),
		slog.String("role", string(editedByRole)),
	}
	if update.Correction != nil {
		attrs = append(attrs, slog.String("reason", update.Correction.Reason))
	}
	s.logger.Info("match winner corrected", attrs...)
	if len(update.StaleDependents) > 0 {
		// Исправление не каскадируется на последующие матчи.
		s.logger.Warn("downstream matches keep the previous participant after correction",
			slog.String("competition_id", update.CompetitionID),
			slog.Int("match_index", matchIndex),
			slog.Any("dependents", update.StaleDependents),
		)
	}
	s.broadcast(update.CompetitionID, brackets.MessageMatchCorrected, update)
	return update, nil
}

type resolveFunc func(matches []models.Match) (brackets.Resolution, *models.WinnerCorrection, error)

// writeWithRetry runs read, resolve and write. A version conflict means another
// official wrote in between, so the decision is re-made on fresh data.
func (s *pairingService) writeWithRetry(ctx context.Context, competitionID string, matchIndex int, resolve resolveFunc) (*MatchUpdate, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		pairings, err := s.GetPairingsByCompetition(ctx, competitionID)
		if err != nil {
			return nil, err
		}

		res, correction, err := resolve(pairings.Matches)
		if err != nil {
			return nil, mapBracketError(err)
		}

		updates := make([]models.Match, 0, len(res.Changed))
		for _, idx := range res.Changed {
			updates = append(updates, res.Matches[idx])
		}

		err = s.repo.ApplyMatchUpdates(ctx, pairings.CompetitionID, updates, correction)
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			s.logger.Warn("concurrent match update, re-evaluating",
				slog.String("competition_id", pairings.CompetitionID),
				slog.Int("match_index", matchIndex),
				slog.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			s.logger.Error("failed to persist match update",
				slog.String("competition_id", pairings.CompetitionID),
				slog.Int("match_index", matchIndex),
				slog.Any("error", err),
			)
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return nil, fmt.Errorf("match %d: %w", matchIndex, ErrMatchNotFound)
			}
			return nil, fmt.Errorf("failed to save match %d: %w", matchIndex, err)
		}

		update := &MatchUpdate{CompetitionID: pairings.CompetitionID, Correction: correction}
		for _, u := range updates {
			if u.Index == matchIndex {
				update.Match = u
			} else {
				update.Advanced = append(update.Advanced, u)
			}
		}
		if correction != nil {
			update.StaleDependents = res.Dependents
		}
		return update, nil
	}
	return nil, fmt.Errorf("match %d of competition %s after %d attempts: %w", matchIndex, competitionID, s.maxAttempts, ErrConcurrentUpdate)
}

func (s *pairingService) GeneratePairings(ctx context.Context, competitionID string, input GeneratePairingsInput, role models.Role) (*models.Pairings, error) {
	if !roleAllowed(role, generateRoles) {
		return nil, fmt.Errorf("generate pairings as %q: %w", role, ErrRoleNotAllowed)
	}
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, ErrCompetitionIDRequired
	}
	if len(input.Entries) == 0 {
		return nil, ErrNoEntries
	}

	entries := input.Entries
	if input.Shuffle {
		entries = shuffleWithinGroups(entries)
	}
	matCount := input.MatCount
	if matCount == 0 {
		matCount = s.matCount
	}

	matches, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		CompetitionID: competitionID,
		Entries:       entries,
		MatCount:      matCount,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrInvalidEntry) || errors.Is(err, brackets.ErrInvalidMatCount) || errors.Is(err, brackets.ErrNotEnoughAthletes) {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		return nil, fmt.Errorf("failed to generate pairings for competition %s: %w", competitionID, err)
	}

	if err := s.repo.Create(ctx, competitionID, matches); err != nil {
		if errors.Is(err, repositories.ErrPairingsExist) {
			return nil, fmt.Errorf("competition %s: %w", competitionID, ErrPairingsExist)
		}
		s.logger.Error("failed to store generated pairings", slog.String("competition_id", competitionID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to store pairings of competition %s: %w", competitionID, err)
	}

	pairings := &models.Pairings{CompetitionID: competitionID, Matches: matches}
	s.logger.Info("pairings generated",
		slog.String("competition_id", competitionID),
		slog.Int("matches", len(matches)),
		slog.Int("entries", len(entries)),
		slog.String("generator", s.generator.GetName()),
	)
	s.broadcast(competitionID, brackets.MessagePairingsGenerated, pairings)
	return pairings, nil
}

func (s *pairingService) GetMedals(ctx context.Context, competitionID string, medal models.MedalType) ([]models.MedalEntry, error) {
	if !medal.Valid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMedalType, medal)
	}
	pairings, err := s.GetPairingsByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return brackets.AggregateMedals(pairings.Matches, medal), nil
}

func (s *pairingService) GetPodiums(ctx context.Context, competitionID string) ([]models.GroupPodium, error) {
	pairings, err := s.GetPairingsByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return brackets.Podiums(pairings.Matches), nil
}

func (s *pairingService) ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error) {
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, ErrCompetitionIDRequired
	}
	corrections, err := s.repo.ListCorrections(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections of competition %s: %w", competitionID, err)
	}
	return corrections, nil
}

func (s *pairingService) GetCompetitionBoard(ctx context.Context, competitionID string) (*CompetitionBoard, error) {
	board := &CompetitionBoard{CompetitionID: strings.TrimSpace(competitionID)}
	var pairings *models.Pairings

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.GetPairingsByCompetition(gCtx, competitionID)
		if err != nil {
			return err
		}
		pairings = p
		return nil
	})
	g.Go(func() error {
		corrections, err := s.ListCorrections(gCtx, competitionID)
		if err != nil {
			return err
		}
		board.Corrections = corrections
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board.Matches = pairings.Matches
	board.Podiums = brackets.Podiums(pairings.Matches)
	board.Confirmable = make([]int, 0)
	for i := range pairings.Matches {
		m := &pairings.Matches[i]
		if m.IsFinished() || m.Athlete1ID == nil || m.Athlete2ID == nil {
			continue
		}
		if decision, err := brackets.EvaluateGate(pairings.Matches, i); err == nil && decision.CanConfirm {
			board.Confirmable = append(board.Confirmable, i)
		}
	}
	return board, nil
}

func (s *pairingService) broadcast(competitionID, messageType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	room := brackets.RoomForCompetition(competitionID)
	s.broadcaster.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    messageType,
		Payload: payload,
		RoomID:  room,
	})
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func mapBracketError(err error) error {
	if errors.Is(err, brackets.ErrMatchIndexOutOfRange) {
		return fmt.Errorf("%w: %w", ErrMatchNotFound, err)
	}
	return err
}

// shuffleWithinGroups randomises seeding inside every group and keeps the
// order in which groups first appear.
func shuffleWithinGroups(entries []brackets.Entry) []brackets.Entry {
	order := make([]models.GroupKey, 0)
	byGroup := make(map[models.GroupKey][]brackets.Entry)
	for _, e := range entries {
		if _, ok := byGroup[e.Group]; !ok {
			order = append(order, e.Group)
		}
		byGroup[e.Group] = append(byGroup[e.Group], e)
	}

	out := make([]brackets.Entry, 0, len(entries))
	for _, key := range order {
		group := byGroup[key]
		rand.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		out = append(out, group...)
	}
	return out
}
