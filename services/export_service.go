package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/Dosada05/judo-pairings/brackets"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/storage"
	"github.com/gosimple/slug"
)

const medalExportContentType = "text/csv"

var medalExportHeader = []string{"group", "category", "gender", "weight", "medal", "athlete_id", "match_index"}

// MedalExport describes a published standings file.
type MedalExport struct {
	CompetitionID string    `json:"competition_id"`
	Key           string    `json:"key"`
	URL           string    `json:"url"`
	Rows          int       `json:"rows"`
	ExportedAt    time.Time `json:"exported_at"`
}

type MedalExportService interface {
	ExportMedals(ctx context.Context, competitionID string) (*MedalExport, error)
}

type medalExportService struct {
	pairings PairingService
	uploader storage.FileUploader
	logger   *slog.Logger
	now      func() time.Time
}

// NewMedalExportService accepts a nil uploader; exports then fail with
// ErrExportNotConfigured.
func NewMedalExportService(pairings PairingService, uploader storage.FileUploader, logger *slog.Logger) MedalExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &medalExportService{
		pairings: pairings,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

// MedalExportKey builds the object key of a competition's standings. The
// escaped ID keeps keys distinct, the slug keeps the file name readable.
func MedalExportKey(competitionID string) string {
	return "medals/" + url.PathEscape(competitionID) + "/" + slug.Make(competitionID) + "-standings.csv"
}

func (s *medalExportService) ExportMedals(ctx context.Context, competitionID string) (*MedalExport, error) {
	if s.uploader == nil {
		return nil, ErrExportNotConfigured
	}

	// Все три медали считаются по одному снимку сетки.
	pairings, err := s.pairings.GetPairingsByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	entries := make([]models.MedalEntry, 0)
	for _, medal := range []models.MedalType{models.MedalGold, models.MedalSilver, models.MedalBronze} {
		entries = append(entries, brackets.AggregateMedals(pairings.Matches, medal)...)
	}

	body, err := renderMedalCSV(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to render medal table: %w", err)
	}

	key := MedalExportKey(competitionID)
	result, err := s.uploader.Upload(ctx, key, medalExportContentType, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("medal export upload failed", slog.String("competition_id", competitionID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to upload medal table of competition %s: %w", competitionID, err)
	}

	export := &MedalExport{
		CompetitionID: competitionID,
		Key:           result.Key,
		URL:           result.Location,
		Rows:          len(entries),
		ExportedAt:    s.now().UTC(),
	}
	s.logger.Info("medal table exported",
		slog.String("competition_id", competitionID),
		slog.String("key", export.Key),
		slog.Int("rows", export.Rows),
	)
	return export, nil
}

// renderMedalCSV keeps the order of entries: gold, silver, bronze and within
// each medal by group.
func renderMedalCSV(entries []models.MedalEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(medalExportHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		record := []string{
			e.Group.Slug(),
			e.Group.Category,
			e.Group.Gender,
			e.Group.Weight,
			string(e.Medal),
			e.AthleteID,
			strconv.Itoa(e.MatchIndex),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
