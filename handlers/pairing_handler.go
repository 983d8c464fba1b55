package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dosada05/judo-pairings/brackets"
	"github.com/Dosada05/judo-pairings/middleware"
	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/services"
)

type PairingHandler struct {
	pairingService services.PairingService
	exportService  services.MedalExportService
}

func NewPairingHandler(pairingService services.PairingService, exportService services.MedalExportService) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		exportService:  exportService,
	}
}

// entryRequest: участник в запросе генерации. Группа задаётся либо полями,
// либо одной строкой "category/gender/weight".
type entryRequest struct {
	AthleteID string `json:"athlete_id"`
	Category  string `json:"category,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Group     string `json:"group,omitempty"`
}

type generatePairingsRequest struct {
	Entries  []entryRequest `json:"entries"`
	MatCount int            `json:"mat_count"`
	Shuffle  bool           `json:"shuffle"`
}

type winnerRequest struct {
	WinnerID string `json:"winner_id"`
	Reason   string `json:"reason,omitempty"`
}

func (h *PairingHandler) GetPairings(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pairings, err := h.pairingService.GetPairingsByCompetition(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pairings, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) GeneratePairings(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	role, err := middleware.GetRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req generatePairingsRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := services.GeneratePairingsInput{
		Entries:  make([]brackets.Entry, 0, len(req.Entries)),
		MatCount: req.MatCount,
		Shuffle:  req.Shuffle,
	}
	for i, e := range req.Entries {
		group, err := e.groupKey()
		if err != nil {
			unprocessableResponse(w, r, fmt.Errorf("entry %d: %w", i, err))
			return
		}
		input.Entries = append(input.Entries, brackets.Entry{AthleteID: strings.TrimSpace(e.AthleteID), Group: group})
	}

	pairings, err := h.pairingService.GeneratePairings(r.Context(), competitionID, input, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, pairings, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (e entryRequest) groupKey() (models.GroupKey, error) {
	if e.Group != "" {
		return models.ParseGroupKey(e.Group)
	}
	key := models.GroupKey{
		Category: strings.TrimSpace(e.Category),
		Gender:   strings.TrimSpace(e.Gender),
		Weight:   strings.TrimSpace(e.Weight),
	}
	if key.Category == "" || key.Gender == "" || key.Weight == "" {
		return models.GroupKey{}, errors.New("category, gender and weight are required")
	}
	return key, nil
}

func (h *PairingHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.pairingService.GetCompetitionBoard(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, board, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) GetMatchGate(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchIndex, err := getIndexFromURL(r, "matchIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gate, err := h.pairingService.EvaluateMatch(r.Context(), competitionID, matchIndex)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, gate, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) ConfirmWinner(w http.ResponseWriter, r *http.Request) {
	competitionID, matchIndex, req, role, ok := h.readWinnerRequest(w, r)
	if !ok {
		return
	}

	update, err := h.pairingService.SetMatchWinner(r.Context(), competitionID, matchIndex, req.WinnerID, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, update, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) CorrectWinner(w http.ResponseWriter, r *http.Request) {
	competitionID, matchIndex, req, role, ok := h.readWinnerRequest(w, r)
	if !ok {
		return
	}

	update, err := h.pairingService.EditMatchWinner(r.Context(), competitionID, matchIndex, req.WinnerID, req.Reason, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, update, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) readWinnerRequest(w http.ResponseWriter, r *http.Request) (string, int, winnerRequest, models.Role, bool) {
	var req winnerRequest

	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return "", 0, req, "", false
	}
	matchIndex, err := getIndexFromURL(r, "matchIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return "", 0, req, "", false
	}
	role, err := middleware.GetRoleFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return "", 0, req, "", false
	}
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return "", 0, req, "", false
	}
	if strings.TrimSpace(req.WinnerID) == "" {
		unprocessableResponse(w, r, errors.New("winner_id is required"))
		return "", 0, req, "", false
	}
	return competitionID, matchIndex, req, role, true
}

// GetMedals отдаёт медали одного типа (?type=gold|silver|bronze)
// или пьедесталы всех групп, если тип не указан.
func (h *PairingHandler) GetMedals(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	medalType := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if medalType == "" {
		podiums, err := h.pairingService.GetPodiums(r.Context(), competitionID)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"podiums": podiums}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	medals, err := h.pairingService.GetMedals(r.Context(), competitionID, models.MedalType(medalType))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"medal": medalType, "entries": medals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) ListCorrections(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	corrections, err := h.pairingService.ListCorrections(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"corrections": corrections}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PairingHandler) ExportMedals(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getCompetitionID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	export, err := h.exportService.ExportMedals(r.Context(), competitionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, export, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
