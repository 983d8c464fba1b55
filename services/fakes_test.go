package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/repositories"
	"github.com/Dosada05/judo-pairings/storage"
)

// memoryPairingsRepository mimics the versioned stores in memory.
type memoryPairingsRepository struct {
	mu          sync.Mutex
	matches     map[string][]models.Match
	corrections map[string][]models.WinnerCorrection

	// beforeApply runs before version checks; tests use it to simulate a
	// concurrent writer.
	beforeApply func(competitionID string)
	applyErr    error
	applyCalls  int
}

func newMemoryPairingsRepository() *memoryPairingsRepository {
	return &memoryPairingsRepository{
		matches:     make(map[string][]models.Match),
		corrections: make(map[string][]models.WinnerCorrection),
	}
}

func (r *memoryPairingsRepository) GetByCompetition(ctx context.Context, competitionID string) (*models.Pairings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches, ok := r.matches[competitionID]
	if !ok {
		return nil, repositories.ErrPairingsNotFound
	}
	return &models.Pairings{CompetitionID: competitionID, Matches: models.CloneMatches(matches)}, nil
}

func (r *memoryPairingsRepository) Create(ctx context.Context, competitionID string, matches []models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[competitionID]; ok {
		return repositories.ErrPairingsExist
	}
	for i := range matches {
		matches[i].Version = 1
	}
	r.matches[competitionID] = models.CloneMatches(matches)
	return nil
}

func (r *memoryPairingsRepository) ApplyMatchUpdates(ctx context.Context, competitionID string, updates []models.Match, correction *models.WinnerCorrection) error {
	r.mu.Lock()
	r.applyCalls++
	hook := r.beforeApply
	r.mu.Unlock()
	if hook != nil {
		hook(competitionID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	stored, ok := r.matches[competitionID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	for _, u := range updates {
		if u.Index < 0 || u.Index >= len(stored) {
			return repositories.ErrMatchNotFound
		}
		if stored[u.Index].Version != u.Version {
			return repositories.ErrMatchVersionConflict
		}
	}
	for i := range updates {
		updates[i].Version++
		stored[updates[i].Index] = models.CloneMatches(updates[i : i+1])[0]
	}
	if correction != nil {
		r.corrections[competitionID] = append(r.corrections[competitionID], *correction)
	}
	return nil
}

func (r *memoryPairingsRepository) ListCorrections(ctx context.Context, competitionID string) ([]models.WinnerCorrection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.WinnerCorrection, len(r.corrections[competitionID]))
	copy(out, r.corrections[competitionID])
	return out, nil
}

func (r *memoryPairingsRepository) ListCompetitionIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// bump increments the stored version of a match, as another writer would.
func (r *memoryPairingsRepository) bump(competitionID string, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[competitionID][index].Version++
}

type recordedBroadcast struct {
	Room    string
	Message interface{}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []recordedBroadcast
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, recordedBroadcast{Room: roomID, Message: message})
}

func (b *recordingBroadcaster) all() []recordedBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedBroadcast, len(b.messages))
	copy(out, b.messages)
	return out
}

type memoryOfficialRepository struct {
	mu        sync.Mutex
	officials map[string]*models.Official
	nextID    int
}

func newMemoryOfficialRepository() *memoryOfficialRepository {
	return &memoryOfficialRepository{officials: make(map[string]*models.Official)}
}

func (r *memoryOfficialRepository) Create(ctx context.Context, official *models.Official) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.officials[official.Email]; ok {
		return repositories.ErrOfficialEmailConflict
	}
	r.nextID++
	official.ID = r.nextID
	stored := *official
	r.officials[official.Email] = &stored
	return nil
}

func (r *memoryOfficialRepository) GetByEmail(ctx context.Context, email string) (*models.Official, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.officials[email]
	if !ok {
		return nil, repositories.ErrOfficialNotFound
	}
	out := *o
	return &out, nil
}

type uploadedObject struct {
	Key         string
	ContentType string
	Body        []byte
}

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string]uploadedObject
	err     error
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: make(map[string]uploadedObject)}
}

func (u *memoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = uploadedObject{Key: key, ContentType: contentType, Body: body}
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return storage.PublicURL("https://cdn.example.org", key)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// payloadJSON re-encodes a broadcast payload for assertions.
func payloadJSON(v interface{}) map[string]interface{} {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(v)
	out := make(map[string]interface{})
	_ = json.Unmarshal(buf.Bytes(), &out)
	return out
}
