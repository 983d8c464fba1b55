package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/judo-pairings/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	ids []string
	err error
}

func (l staticLister) ListCompetitionIDs(ctx context.Context) ([]string, error) {
	return l.ids, l.err
}

type recordingExporter struct {
	mu       sync.Mutex
	exported []string
	failFor  map[string]bool
}

func (e *recordingExporter) ExportMedals(ctx context.Context, competitionID string) (*services.MedalExport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failFor[competitionID] {
		return nil, errors.New("upload failed")
	}
	e.exported = append(e.exported, competitionID)
	return &services.MedalExport{CompetitionID: competitionID}, nil
}

func (e *recordingExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.exported)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMedalExportWorker_RunOnceContinuesAfterFailure(t *testing.T) {
	exporter := &recordingExporter{failFor: map[string]bool{"b": true}}
	worker, err := NewMedalExportWorker(staticLister{ids: []string{"a", "b", "c"}}, exporter, time.Minute, quietLogger())
	require.NoError(t, err)

	n := worker.RunOnce(context.Background())

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, exporter.exported)
}

func TestMedalExportWorker_ListFailure(t *testing.T) {
	exporter := &recordingExporter{}
	worker, err := NewMedalExportWorker(staticLister{err: errors.New("db down")}, exporter, time.Minute, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, worker.RunOnce(context.Background()))
	assert.Empty(t, exporter.exported)
}

func TestMedalExportWorker_InvalidInterval(t *testing.T) {
	_, err := NewMedalExportWorker(staticLister{}, &recordingExporter{}, 0, quietLogger())
	assert.Error(t, err)
}

func TestMedalExportWorker_Scheduled(t *testing.T) {
	exporter := &recordingExporter{}
	worker, err := NewMedalExportWorker(staticLister{ids: []string{"spring-cup"}}, exporter, 50*time.Millisecond, quietLogger())
	require.NoError(t, err)

	require.NoError(t, worker.Start())
	assert.Eventually(t, func() bool { return exporter.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, worker.Stop())
}
