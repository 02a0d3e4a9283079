package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpm/internal/model"
)

type memLogs struct {
	mu       sync.Mutex
	created  []model.ImportLog
	finished []model.ImportLog
}

func (m *memLogs) CreateImportLog(ctx context.Context, log *model.ImportLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *log)
	return nil
}

func (m *memLogs) FinishImportLog(ctx context.Context, log *model.ImportLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *log)
	return nil
}

func collect(ch <-chan ProgressEvent) []ProgressEvent {
	var events []ProgressEvent
	for evt := range ch {
		events = append(events, evt)
	}
	return events
}

func eventTypes(events []ProgressEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestCoordinator_Events(t *testing.T) {
	t.Parallel()

	data := workbook(t, stdHeaders,
		[]any{"M-01", "Máy khâu", "SN-01"},
		[]any{"M-02", "", "SN-02"},
	)

	logs := &memLogs{}
	c := NewCoordinator(NewPipeline(&fakeCreator{}), logs)
	ch, err := c.Import(context.Background(), ImportOptions{Filename: "may.xlsx", Data: data})
	require.NoError(t, err)

	events := collect(ch)
	assert.Equal(t, []string{EventStart, EventInfo, EventRejected, EventSubmit, EventDone}, eventTypes(events))

	res, ok := events[len(events)-1].Data.(*model.ImportResult)
	require.True(t, ok)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)

	require.Len(t, logs.created, 1)
	require.Len(t, logs.finished, 1)
	done := logs.finished[0]
	assert.Equal(t, "may.xlsx", done.Filename)
	assert.Equal(t, int64(len(data)), done.FileSize)
	assert.Len(t, done.FileHash, 64)
	assert.Equal(t, model.ImportStatusCompleted, done.Status)
	assert.Equal(t, 2, done.TotalRows)
	assert.Equal(t, 1, done.SuccessCount)
	assert.Equal(t, 1, done.ErrorCount)
	assert.NotNil(t, done.CompletedAt)
}

func TestCoordinator_MissingColumnsEvent(t *testing.T) {
	t.Parallel()

	data := workbook(t, []any{"Mã máy"}, []any{"M-01"})

	logs := &memLogs{}
	c := NewCoordinator(NewPipeline(&fakeCreator{}), logs)
	ch, err := c.Import(context.Background(), ImportOptions{Filename: "x.xlsx", Data: data})
	require.NoError(t, err)

	events := collect(ch)
	assert.Equal(t, []string{EventStart, EventError}, eventTypes(events))

	ed, ok := events[1].Data.(ErrorData)
	require.True(t, ok)
	assert.Equal(t, "missing_columns", ed.Kind)
	assert.ElementsMatch(t, []string{"Serial", "Loại máy"}, ed.Missing)

	require.Len(t, logs.finished, 1)
	assert.Equal(t, model.ImportStatusFailed, logs.finished[0].Status)
	assert.NotEmpty(t, logs.finished[0].ErrorMessage)
}

func TestCoordinator_SingleFlight(t *testing.T) {
	t.Parallel()

	data := workbook(t, stdHeaders, []any{"M-01", "Máy khâu", "SN-01"})

	creator := &fakeCreator{block: make(chan struct{})}
	c := NewCoordinator(NewPipeline(creator), nil)

	first, err := c.Import(context.Background(), ImportOptions{Data: data})
	require.NoError(t, err)
	assert.True(t, c.Busy())

	_, err = c.Import(context.Background(), ImportOptions{Data: data})
	assert.True(t, errors.Is(err, ErrImportInProgress))

	close(creator.block)
	events := collect(first)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
	assert.Equal(t, 1, creator.Calls())

	// 通道关闭前已释放
	assert.False(t, c.Busy())
	second, err := c.Import(context.Background(), ImportOptions{Data: data})
	require.NoError(t, err)
	collect(second)
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	var g Guard
	release, err := g.Acquire()
	require.NoError(t, err)
	release()
	release()

	again, err := g.Acquire()
	require.NoError(t, err)
	_, err = g.Acquire()
	assert.ErrorIs(t, err, ErrImportInProgress)
	again()
}
