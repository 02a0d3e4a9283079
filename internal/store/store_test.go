package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpm/internal/model"
	"tpm/internal/query"
	"tpm/internal/taxonomy"
)

func newStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(filepath.Join(t.TempDir(), "tpm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func input(serial, typ, status, source string) model.MachineInput {
	return model.MachineInput{
		CodeMachine:   "C-" + serial,
		TypeMachine:   typ,
		SerialMachine: serial,
		CurrentStatus: status,
		BorrowStatus:  source,
	}
}

func seed(t *testing.T, st *Store, rows ...model.MachineInput) {
	t.Helper()

	res, err := st.CreateBatch(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 0, res.ErrorCount, "seed errors: %+v", res.Errors)
}

func TestNew_ConnectionSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tpm.db")
	st, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	var mode string
	require.NoError(t, st.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, st.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	// 再次打开同一文件时表结构可重复应用
	again, err := New(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestCreateBatch_PerRowFailures(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()
	seed(t, st, input("SN-1", "Máy khâu", "", ""))

	d := time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC)
	ok := input("SN-2", "Máy cắt", "maintenance", "rented")
	ok.DateOfUse = &d
	ok.Price = 1200000

	res, err := st.CreateBatch(ctx, []model.MachineInput{
		input("SN-1", "Máy khâu", "", ""),
		ok,
		input("", "Máy ép", "", ""),
		input("SN-3", "Máy ép", "flying", ""),
		input("SN-2", "Máy cắt", "", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, "SN-2", res.Successes[0].Serial)
	require.Equal(t, 4, res.ErrorCount)

	lines := []int{}
	for _, f := range res.Errors {
		lines = append(lines, f.Line)
	}
	assert.Equal(t, []int{1, 3, 4, 5}, lines)
	assert.Contains(t, res.Errors[0].Message, "already exists")
	assert.Contains(t, res.Errors[1].Message, "serial_machine")
	assert.Contains(t, res.Errors[2].Message, "current_status")
	assert.Contains(t, res.Errors[3].Message, "already exists")

	n, err := st.CountMachines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, _, err := st.ListMachines(ctx, query.Params{Page: 1, Limit: 10, Search: "SN-2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "maintenance", list[0].CurrentStatus)
	assert.Equal(t, "rented", list[0].BorrowStatus)
	assert.Equal(t, int64(1200000), list[0].Price)
	require.NotNil(t, list[0].DateOfUse)
	assert.Equal(t, "2025-10-31", list[0].DateOfUse.Format("2006-01-02"))
}

func TestCreateBatch_DefaultsStatusAndSource(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	seed(t, st, input("SN-1", "Máy khâu", "", ""))

	m, err := st.GetMachine(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, string(taxonomy.StatusAvailable), m.CurrentStatus)
	assert.Equal(t, string(taxonomy.SourceInternal), m.BorrowStatus)
	assert.Nil(t, m.DateOfUse)
}

func TestStats(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	seed(t, st,
		input("A1", "x", "available", "internal"),
		input("A2", "x", "available", "internal"),
		input("A3", "x", "available", "borrowed_out"),
		input("B1", "x", "broken", "rented"),
		input("L1", "x", "liquidation", "internal"),
	)

	m, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Get(taxonomy.StatusAvailable).Get(taxonomy.SourceInternal))
	assert.Equal(t, 1, m.Get(taxonomy.StatusAvailable).Get(taxonomy.SourceBorrowedOut))
	assert.Equal(t, 1, m.Get(taxonomy.StatusBroken).Get(taxonomy.SourceRented))
	assert.Equal(t, 1, m.Get(taxonomy.StatusLiquidation).Get(taxonomy.SourceInternal))
}

func TestListMachines_Filters(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()
	rows := []model.MachineInput{
		input("S1", "Máy khâu", "maintenance", "internal"),
		input("S2", "Máy khâu", "broken", "borrowed_out"),
		input("S3", "Máy cắt", "disabled", "rented"),
		input("S4", "Máy cắt", "available", "internal"),
	}
	rows[0].NameLocation = "Xưởng 1"
	rows[1].NameLocation = "Xưởng 2"
	seed(t, st, rows...)

	p := query.Params{
		Page:          1,
		Limit:         10,
		CurrentStatus: []string{"maintenance", "broken", "disabled"},
		BorrowStatus:  []string{"internal", "borrowed_out"},
	}
	list, total, err := st.ListMachines(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "S1", list[0].SerialMachine)
	assert.Equal(t, "S2", list[1].SerialMachine)

	list, total, err = st.ListMachines(ctx, query.Params{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, list, 1)
	assert.Equal(t, "S4", list[0].SerialMachine)

	all, err := st.AllMachines(ctx, query.Params{Page: 2, Limit: 1, Types: []string{"Máy cắt"}})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	locs, err := st.DistinctValues(ctx, FacetLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"Xưởng 1", "Xưởng 2"}, locs)

	types, err := st.DistinctValues(ctx, FacetType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Máy cắt", "Máy khâu"}, types)

	_, err = ParseFacet("serial")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestListMachines_SearchIsLiteral(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()
	seed(t, st,
		input("S1", "Máy khâu", "available", "internal"),
		input("S_2", "Máy khâu", "available", "internal"),
		input("S%3", "Máy cắt", "available", "internal"),
		input(`S\4`, "Máy cắt", "available", "internal"),
	)

	cases := map[string][]string{
		"_":  {"S_2"},
		"%":  {"S%3"},
		`\`: {`S\4`},
		"S":  {"S1", "S_2", "S%3", `S\4`},
	}
	for search, want := range cases {
		list, total, err := st.ListMachines(ctx, query.Params{Page: 1, Limit: 10, Search: search})
		require.NoError(t, err)
		assert.Equal(t, len(want), total, "search %q", search)

		got := make([]string, 0, len(list))
		for _, m := range list {
			got = append(got, m.SerialMachine)
		}
		assert.Equal(t, want, got, "search %q", search)
	}
}

func TestUpdateMachine(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()
	seed(t, st, input("S1", "Máy khâu", "", ""))

	status := "broken"
	note := "  hỏng mô tơ "
	price := int64(5000)
	m, err := st.UpdateMachine(ctx, 1, model.MachinePatch{CurrentStatus: &status, Note: &note, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "broken", m.CurrentStatus)
	assert.Equal(t, "hỏng mô tơ", m.Note)
	assert.Equal(t, int64(5000), m.Price)
	assert.Equal(t, "S1", m.SerialMachine)

	bad := "exploded"
	_, err = st.UpdateMachine(ctx, 1, model.MachinePatch{CurrentStatus: &bad})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = st.UpdateMachine(ctx, 42, model.MachinePatch{Note: &note})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.GetMachine(ctx, 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestImportLogs(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()

	last, err := st.LastImportLog(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	log := &model.ImportLog{RunID: "run-1", Filename: "a.xlsx", FileSize: 10, FileHash: "abc", Status: model.ImportStatusProcessing}
	require.NoError(t, st.CreateImportLog(ctx, log))
	assert.NotZero(t, log.ID)

	log.TotalRows, log.SuccessCount, log.ErrorCount = 3, 2, 1
	log.Status = model.ImportStatusCompleted
	require.NoError(t, st.FinishImportLog(ctx, log))

	require.NoError(t, st.CreateImportLog(ctx, &model.ImportLog{RunID: "run-2", Filename: "b.xlsx", Status: model.ImportStatusProcessing}))

	logs, err := st.ListImportLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "run-2", logs[0].RunID)
	assert.Equal(t, "run-1", logs[1].RunID)
	assert.Equal(t, 2, logs[1].SuccessCount)
	assert.Equal(t, model.ImportStatusCompleted, logs[1].Status)
	assert.NotNil(t, logs[1].CompletedAt)
	assert.Nil(t, logs[0].CompletedAt)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	ctx := context.Background()

	_, err := st.GetConfig(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetConfig(ctx, "default_category", "A"))
	require.NoError(t, st.SetConfig(ctx, "default_category", "B"))
	v, err := st.GetConfig(ctx, "default_category")
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	all, err := st.GetAllConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"default_category": "B"}, all)
}
