package processing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hr_records/internal/config"
	"hr_records/internal/notifications"
	"hr_records/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	snapshots map[string][][]string
	errs      map[string]error
	calls     []string
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		snapshots: make(map[string][][]string),
		errs:      make(map[string]error),
	}
}

func (r *fakeReader) set(sheet string, rows [][]string) {
	r.snapshots[sheet+"!A1:"+config.ScanLastColumn] = rows
}

func (r *fakeReader) fail(sheet string, err error) {
	r.errs[sheet+"!A1:"+config.ScanLastColumn] = err
}

func (r *fakeReader) Snapshot(ctx context.Context, readRange string) ([][]string, error) {
	r.calls = append(r.calls, readRange)
	if err, ok := r.errs[readRange]; ok {
		return nil, err
	}
	return r.snapshots[readRange], nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyNewRecord(ctx context.Context, record notifications.RecordInfo) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

type panickingReader struct {
	*fakeReader
	sheet string
}

func (r *panickingReader) Snapshot(ctx context.Context, readRange string) ([][]string, error) {
	if readRange == r.sheet+"!A1:"+config.ScanLastColumn {
		panic("boom")
	}
	return r.fakeReader.Snapshot(ctx, readRange)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
}

func tracked(names ...string) []config.TrackedSheet {
	var out []config.TrackedSheet
	for _, n := range names {
		out = append(out, config.TrackedSheet{Name: n, LastColumn: "J"})
	}
	return out
}

func TestLicenciaEndToEnd(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{
		{"id", "nombre", "apellido"},
		{"L1", "Ana", "Gomez"},
	})
	s := newTestStore(t)
	notifier := &mockNotifier{}
	detector := NewDetector(reader, s, notifier, tracked("licencia"))

	seeded, err := detector.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	processed, err := s.IsProcessed(ctx, "licencia", "L1")
	require.NoError(t, err)
	assert.True(t, processed)

	reader.set("licencia", [][]string{
		{"id", "nombre", "apellido"},
		{"L1", "Ana", "Gomez"},
		{"L2", "Ben", "Diaz"},
	})
	notifier.On("NotifyNewRecord", mock.Anything, notifications.RecordInfo{
		SheetName:   "licencia",
		RecordID:    "L2",
		DisplayName: "Ben Diaz",
	}).Return("email-1", nil).Once()

	summary := detector.DetectAndNotify(ctx)

	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Rows)
	notifier.AssertExpectations(t)

	processed, err = s.IsProcessed(ctx, "licencia", "L2")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestDetectAndNotifyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{
		{"ID", "Nombre"},
		{"L1", "Ana"},
		{"L2", "Ben"},
	})
	notifier := &mockNotifier{}
	notifier.On("NotifyNewRecord", mock.Anything, mock.Anything).Return("email", nil)
	detector := NewDetector(reader, newTestStore(t), notifier, tracked("licencia"))

	first := detector.DetectAndNotify(ctx)
	assert.Equal(t, 2, first.Notified)

	second := detector.DetectAndNotify(ctx)
	assert.Equal(t, 0, second.Notified)
	assert.Equal(t, 2, second.Skipped)
	notifier.AssertNumberOfCalls(t, "NotifyNewRecord", 2)
}

func TestSeedThenDetectSendsNothing(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("certificado_medico", [][]string{
		{"id", "nombre"},
		{"C1", "Ana"},
		{"C2", "Ben"},
		{"C3", "Caro"},
	})
	reader.set("licencia", [][]string{
		{"id"},
		{"L1"},
	})
	s := newTestStore(t)
	notifier := &mockNotifier{}
	detector := NewDetector(reader, s, notifier, tracked("certificado_medico", "licencia"))

	seeded, err := detector.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, seeded)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	summary := detector.DetectAndNotify(ctx)
	assert.Equal(t, 0, summary.Notified)
	notifier.AssertNotCalled(t, "NotifyNewRecord", mock.Anything, mock.Anything)
}

func TestSeedIfEmptySkipsSeededStore(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{{"id"}, {"L1"}, {"L2"}})
	s := newTestStore(t)
	require.NoError(t, s.MarkProcessed(ctx, "licencia", "OLD", fixedNow()))

	detector := NewDetector(reader, s, &mockNotifier{}, tracked("licencia"))
	seeded, err := detector.SeedIfEmpty(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, seeded)
	assert.Empty(t, reader.calls)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSeedIfEmptySkipsEmptyIDsAndSheetsWithoutIDColumn(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{
		{"id", "nombre"},
		{"L1", "Ana"},
		{"", "Sin id"},
		{"  ", "Blanco"},
		{},
		{"L1", "Repetido"},
	})
	reader.set("81_inciso_D", [][]string{
		{"legajo", "nombre"},
		{"D1", "Ana"},
	})
	s := newTestStore(t)

	detector := NewDetector(reader, s, &mockNotifier{}, tracked("licencia", "81_inciso_D", "81_inciso_F"))
	seeded, err := detector.SeedIfEmpty(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
}

func TestSeedIfEmptyInsertsNothingWhenASheetFails(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("certificado_medico", [][]string{{"id"}, {"C1"}})
	reader.set("licencia", [][]string{{"id"}, {"L1"}, {"L2"}, {"L3"}})
	reader.fail("licencia", errors.New("quota exceeded"))
	s := newTestStore(t)
	notifier := &mockNotifier{}
	detector := NewDetector(reader, s, notifier, tracked("certificado_medico", "licencia"))

	seeded, err := detector.SeedIfEmpty(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "licencia")
	assert.Equal(t, 0, seeded)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	delete(reader.errs, "licencia!A1:"+config.ScanLastColumn)

	seeded, err = detector.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, seeded)

	summary := detector.DetectAndNotify(ctx)
	assert.Equal(t, 0, summary.Notified)
	assert.Equal(t, 4, summary.Skipped)
	notifier.AssertNotCalled(t, "NotifyNewRecord", mock.Anything, mock.Anything)
}

func TestNewRowAfterSeedSendsExactlyOne(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("81_inciso_F", [][]string{{"id"}, {"F1"}, {"F2"}})
	s := newTestStore(t)
	notifier := &mockNotifier{}
	detector := NewDetector(reader, s, notifier, tracked("81_inciso_F"))

	_, err := detector.SeedIfEmpty(ctx)
	require.NoError(t, err)

	reader.set("81_inciso_F", [][]string{{"id"}, {"F1"}, {"F2"}, {"F3"}})
	notifier.On("NotifyNewRecord", mock.Anything, notifications.RecordInfo{
		SheetName:   "81_inciso_F",
		RecordID:    "F3",
		DisplayName: "Sin nombre",
	}).Return("email-3", nil).Once()

	summary := detector.DetectAndNotify(ctx)

	assert.Equal(t, 1, summary.Notified)
	notifier.AssertExpectations(t)
	processed, err := s.IsProcessed(ctx, "81_inciso_F", "F3")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestFailedSendLeavesRecordUnprocessed(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{{"id"}, {"L1"}, {"L2"}})
	s := newTestStore(t)
	notifier := &mockNotifier{}
	notifier.On("NotifyNewRecord", mock.Anything, mock.MatchedBy(func(r notifications.RecordInfo) bool {
		return r.RecordID == "L1"
	})).Return("", errors.New("provider down"))
	notifier.On("NotifyNewRecord", mock.Anything, mock.MatchedBy(func(r notifications.RecordInfo) bool {
		return r.RecordID == "L2"
	})).Return("", nil)

	detector := NewDetector(reader, s, notifier, tracked("licencia"))
	summary := detector.DetectAndNotify(ctx)

	assert.Equal(t, 0, summary.Notified)
	assert.Equal(t, 2, summary.Failed)

	for _, id := range []string{"L1", "L2"} {
		processed, err := s.IsProcessed(ctx, "licencia", id)
		require.NoError(t, err)
		assert.False(t, processed, id)
	}
}

func TestFailuresAreIsolatedPerSheet(t *testing.T) {
	ctx := context.Background()
	base := newFakeReader()
	base.fail("certificado_medico", errors.New("503"))
	base.set("81_inciso_D", [][]string{{"nombre"}, {"Ana"}})
	base.set("81_inciso_F", [][]string{{"id"}, {"F1"}})
	reader := &panickingReader{fakeReader: base, sheet: "licencia"}

	s := newTestStore(t)
	notifier := &mockNotifier{}
	notifier.On("NotifyNewRecord", mock.Anything, mock.Anything).Return("email-f1", nil).Once()

	detector := NewDetector(reader, s, notifier, tracked("certificado_medico", "licencia", "81_inciso_D", "81_inciso_F"))
	summary := detector.DetectAndNotify(ctx)

	assert.Equal(t, 2, summary.Sheets)
	assert.Equal(t, 1, summary.Notified)
	notifier.AssertExpectations(t)

	processed, err := s.IsProcessed(ctx, "81_inciso_F", "F1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestDetectAndNotifyVisitsSheetsInOrder(t *testing.T) {
	reader := newFakeReader()
	detector := NewDetector(reader, newTestStore(t), &mockNotifier{}, config.DefaultTrackedSheets)

	detector.DetectAndNotify(context.Background())

	require.Len(t, reader.calls, len(config.DefaultTrackedSheets))
	for i, sheet := range config.DefaultTrackedSheets {
		assert.Equal(t, sheet.ScanRange(), reader.calls[i])
	}
}

func TestDetectAndNotifyStampsProcessedAt(t *testing.T) {
	ctx := context.Background()
	reader := newFakeReader()
	reader.set("licencia", [][]string{{"id"}, {"L1"}})
	s := newTestStore(t)
	notifier := &mockNotifier{}
	notifier.On("NotifyNewRecord", mock.Anything, mock.Anything).Return("email", nil)

	detector := NewDetector(reader, s, notifier, tracked("licencia"))
	detector.now = fixedNow
	detector.DetectAndNotify(ctx)

	recent, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, fixedNow().Equal(recent[0].ProcessedAt))
}

func TestCollectKeys(t *testing.T) {
	keys := collectKeys("licencia", "id", [][]string{
		{"Nombre", " Id "},
		{"Ana", "L1"},
		{"Ben"},
		{"Caro", "L3"},
	})
	assert.Equal(t, []store.Key{
		{SheetName: "licencia", RecordID: "L1"},
		{SheetName: "licencia", RecordID: "L3"},
	}, keys)

	assert.Nil(t, collectKeys("licencia", "id", nil))
}
