package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCollector struct {
	urls []string
	err  error
}

func (f *fakeCollector) Collect(context.Context, SearchQuery) ([]string, error) {
	return f.urls, f.err
}

type fakeFetcher struct {
	docs    map[string]RawDocument
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (RawDocument, error) {
	f.fetched = append(f.fetched, url)
	if err, ok := f.errs[url]; ok {
		return RawDocument{}, err
	}
	doc, ok := f.docs[url]
	if !ok {
		return RawDocument{URL: url, Text: "default"}, nil
	}
	return doc, nil
}

type fakeStore struct {
	existing  map[string]bool
	existsErr error
	upsertErr error
	upserts   []upsertCall
	nextID    int64
}

type upsertCall struct {
	url     string
	keyword string
	record  ExtractedRecord
}

func (f *fakeStore) Exists(_ context.Context, url string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[url], nil
}

func (f *fakeStore) Upsert(_ context.Context, url, keyword string, record ExtractedRecord) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserts = append(f.upserts, upsertCall{url: url, keyword: keyword, record: record})
	f.nextID++
	return f.nextID, nil
}

type fakeArchiver struct {
	archived []RawDocument
	err      error
}

func (f *fakeArchiver) Archive(_ context.Context, _ string, doc RawDocument) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, doc)
	return "file:///archive/" + doc.URL, nil
}

// alwaysValid extracts a persistable record from any text.
func alwaysValid(text string) ExtractedRecord {
	return ExtractedRecord{Yarn: "램스울", Needle: "4mm", Project: text}
}

// neverValid extracts an empty record from any text.
func neverValid(string) ExtractedRecord {
	return ExtractedRecord{}
}

func newTestOrchestrator(c Collector, f Fetcher, e Extractor, s Store, a Archiver) *Orchestrator {
	return New(c, f, e, s, a, Config{CandidateDelay: time.Second}, zap.NewNop())
}

func testQuery() SearchQuery {
	return SearchQuery{Keyword: "손뜨개", MaxResults: 10, MaxPages: 2}
}

func TestRunPersistsValidRecords(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://blog.naver.com/alpha/1",
		"https://blog.naver.com/beta/2",
	}
	store := &fakeStore{}
	orch := newTestOrchestrator(&fakeCollector{urls: urls}, &fakeFetcher{}, alwaysValid, store, nil)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 2, summary.Persisted)
	require.Zero(t, summary.Skipped)
	require.Zero(t, summary.Rejected)
	require.Zero(t, summary.Failed)
	require.NotEmpty(t, summary.RunID)

	require.Len(t, store.upserts, 2)
	require.Equal(t, urls[0], store.upserts[0].url)
	require.Equal(t, "손뜨개", store.upserts[0].keyword)
}

func TestRunSkipsKnownURLWithoutFetching(t *testing.T) {
	t.Parallel()

	known := "https://blog.naver.com/alpha/1"
	fresh := "https://blog.naver.com/beta/2"
	fetcher := &fakeFetcher{}
	store := &fakeStore{existing: map[string]bool{known: true}}
	orch := newTestOrchestrator(&fakeCollector{urls: []string{known, fresh}}, fetcher, alwaysValid, store, nil)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 1, summary.Persisted)
	// The known URL must not reach the browser at all.
	require.Equal(t, []string{fresh}, fetcher.fetched)
}

func TestRunCountsFetchFailureAndContinues(t *testing.T) {
	t.Parallel()

	bad := "https://blog.naver.com/alpha/1"
	good := "https://blog.naver.com/beta/2"
	fetcher := &fakeFetcher{errs: map[string]error{bad: errors.New("navigation timeout")}}
	store := &fakeStore{}
	orch := newTestOrchestrator(&fakeCollector{urls: []string{bad, good}}, fetcher, alwaysValid, store, nil)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Persisted)
	require.Len(t, store.upserts, 1)
	require.Equal(t, good, store.upserts[0].url)
}

func TestRunRejectsRecordMissingRequiredFields(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	orch := newTestOrchestrator(
		&fakeCollector{urls: []string{"https://blog.naver.com/alpha/1"}},
		&fakeFetcher{}, neverValid, store, nil,
	)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Rejected)
	require.Zero(t, summary.Persisted)
	require.Empty(t, store.upserts)
}

func TestRunTreatsExistsErrorAsNew(t *testing.T) {
	t.Parallel()

	store := &fakeStore{existsErr: errors.New("connection reset")}
	orch := newTestOrchestrator(
		&fakeCollector{urls: []string{"https://blog.naver.com/alpha/1"}},
		&fakeFetcher{}, alwaysValid, store, nil,
	)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	// Exists failing must not drop the candidate; the upsert keeps the
	// re-fetch harmless.
	require.Equal(t, 1, summary.Persisted)
	require.Zero(t, summary.Failed)
	require.Len(t, store.upserts, 1)
}

func TestRunCountsUpsertFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{upsertErr: errors.New("deadlock detected")}
	orch := newTestOrchestrator(
		&fakeCollector{urls: []string{"https://blog.naver.com/alpha/1"}},
		&fakeFetcher{}, alwaysValid, store, nil,
	)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Zero(t, summary.Persisted)
}

func TestRunPropagatesCollectorError(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(
		&fakeCollector{err: errors.New("search unreachable")},
		&fakeFetcher{}, alwaysValid, &fakeStore{}, nil,
	)

	summary, err := orch.Run(context.Background(), testQuery())
	require.Error(t, err)
	require.Zero(t, summary.Total)
	require.NotEmpty(t, summary.RunID)
}

func TestRunEmptySearchIsNotAnError(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(&fakeCollector{}, &fakeFetcher{}, alwaysValid, &fakeStore{}, nil)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Zero(t, summary.Total)
}

func TestRunRejectsInvalidQuery(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(&fakeCollector{}, &fakeFetcher{}, alwaysValid, &fakeStore{}, nil)

	_, err := orch.Run(context.Background(), SearchQuery{Keyword: ""})
	require.Error(t, err)
}

func TestRunStopsBetweenCandidatesOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	urls := []string{
		"https://blog.naver.com/alpha/1",
		"https://blog.naver.com/beta/2",
		"https://blog.naver.com/gamma/3",
	}
	store := &fakeStore{}
	fetcher := &fakeFetcher{}
	orch := newTestOrchestrator(&fakeCollector{urls: urls}, fetcher, func(text string) ExtractedRecord {
		cancel()
		return alwaysValid(text)
	}, store, nil)

	summary, err := orch.Run(ctx, testQuery())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	// The first candidate finished before the cancellation took effect; the
	// partial summary survives.
	require.Equal(t, 1, summary.Persisted)
	require.Equal(t, []string{urls[0]}, fetcher.fetched)
}

func TestRunArchivesFetchedDocuments(t *testing.T) {
	t.Parallel()

	archiver := &fakeArchiver{}
	orch := newTestOrchestrator(
		&fakeCollector{urls: []string{"https://blog.naver.com/alpha/1"}},
		&fakeFetcher{}, alwaysValid, &fakeStore{}, archiver,
	)

	_, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Len(t, archiver.archived, 1)
}

func TestRunArchiveFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	orch := newTestOrchestrator(
		&fakeCollector{urls: []string{"https://blog.naver.com/alpha/1"}},
		&fakeFetcher{}, alwaysValid, &fakeStore{}, archiver,
	)

	summary, err := orch.Run(context.Background(), testQuery())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Persisted)
}

func TestRunSummaryCount(t *testing.T) {
	t.Parallel()

	var s RunSummary
	s.Count(OutcomePersisted)
	s.Count(OutcomeSkipped)
	s.Count(OutcomeSkipped)
	s.Count(OutcomeRejected)
	s.Count(OutcomeFailed)

	require.Equal(t, 1, s.Persisted)
	require.Equal(t, 2, s.Skipped)
	require.Equal(t, 1, s.Rejected)
	require.Equal(t, 1, s.Failed)
}

func TestExtractedRecordValid(t *testing.T) {
	t.Parallel()

	require.True(t, ExtractedRecord{Yarn: "램스울", Needle: "4mm"}.Valid())
	require.False(t, ExtractedRecord{Yarn: "램스울"}.Valid())
	require.False(t, ExtractedRecord{Needle: "4mm"}.Valid())
	require.False(t, ExtractedRecord{Yarn: "x", Needle: "4mm"}.Valid())
	require.True(t, ExtractedRecord{Yarn: "실1", Needle: "4mm", Project: ""}.Valid())
}
