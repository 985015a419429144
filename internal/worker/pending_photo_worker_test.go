package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/photoverify_api/internal/models"
)

type fakeLister struct {
	photos    []models.VerificationPhoto
	err       error
	olderThan time.Time
	limit     int
	failures  map[string]string
}

func (f *fakeLister) ListPending(_ context.Context, olderThan time.Time, limit int) ([]models.VerificationPhoto, error) {
	f.olderThan, f.limit = olderThan, limit
	return f.photos, f.err
}

func (f *fakeLister) RecordFailure(_ context.Context, id string, cause string) error {
	if f.failures == nil {
		f.failures = map[string]string{}
	}
	f.failures[id] = cause
	return nil
}

type processed struct {
	id    string
	final bool
}

type fakeProcessor struct {
	calls []processed
	err   error
}

func (f *fakeProcessor) ProcessPending(_ context.Context, p *models.VerificationPhoto, final bool) error {
	f.calls = append(f.calls, processed{p.ID, final})
	return f.err
}

func TestPendingPhotoWorker_Run(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{photos: []models.VerificationPhoto{
		{ID: "fresh", ProcessingAttempts: 0},
		{ID: "tired", ProcessingAttempts: 3},
		{ID: "last", ProcessingAttempts: 4},
		{ID: "overdue", ProcessingAttempts: 6},
	}}
	proc := &fakeProcessor{err: errors.New("still missing")}

	w := NewPendingPhotoWorker(lister, proc, time.Minute, 2*time.Minute, 5)
	w.now = func() time.Time { return now }
	w.run(context.Background())

	assert.Equal(t, now.Add(-2*time.Minute), lister.olderThan)
	assert.Equal(t, pendingPhotoBatch, lister.limit)
	assert.Equal(t, []processed{{"fresh", false}, {"tired", false}, {"last", true}, {"overdue", true}}, proc.calls)
}

func TestPendingPhotoWorker_ListError(t *testing.T) {
	proc := &fakeProcessor{}
	w := NewPendingPhotoWorker(&fakeLister{err: errors.New("db down")}, proc, time.Minute, time.Minute, 3)
	w.run(context.Background())
	assert.Empty(t, proc.calls)
}

func TestPendingPhotoWorker_StopsOnCancel(t *testing.T) {
	lister := &fakeLister{photos: []models.VerificationPhoto{{ID: "a"}, {ID: "b"}}}
	proc := &fakeProcessor{}
	w := NewPendingPhotoWorker(lister, proc, time.Millisecond, time.Minute, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.run(ctx)
	assert.Empty(t, proc.calls)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type panickyProcessor struct {
	calls []string
}

func (p *panickyProcessor) ProcessPending(_ context.Context, photo *models.VerificationPhoto, _ bool) error {
	p.calls = append(p.calls, photo.ID)
	if photo.ID == "bad" {
		panic("runtime error: integer divide by zero")
	}
	return nil
}

func TestPendingPhotoWorker_RecoversFromPanic(t *testing.T) {
	lister := &fakeLister{photos: []models.VerificationPhoto{{ID: "bad"}, {ID: "good"}}}
	proc := &panickyProcessor{}
	w := NewPendingPhotoWorker(lister, proc, time.Minute, time.Minute, 3)

	assert.NotPanics(t, func() { w.run(context.Background()) })
	assert.Equal(t, []string{"bad", "good"}, proc.calls)
	assert.Equal(t, map[string]string{"bad": "panic: runtime error: integer divide by zero"}, lister.failures)
}
