package badger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/poiesic/vocald/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedFileRepository_SaveAndLoad(t *testing.T) {
	_, repo := newTestRepos(t)
	ctx := context.Background()

	files, err := repo.LoadProcessedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, repo.SaveProcessedFile(ctx, &core.ProcessedFile{Filename: "b.wav", ModifiedMs: 200}))
	require.NoError(t, repo.SaveProcessedFile(ctx, &core.ProcessedFile{Filename: "a.wav", ModifiedMs: 100}))
	// Saving again replaces the earlier record.
	require.NoError(t, repo.SaveProcessedFile(ctx, &core.ProcessedFile{Filename: "a.wav", ModifiedMs: 150}))

	files, err = repo.LoadProcessedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	assert.Equal(t, &core.ProcessedFile{Filename: "a.wav", ModifiedMs: 150}, files[0])
	assert.Equal(t, &core.ProcessedFile{Filename: "b.wav", ModifiedMs: 200}, files[1])
}

func TestProcessedFileRepository_Clear(t *testing.T) {
	recRepo, repo := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveProcessedFile(ctx, &core.ProcessedFile{Filename: "a.wav", ModifiedMs: 1}))
	id, err := recRepo.CreateRecordingEntry(ctx, &core.RecordingEntry{Filename: "a.wav", CallDate: time.Now()})
	require.NoError(t, err)

	require.NoError(t, repo.ClearProcessedFiles(ctx))

	files, err := repo.LoadProcessedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = recRepo.GetRecording(ctx, id)
	assert.NoError(t, err, "recordings survive a processed-file reset")
}
