package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ieee0824/fujisakiest-go/estimation"
	"github.com/ieee0824/fujisakiest-go/fujisaki"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	batch := NewBatchID()

	res := estimation.Result{
		RMSE:           0.125,
		VoicedFrameNum: 80,
		Commands: []fujisaki.Command{
			{Type: fujisaki.Phrase, Onset: 0, Offset: 0.01, IntegratedAmplitude: 0.5, Omega: 3},
			{Type: fujisaki.Accent, Onset: 0.2, Offset: 0.35, IntegratedAmplitude: 0.075, Omega: 20},
		},
	}
	id1, err := s.SaveRun(ctx, batch, 1, res)
	require.NoError(t, err)
	id0, err := s.SaveRun(ctx, batch, 0, estimation.Result{RMSE: fujisaki.NoVoicedRMSE})
	require.NoError(t, err)
	assert.NotEqual(t, id0, id1)

	_, err = s.SaveRun(ctx, NewBatchID(), 0, res)
	require.NoError(t, err)

	runs, err := s.Runs(ctx, batch)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id0, runs[0].ID)
	assert.Equal(t, id1, runs[1].ID)
	assert.Equal(t, 1, runs[1].InputIndex)
	assert.Equal(t, 0.125, runs[1].RMSE)
	assert.Equal(t, 80, runs[1].VoicedFrames)
	assert.Equal(t, 2, runs[1].CommandCount)
	assert.Equal(t, batch, runs[1].BatchID)
	assert.False(t, runs[1].CreatedAt.IsZero())

	cmds, err := s.Commands(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, res.Commands, cmds)

	cmds, err = s.Commands(ctx, id0)
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestCommandsUnknownRun(t *testing.T) {
	s := openTemp(t)
	_, err := s.Commands(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestRunsEmptyBatch(t *testing.T) {
	s := openTemp(t)
	runs, err := s.Runs(context.Background(), NewBatchID())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	batch := NewBatchID()
	_, err = s.SaveRun(context.Background(), batch, 0, estimation.Result{RMSE: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
