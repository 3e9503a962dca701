package versioning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStoreFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func newJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	root := t.TempDir()
	j := NewJournal(root, "")
	t.Cleanup(func() { j.Close() })
	return j, root
}

func TestJournalInit(t *testing.T) {
	ctx := context.Background()
	j, root := newJournal(t)

	assert.False(t, j.Enabled(ctx))
	require.NoError(t, j.Init(ctx))
	require.NoError(t, j.Init(ctx), "Init must be idempotent")
	assert.True(t, j.Enabled(ctx))
	assert.Equal(t, filepath.Join(root, JournalFile), j.Path())

	db, err := j.open()
	require.NoError(t, err)
	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestJournalRecordChange(t *testing.T) {
	ctx := context.Background()
	j, root := newJournal(t)
	require.NoError(t, j.Init(ctx))

	writeStoreFile(t, root, "email/gmail.gpg", "v1")
	writeStoreFile(t, root, "email/.gmail.gpg.meta", "{}")

	rec, err := j.RecordChange(ctx, Change{
		Message: "Add given password for email/gmail to store.",
		Paths:   []string{"email/gmail.gpg", "email/.gmail.gpg.meta", "email/gmail.gpg"},
		Author:  "alice",
		TxID:    "tx-1",
	})
	require.NoError(t, err)
	require.False(t, rec.IsZero())
	assert.Equal(t, "alice", rec.Author)
	assert.ElementsMatch(t, []string{"email/gmail.gpg", "email/.gmail.gpg.meta"}, rec.Paths)

	t.Run("UnchangedIsNoop", func(t *testing.T) {
		again, err := j.RecordChange(ctx, Change{Message: "again", Paths: []string{"email/gmail.gpg"}})
		require.NoError(t, err)
		assert.True(t, again.IsZero())
	})

	t.Run("RemovalIsRecorded", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "email", "gmail.gpg")))
		rm, err := j.RecordChange(ctx, Change{Message: "Remove email/gmail from store.", Paths: []string{"email/gmail.gpg"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"email/gmail.gpg"}, rm.Paths)

		again, err := j.RecordChange(ctx, Change{Message: "again", Paths: []string{"email/gmail.gpg"}})
		require.NoError(t, err)
		assert.True(t, again.IsZero(), "a second removal has nothing to record")
	})

	t.Run("NeverSeenMissingFileIsIgnored", func(t *testing.T) {
		rec, err := j.RecordChange(ctx, Change{Message: "ghost", Paths: []string{"ghost.gpg"}})
		require.NoError(t, err)
		assert.True(t, rec.IsZero())
	})
}

func TestJournalRecordAllPending(t *testing.T) {
	ctx := context.Background()
	j, root := newJournal(t)
	require.NoError(t, j.Init(ctx))

	writeStoreFile(t, root, ".gpg-id", "K1\n")
	writeStoreFile(t, root, "a.gpg", "a")
	writeStoreFile(t, root, ".a.gpg.tmp-42", "partial")
	writeStoreFile(t, root, ".git/config", "x")

	rec, err := j.RecordChange(ctx, Change{Message: "Add current contents of password store."})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".gpg-id", "a.gpg"}, rec.Paths)

	require.NoError(t, os.Remove(filepath.Join(root, "a.gpg")))
	rec, err = j.RecordChange(ctx, Change{Message: "sync"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.gpg"}, rec.Paths)
}

func TestJournalHistory(t *testing.T) {
	ctx := context.Background()
	j, root := newJournal(t)

	history, err := j.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history, "no journal means no history")

	require.NoError(t, j.Init(ctx))
	for i, msg := range []string{"first", "second", "third"} {
		writeStoreFile(t, root, "e.gpg", msg)
		_, err := j.RecordChange(ctx, Change{Message: msg, Paths: []string{"e.gpg"}, Author: "bob"})
		require.NoError(t, err, "record %d", i)
	}

	history, err = j.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "third", history[0].Message)
	assert.Equal(t, "first", history[2].Message)
	assert.Equal(t, []string{"e.gpg"}, history[0].Paths)
	assert.False(t, history[0].Time.IsZero())

	limited, err := j.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Message)
}

func TestJournalRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	j, _ := newJournal(t)
	require.NoError(t, j.Init(ctx))

	db, err := j.open()
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = j.Init(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestNewSelectsBackend(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"", BackendGit, false},
		{"git", BackendGit, false},
		{"Journal", BackendJournal, false},
		{"none", BackendNone, false},
		{"svn", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			v, err := New(Options{Backend: tc.backend, Root: root})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Name())
		})
	}

	assert.False(t, None{}.Enabled(context.Background()))
}
