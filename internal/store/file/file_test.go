package file

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/storetest"
)

func TestChannelStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.ChannelStore {
		st, err := New(afero.NewMemMapFs(), "/data")
		require.NoError(t, err)
		return st
	})
}

func TestReopenKeepsRegistryAndLogs(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	st, err := New(fs, "/data")
	req.NoError(err)
	req.NoError(st.CreateChannel(ctx, "general"))
	req.NoError(st.CreateChannel(ctx, "random"))
	req.NoError(st.AppendMessage(ctx, "general", store.Message{
		ID:        "m1",
		Author:    "alice",
		Text:      "hi",
		CreatedAt: time.UnixMilli(1_700_000_000_123),
	}))

	reopened, err := New(fs, "/data")
	req.NoError(err)

	names, err := reopened.ListChannels(ctx)
	req.NoError(err)
	req.Equal([]string{"general", "random"}, names)

	log, err := reopened.ReadLog(ctx, "general")
	req.NoError(err)
	req.Len(log, 1)
	req.Equal("alice", log[0].Author)
	req.Equal(int64(1_700_000_000_123), log[0].CreatedAt.UnixMilli())

	raw, err := afero.ReadFile(fs, "/data/channels.json")
	req.NoError(err)
	req.JSONEq(`["general","random"]`, string(raw))
}

func TestRejectsPathLikeNames(t *testing.T) {
	st, err := New(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	for _, name := range []string{"../etc", "a/b", `a\b`, ".."} {
		require.ErrorIs(t, st.CreateChannel(context.Background(), name), store.ErrInvalidName, name)
	}
}

func TestAppendFailureIsReported(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	base := afero.NewMemMapFs()

	st, err := New(base, "/data")
	req.NoError(err)
	req.NoError(st.CreateChannel(ctx, "general"))

	// Swap the filesystem for a read-only view: appends must fail loudly.
	st.fs = afero.NewReadOnlyFs(base)
	err = st.AppendMessage(ctx, "general", store.Message{ID: "m1", Author: "alice", Text: "hi", CreatedAt: time.Now()})
	req.Error(err)
	req.NotErrorIs(err, store.ErrChannelNotFound)

	log, err := st.ReadLog(ctx, "general")
	req.NoError(err)
	req.Empty(log)
}

var (
	errDiskFull   = errors.New("disk full")
	errSyncFailed = errors.New("fsync failed")
)

// faultyFs hands out log files whose writes or syncs fail while armed.
type faultyFs struct {
	afero.Fs
	shortWrite bool
	failSync   bool
}

func (fs *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil || !strings.HasSuffix(name, logSuffix) {
		return f, err
	}
	return &faultyFile{File: f, fs: fs}, nil
}

type faultyFile struct {
	afero.File
	fs *faultyFs
}

// Write stores half of p before failing, like a disk running out of space.
func (f *faultyFile) Write(p []byte) (int, error) {
	if f.fs.shortWrite {
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errDiskFull
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.fs.failSync {
		return errSyncFailed
	}
	return f.File.Sync()
}

func TestFailedAppendLeavesLogIntact(t *testing.T) {
	tests := []struct {
		name string
		arm  func(fs *faultyFs, on bool)
		want error
	}{
		{
			name: "short write",
			arm:  func(fs *faultyFs, on bool) { fs.shortWrite = on },
			want: errDiskFull,
		},
		{
			name: "sync failure",
			arm:  func(fs *faultyFs, on bool) { fs.failSync = on },
			want: errSyncFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			fs := &faultyFs{Fs: afero.NewMemMapFs()}

			st, err := New(fs, "/data")
			req.NoError(err)
			req.NoError(st.CreateChannel(ctx, "general"))

			appendText := func(id, text string) error {
				return st.AppendMessage(ctx, "general", store.Message{
					ID:        id,
					Author:    "alice",
					Text:      text,
					CreatedAt: time.UnixMilli(1_700_000_000_000),
				})
			}

			req.NoError(appendText("m1", "one"))
			before, err := afero.ReadFile(fs, "/data/messages/general.jsonl")
			req.NoError(err)

			tt.arm(fs, true)
			req.ErrorIs(appendText("m2", "two"), tt.want)
			tt.arm(fs, false)

			after, err := afero.ReadFile(fs, "/data/messages/general.jsonl")
			req.NoError(err)
			req.Equal(string(before), string(after), "failed append must not change the log")

			req.NoError(appendText("m3", "three"))

			log, err := st.ReadLog(ctx, "general")
			req.NoError(err)
			req.Len(log, 2)
			req.Equal("one", log[0].Text)
			req.Equal("three", log[1].Text)
		})
	}
}
