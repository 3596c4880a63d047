package fileaccess_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/memo/internal/engine/fileaccess"
	"go.uber.org/mock/gomock"
)

const root = "/repo"

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

func event(pid int, op domain.Operation, rel string) domain.FileAccessEvent {
	ev := domain.FileAccessEvent{
		ProcessID: pid,
		Operation: op,
		Path:      filepath.Join(root, filepath.FromSlash(rel)),
	}
	switch op {
	case domain.OpReadFile:
		ev.RequestedAccess = domain.AccessRead
	case domain.OpCreateFile, domain.OpWriteFile, domain.OpDeleteFile,
		domain.OpMoveSource, domain.OpMoveDestination:
		ev.RequestedAccess = domain.AccessWrite
	case domain.OpProbe:
		ev.RequestedAccess = domain.AccessProbe
	case domain.OpEnumerate:
		ev.RequestedAccess = domain.AccessEnumerate
	}
	return ev
}

func classify(t *testing.T, events ...domain.FileAccessEvent) fileaccess.Result {
	t.Helper()
	c := fileaccess.NewClassifier(root, quietLogger(t))
	for _, ev := range events {
		c.ReportFileAccess(ev)
	}
	return c.Finish()
}

func TestClassifier_CreatedThenRemovedWithDirectory(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpCreateDirectory, "d"),
		event(1, domain.OpCreateFile, "d/a.txt"),
		event(1, domain.OpDeleteFile, "d/a.txt"),
		event(1, domain.OpRemoveDirectory, "d"),
	)

	assert.Empty(t, res.Inputs)
	assert.Empty(t, res.Outputs)
}

func TestClassifier_WrittenByOneProcessReadByAnother(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpWriteFile, "b.txt"),
		event(2, domain.OpReadFile, "b.txt"),
	)

	assert.Equal(t, []string{"b.txt"}, res.Outputs)
	assert.Empty(t, res.Inputs)
}

func TestClassifier_ReadOnlyIsInput(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpReadFile, "src/Main.c"),
		event(1, domain.OpReadFile, "src/main.h"),
		event(1, domain.OpReadFile, "src/Main.c"),
		event(1, domain.OpWriteFile, "out/app"),
	)

	assert.Equal(t, []string{"src/Main.c", "src/main.h"}, res.Inputs)
	assert.Equal(t, []string{"out/app"}, res.Outputs)
}

func TestClassifier_MovedAwayIsNotOutput(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpWriteFile, "tmp.o"),
		event(1, domain.OpMoveSource, "tmp.o"),
		event(1, domain.OpMoveDestination, "final.o"),
	)

	assert.Equal(t, []string{"final.o"}, res.Outputs)
}

func TestClassifier_RecreatedAfterDirectoryRemoval(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpWriteFile, "gen/x.go"),
		event(1, domain.OpRemoveDirectory, "gen"),
		event(1, domain.OpCreateDirectory, "gen"),
		event(1, domain.OpWriteFile, "gen/x.go"),
	)

	assert.Equal(t, []string{"gen/x.go"}, res.Outputs)
}

func TestClassifier_ReadUnderRemovedDirectoryIsNotInput(t *testing.T) {
	t.Parallel()

	res := classify(t,
		event(1, domain.OpReadFile, "scratch/in.txt"),
		event(1, domain.OpRemoveDirectory, "scratch"),
	)

	assert.Empty(t, res.Inputs)
}

func TestClassifier_TrailingAugmentedReadsIgnored(t *testing.T) {
	t.Parallel()

	read := event(2, domain.OpReadFile, "a.txt")
	read.IsAugmented = true

	res := classify(t,
		event(1, domain.OpWriteFile, "a.txt"),
		event(1, domain.OpDeleteFile, "a.txt"),
		read,
	)

	assert.Empty(t, res.Outputs)
	assert.Empty(t, res.Inputs)
}

func TestClassifier_TrailingAugmentedReadAfterDirectoryRemoval(t *testing.T) {
	t.Parallel()

	read := event(2, domain.OpReadFile, "gen/x.go")
	read.IsAugmented = true

	res := classify(t,
		event(1, domain.OpWriteFile, "gen/x.go"),
		event(1, domain.OpRemoveDirectory, "gen"),
		read,
	)

	assert.Empty(t, res.Outputs)
	assert.Empty(t, res.Inputs)
}

func TestClassifier_ReportedWriteAfterObservedDelete(t *testing.T) {
	t.Parallel()

	write := event(1, domain.OpWriteFile, "tmp/x")
	write.IsAugmented = true

	res := classify(t,
		event(1, domain.OpCreateFile, "tmp/x"),
		event(1, domain.OpDeleteFile, "tmp/x"),
		write,
	)

	assert.Empty(t, res.Outputs)
	assert.Empty(t, res.Inputs)
}

func TestClassifier_ReportOnlyRecreateIsOutput(t *testing.T) {
	t.Parallel()

	var events []domain.FileAccessEvent
	for _, op := range []domain.Operation{domain.OpWriteFile, domain.OpDeleteFile, domain.OpWriteFile} {
		ev := event(1, op, "out/y")
		ev.IsAugmented = true
		events = append(events, ev)
	}

	res := classify(t, events...)

	assert.Equal(t, []string{"out/y"}, res.Outputs)
}

func TestClassifier_Diagnostics(t *testing.T) {
	t.Parallel()

	failed := event(1, domain.OpReadFile, "missing.txt")
	failed.Error = 2
	exists := event(1, domain.OpCreateFile, "exists.txt")
	exists.Error = domain.ErrorAlreadyExists
	dir := event(1, domain.OpReadFile, "somedir")
	dir.IsDirectory = true
	outside := domain.FileAccessEvent{Operation: domain.OpReadFile, RequestedAccess: domain.AccessRead, Path: "/etc/passwd"}

	c := fileaccess.NewClassifier(root, quietLogger(t))
	for _, ev := range []domain.FileAccessEvent{
		failed,
		exists,
		dir,
		outside,
		event(1, domain.OpProbe, "probe.txt"),
		event(1, domain.OpEnumerate, "src"),
		event(1, domain.OpWriteFile, ".memo/cache/blob"),
	} {
		c.ReportFileAccess(ev)
	}
	res := c.Finish()

	assert.Equal(t, []string{"exists.txt"}, res.Outputs)
	assert.Empty(t, res.Inputs)

	reasons := map[string]int{}
	for _, d := range c.Diagnostics() {
		reasons[d.Reason]++
	}
	assert.Equal(t, map[string]int{
		fileaccess.ReasonFailed:        1,
		fileaccess.ReasonDirectory:     1,
		fileaccess.ReasonOutsideRoot:   1,
		fileaccess.ReasonProbe:         2,
		fileaccess.ReasonInternalState: 1,
	}, reasons)
}

func TestClassifier_LongPathPrefix(t *testing.T) {
	t.Parallel()

	ev := domain.FileAccessEvent{
		Operation:       domain.OpWriteFile,
		RequestedAccess: domain.AccessWrite,
		Path:            `\\?\` + root + "/out.bin",
	}

	assert.Equal(t, []string{"out.bin"}, classify(t, ev).Outputs)
}

func TestClassifier_FinishTwicePanics(t *testing.T) {
	t.Parallel()

	c := fileaccess.NewClassifier(root, quietLogger(t))
	c.Finish()

	assert.Panics(t, func() { c.Finish() })
}

func TestClassifier_EventsAfterFinishAreDropped(t *testing.T) {
	t.Parallel()

	c := fileaccess.NewClassifier(root, quietLogger(t))
	c.Finish()
	c.ReportFileAccess(event(1, domain.OpWriteFile, "late.txt"))

	diags := c.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, fileaccess.ReasonLate, diags[0].Reason)
}

func TestClassifier_ConcurrentReports(t *testing.T) {
	t.Parallel()

	c := fileaccess.NewClassifier(root, quietLogger(t))

	var wg sync.WaitGroup
	for pid := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				c.ReportFileAccess(event(pid, domain.OpReadFile, "shared.txt"))
			}
			c.ReportProcess(domain.ProcessEvent{ProcessID: pid})
		}()
	}
	wg.Wait()

	res := c.Finish()
	assert.Equal(t, []string{"shared.txt"}, res.Inputs)
	assert.Len(t, c.Processes(), 8)
}

func TestClassifier_WaitForSentinel(t *testing.T) {
	t.Parallel()

	t.Run("delivered", func(t *testing.T) {
		t.Parallel()
		c := fileaccess.NewClassifier(root, quietLogger(t))
		go c.ReportFileAccess(domain.NewSentinelEvent())
		require.NoError(t, c.WaitForSentinel(context.Background(), 5*time.Second))
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		c := fileaccess.NewClassifier(root, quietLogger(t))
		err := c.WaitForSentinel(context.Background(), 10*time.Millisecond)
		require.ErrorIs(t, err, domain.ErrSentinelTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		c := fileaccess.NewClassifier(root, quietLogger(t))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, c.WaitForSentinel(ctx, time.Minute), context.Canceled)
	})

	t.Run("sentinel twice", func(t *testing.T) {
		t.Parallel()
		c := fileaccess.NewClassifier(root, quietLogger(t))
		c.ReportFileAccess(domain.NewSentinelEvent())
		c.ReportFileAccess(domain.NewSentinelEvent())
		require.NoError(t, c.WaitForSentinel(context.Background(), time.Second))
		assert.Empty(t, c.Finish().Inputs)
	})
}
