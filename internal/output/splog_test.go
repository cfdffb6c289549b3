package output_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/output"
)

// lockedBuffer lets the race detector see the handler's own locking as the
// only synchronization around writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSplog(t *testing.T) {
	t.Setenv("DEBUG", "")

	t.Run("prefixes warnings, errors and tips", func(t *testing.T) {
		var buf lockedBuffer
		splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf})
		require.NoError(t, err)

		splog.Info("plain %d", 1)
		splog.Warn("careful")
		splog.Error("broken: %s", "x")
		splog.Tip("try this")

		require.Equal(t, "plain 1\n⚠️  careful\n❌ broken: x\n💡 try this\n", buf.String())
	})

	t.Run("debug is hidden unless enabled", func(t *testing.T) {
		var quiet, loud lockedBuffer
		off, err := output.NewSplogWithOptions(output.Options{Writer: &quiet})
		require.NoError(t, err)
		on, err := output.NewSplogWithOptions(output.Options{Writer: &loud, Debug: true})
		require.NoError(t, err)

		off.Debug("hidden")
		on.Debug("shown")

		require.Empty(t, quiet.String())
		require.Equal(t, "shown\n", loud.String())
	})

	t.Run("messages without args are not formatted", func(t *testing.T) {
		var buf lockedBuffer
		splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf})
		require.NoError(t, err)

		splog.Info("100% done")
		require.Equal(t, "100% done\n", buf.String())
	})

	t.Run("file receives debug messages", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "upsync.log")
		var buf lockedBuffer
		splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf, LogFile: logFile})
		require.NoError(t, err)

		splog.Debug("only in the file")
		splog.Info("everywhere")
		require.NoError(t, splog.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		require.Contains(t, string(data), "only in the file")
		require.Contains(t, string(data), "everywhere")
		require.Equal(t, "everywhere\n", buf.String())
	})

	t.Run("concurrent writes stay on their own lines", func(t *testing.T) {
		var buf lockedBuffer
		splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				splog.Info("worker %02d finished", i)
			}(i)
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 20)
		for _, line := range lines {
			var n int
			_, err := fmt.Sscanf(line, "worker %02d finished", &n)
			require.NoError(t, err, line)
		}
	})
}
