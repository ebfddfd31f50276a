package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	BooksUnique.Set(42)
	LibrariesProcessed.WithLabelValues("ok").Add(3)

	path := filepath.Join(t.TempDir(), "nested", "narubooks.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "narubooks_books_unique 42")
	assert.Contains(t, string(data), `narubooks_libraries_processed_total{result="ok"}`)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("itemSrch", "ok"))
	UpstreamRequests.WithLabelValues("itemSrch", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamRequests.WithLabelValues("itemSrch", "ok")))
}
