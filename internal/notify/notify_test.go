package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureRun(t *testing.T) *[][]string {
	t.Helper()
	var calls [][]string
	orig := run
	run = func(ctx context.Context, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}
	t.Cleanup(func() { run = orig })
	return &calls
}

func TestCompleteMessage(t *testing.T) {
	assert.Equal(t, "1200 books from 7 libraries", completeMessage(1200, 7, 0))
	assert.Equal(t, "800 books from 7 libraries (2 failed)", completeMessage(800, 7, 2))
	assert.Equal(t, TypeSuccess, completeType(0))
	assert.Equal(t, TypeInfo, completeType(2))
}

func TestLinuxNotification(t *testing.T) {
	calls := captureRun(t)

	require.NoError(t, sendNotification(context.Background(), "linux", "Collection Failed", "bad key", TypeError))
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"notify-send", "-i", "dialog-error", "-a", "narubooks", "Collection Failed", "bad key"}, (*calls)[0])
}

func TestMacNotificationEscapes(t *testing.T) {
	calls := captureRun(t)

	require.NoError(t, sendNotification(context.Background(), "darwin", "Done", `say "hi" \o/`, TypeInfo))
	require.Len(t, *calls, 1)
	assert.Contains(t, (*calls)[0][2], `say \"hi\" \\o/`)
}

func TestUnknownPlatform(t *testing.T) {
	calls := captureRun(t)
	require.NoError(t, sendNotification(context.Background(), "plan9", "t", "m", TypeInfo))
	assert.Empty(t, *calls)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&lt;a&gt; &amp; &quot;b&quot; &apos;c&apos;", escapeXML(`<a> & "b" 'c'`))
}
