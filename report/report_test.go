package report

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoris/BHMM/bayspos"
)

func testSummary() *bayspos.Summary {
	return &bayspos.Summary{
		RunID:       "01J9ZQ3Y2K8N6T4V5W7X8Y9Z0A",
		Model:       "m3",
		Iteration:   4,
		Temperature: 1.0,
		Topics: []bayspos.ClassDistribution{
			{Kind: "topic", ID: 0, Count: 5, Words: []bayspos.WordProb{{Word: "dog", Prob: 0.5}, {Word: "cat", Prob: 0.25}}},
		},
		States: []bayspos.ClassDistribution{
			{Kind: "state", ID: 1, Count: 3, Words: []bayspos.WordProb{{Word: "the", Prob: 0.75}}},
			{Kind: "state", ID: 2, Count: 2, Words: []bayspos.WordProb{{Word: "walked", Prob: 0.4}, {Word: "talked", Prob: 0.3}}},
		},
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, testSummary()))
	out := buf.String()
	assert.Contains(t, out, "model m3")
	assert.Contains(t, out, "topic 0")
	assert.Contains(t, out, "state 2")
	assert.Contains(t, out, "0.750000")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header, one line per class and one per word
	assert.Len(t, lines, 1+3+5)
}

func TestWriteCrossTab(t *testing.T) {
	crossTab := &bayspos.CrossTab{
		Tags:   []string{bayspos.Boundary, "DT", "NN", "VB"},
		Counts: [][]int{{0, 0, 0, 0}, {0, 3, 0, 1}, {0, 0, 0, 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCrossTab(&buf, crossTab))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"state", "DT", "VB"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "3", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "0", "2"}, strings.Fields(lines[2]))
}

func TestExportSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	summary := testSummary()
	require.NoError(t, ExportSQLite(ctx, path, summary))
	// a second export of the same run replaces the first
	summary.Iteration = 5
	require.NoError(t, ExportSQLite(ctx, path, summary))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var runs, iteration int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(iteration) FROM runs`).Scan(&runs, &iteration))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 5, iteration)

	var classes, words int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classes WHERE run_id = ?`, summary.RunID).Scan(&classes))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM class_words WHERE run_id = ?`, summary.RunID).Scan(&words))
	assert.Equal(t, 3, classes)
	assert.Equal(t, 5, words)

	var word string
	var prob float64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT word, prob FROM class_words WHERE run_id = ? AND kind = 'state' AND class_id = 2 AND rank = 1`,
		summary.RunID).Scan(&word, &prob))
	assert.Equal(t, "walked", word)
	assert.Equal(t, 0.4, prob)
}
