package knowledge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToDocument(t *testing.T) {
	r := Record{
		"name":       "SimpleStake",
		"category":   "staking",
		"apr":        7.5,
		"strategyId": 1,
		"tags":       []any{"wmod", "single-sided"},
	}

	doc, err := r.ToDocument()

	require.NoError(t, err)
	assert.Equal(t, "apr: 7.5\ncategory: staking\nname: SimpleStake\nstrategyId: 1\ntags: [\"wmod\",\"single-sided\"]", doc.Content)
	assert.Equal(t, map[string]any{"category": "staking", "strategyId": 1}, doc.Metadata)
}

func TestRecordToDocument_MissingCategory(t *testing.T) {
	_, err := Record{"name": "x"}.ToDocument()
	assert.ErrorContains(t, err, "no category")
}

func TestLoadRecords(t *testing.T) {
	records, err := LoadRecords(strings.NewReader(`[{"name":"A","category":"staking"},{"name":"B","category":"lending"}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[1]["name"])

	_, err = LoadRecords(strings.NewReader(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestIngest_ReplacesNamespace(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"staking", "lending"}}
	ix := openTestIndex(t, emb)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []Document{{Content: "stale staking"}}))

	n, err := ix.Ingest(ctx, []Record{
		{"name": "SimpleStake", "category": "staking"},
		{"name": "LendIt", "category": "lending"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	count, _ := ix.Count(ctx)
	assert.Equal(t, 2, count)

	docs, err := ix.Search(ctx, "lending", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "name: LendIt")
	assert.Equal(t, "lending", docs[0].Metadata["category"])
}

func TestIngest_InvalidRecordStoresNothing(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"staking"}}
	ix := openTestIndex(t, emb)

	_, err := ix.Ingest(context.Background(), []Record{{"category": "staking"}, {"name": "no category"}})

	assert.ErrorContains(t, err, "record 1")
	assert.Zero(t, emb.docCalls)
}

func TestIngest_EmbedsInBatches(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"staking", "lending"}, maxBatch: DefaultEmbedBatchSize}
	ix := openTestIndex(t, emb)
	ctx := context.Background()

	records := make([]Record, 0, 150)
	for i := 0; i < 149; i++ {
		records = append(records, Record{"name": fmt.Sprintf("Vault%d", i), "category": "staking"})
	}
	records = append(records, Record{"name": "LendIt", "category": "lending"})

	n, err := ix.Ingest(ctx, records)

	require.NoError(t, err)
	assert.Equal(t, 150, n)
	assert.Equal(t, 2, emb.docCalls)
	count, _ := ix.Count(ctx)
	assert.Equal(t, 150, count)

	docs, err := ix.Search(ctx, "lending", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "name: LendIt")
}

func TestReplace_BatchFailureKeepsExistingDocuments(t *testing.T) {
	emb := &keywordEmbedder{axes: []string{"staking"}, maxBatch: 2}
	ix := openTestIndex(t, emb, WithEmbedBatchSize(3))
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []Document{{Content: "old staking"}}))

	err := ix.Replace(ctx, []Document{{Content: "a"}, {Content: "b"}, {Content: "c"}})

	assert.ErrorContains(t, err, "at most 2 requests")
	count, _ := ix.Count(ctx)
	assert.Equal(t, 1, count)
}
