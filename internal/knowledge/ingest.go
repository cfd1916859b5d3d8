package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Record is one raw protocol entry of the ingestion file.
type Record map[string]any

// LoadRecords decodes a JSON array of records.
func LoadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// ToDocument renders a record as "key: value" lines, keys sorted. The record
// must carry a category, which becomes metadata together with strategyId when
// present.
func (r Record) ToDocument() (Document, error) {
	category, ok := r["category"]
	if !ok {
		return Document{}, fmt.Errorf("record has no category")
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, formatValue(r[k])))
	}

	meta := map[string]any{"category": formatValue(category)}
	if id, ok := r["strategyId"]; ok {
		meta["strategyId"] = id
	}
	return Document{Content: strings.Join(lines, "\n"), Metadata: meta}, nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Ingest replaces the namespace contents with records and returns the number
// of stored documents.
func (ix *Index) Ingest(ctx context.Context, records []Record) (int, error) {
	docs := make([]Document, 0, len(records))
	for i, r := range records {
		doc, err := r.ToDocument()
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	if err := ix.Replace(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
