// Package ingest turns raw documents into indexed chunks: tokenized
// fields for lexical search, fine-grained variants for recall, and a
// dense vector per chunk.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zhagnzhenfei/industry-assistant/internal/docstore"
	"github.com/zhagnzhenfei/industry-assistant/internal/embed"
	"github.com/zhagnzhenfei/industry-assistant/internal/errors"
	"github.com/zhagnzhenfei/industry-assistant/internal/segment"
)

// Document is one raw input record.
type Document struct {
	ID      string `json:"id"`
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	KBID    string `json:"kb_id"`
	Title   string `json:"title"`
	Content string `json:"content"`

	ImportantKeywords []string `json:"important_keywords,omitempty"`
	Questions         []string `json:"questions,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	PageRank          float64  `json:"pagerank,omitempty"`
	ImageID           string   `json:"image_id,omitempty"`
}

// embedBatchSize bounds one embedding provider call.
const embedBatchSize = 32

// Ingestor tokenizes, embeds and stores documents.
type Ingestor struct {
	seg    *segment.Segmenter
	emb    embed.Embedder
	store  docstore.Store
	logger *slog.Logger
}

// New creates an ingestor.
func New(seg *segment.Segmenter, emb embed.Embedder, store docstore.Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{seg: seg, emb: emb, store: store, logger: logger}
}

// Ingest indexes documents into the store and returns how many chunks
// were written.
func (ing *Ingestor) Ingest(ctx context.Context, index string, docs []Document) (int, error) {
	total := 0
	for start := 0; start < len(docs); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = strings.TrimSpace(d.Title + " " + d.Content)
		}
		vecs, err := ing.emb.EmbedBatch(ctx, texts)
		if err != nil {
			return total, err
		}

		chunks := make([]map[string]any, 0, len(batch))
		for i, d := range batch {
			chunk, err := ing.chunk(d)
			if err != nil {
				return total, err
			}
			chunk[docstore.VectorField(len(vecs[i]))] = vecs[i]
			chunks = append(chunks, chunk)
		}
		if err := ing.store.Insert(ctx, index, chunks); err != nil {
			return total, err
		}
		total += len(chunks)
		ing.logger.Debug("ingested batch", "index", index, "chunks", len(chunks))
	}
	return total, nil
}

// chunk builds the indexed field map for one document.
func (ing *Ingestor) chunk(d Document) (map[string]any, error) {
	if d.ID == "" {
		return nil, errors.New(errors.CodeQueryEmpty, fmt.Sprintf("document %q has no id", d.DocName), nil)
	}

	titleTks := ing.seg.TokenizeString(d.Title)
	contentTks := ing.seg.TokenizeString(d.Content)

	chunk := map[string]any{
		docstore.FieldID:            d.ID,
		docstore.FieldDocID:         d.DocID,
		docstore.FieldDocName:       d.DocName,
		docstore.FieldKBID:          d.KBID,
		docstore.FieldContent:       d.Content,
		docstore.FieldContentTokens: contentTks,
		docstore.FieldContentFine:   ing.seg.FineGrainedString(contentTks),
		docstore.FieldAvailable:     1,
	}
	if titleTks != "" {
		chunk[docstore.FieldTitleTokens] = titleTks
		chunk[docstore.FieldTitleFine] = ing.seg.FineGrainedString(titleTks)
	}
	if len(d.ImportantKeywords) > 0 {
		chunk[docstore.FieldImportantKwd] = d.ImportantKeywords
		chunk[docstore.FieldImportantTks] = ing.seg.TokenizeString(strings.Join(d.ImportantKeywords, " "))
	}
	if len(d.Questions) > 0 {
		chunk[docstore.FieldQuestionTks] = ing.seg.TokenizeString(strings.Join(d.Questions, "\n"))
	}
	if len(d.Tags) > 0 {
		chunk[docstore.FieldTagKwd] = d.Tags
	}
	if d.PageRank != 0 {
		chunk[docstore.FieldPageRank] = d.PageRank
	}
	if d.ImageID != "" {
		chunk[docstore.FieldImage] = d.ImageID
	}
	return chunk, nil
}

// ReadJSONL reads documents from JSON lines input. Blank lines and
// "#" comment lines are skipped.
func ReadJSONL(r io.Reader) ([]Document, error) {
	var docs []Document
	scanner := bufio.NewScanner(r)
	const maxLine = 4 * 1024 * 1024
	scanner.Buffer(make([]byte, maxLine), maxLine)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var d Document
		if err := json.Unmarshal([]byte(text), &d); err != nil {
			return nil, fmt.Errorf("parse document at line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return docs, nil
}
