package knowledge

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Source is one processed media item: where it came from and the mp3 to read.
type Source struct {
	Origin    string
	AudioPath string
}

const embedBatchSize = 64

type Indexer struct {
	transcriber  Transcriber
	embedder     Embedder
	store        *Store
	chunkSize    int
	chunkOverlap int
}

func NewIndexer(transcriber Transcriber, embedder Embedder, store *Store) *Indexer {
	return &Indexer{
		transcriber:  transcriber,
		embedder:     embedder,
		store:        store,
		chunkSize:    500,
		chunkOverlap: 100,
	}
}

// IndexAudio transcribes every source, chunks and embeds the transcripts and
// replaces the session's index with the result.
func (ix *Indexer) IndexAudio(ctx context.Context, sessionID string, sources []Source) error {
	var docs []Document
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Printf("[KNOWLEDGE] %s: Transcribing %s", sessionID, src.AudioPath)
		text, err := ix.transcriber.Transcribe(ctx, src.AudioPath, "")
		if err != nil {
			return fmt.Errorf("transcription of %s failed: %w", src.Origin, err)
		}

		chunks, err := SplitText(text, ix.chunkSize, ix.chunkOverlap)
		if err != nil {
			return fmt.Errorf("splitting transcript of %s failed: %w", src.Origin, err)
		}
		videoName := strings.TrimSuffix(filepath.Base(src.AudioPath), filepath.Ext(src.AudioPath))
		for i, chunk := range chunks {
			docs = append(docs, Document{
				Content:   strings.ToLower(chunk),
				Source:    src.Origin,
				VideoName: videoName,
				ChunkID:   i,
			})
		}
	}

	if len(docs) == 0 {
		log.Printf("[KNOWLEDGE] %s: No transcript text produced, index left unchanged", sessionID)
		return nil
	}

	for start := 0; start < len(docs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(docs))
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Content)
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			docs[start+i].Vector = v
		}
	}

	index, err := ix.store.Open(sessionID)
	if err != nil {
		return err
	}
	if err := index.Replace(ctx, docs); err != nil {
		return err
	}

	log.Printf("[KNOWLEDGE] %s: Indexed %d chunks from %d sources", sessionID, len(docs), len(sources))
	return nil
}
