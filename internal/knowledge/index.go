package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Document is one embedded transcript chunk.
type Document struct {
	Content   string
	Source    string
	VideoName string
	ChunkID   int
	Vector    []float32
}

var errNoEmbedding = errors.New("documents must carry precomputed embeddings")

// precomputed is the collection's embedding func. Every document and query
// arrives with its vector already set, so it is never expected to run.
func precomputed(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbedding
}

// Index is one session's collection in the vector store.
type Index struct {
	db    *chromem.DB
	name  string
	mutex sync.RWMutex
}

func (ix *Index) collection() *chromem.Collection {
	return ix.db.GetCollection(ix.name, precomputed)
}

// Replace swaps the whole document set, matching a fresh build of the index.
func (ix *Index) Replace(ctx context.Context, docs []Document) error {
	ix.mutex.Lock()
	defer ix.mutex.Unlock()

	if err := ix.db.DeleteCollection(ix.name); err != nil {
		return fmt.Errorf("failed to clear index %s: %w", ix.name, err)
	}
	if len(docs) == 0 {
		return nil
	}

	coll, err := ix.db.CreateCollection(ix.name, nil, precomputed)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", ix.name, err)
	}

	entries := make([]chromem.Document, 0, len(docs))
	for i, d := range docs {
		entries = append(entries, chromem.Document{
			ID:      strconv.Itoa(i),
			Content: d.Content,
			Metadata: map[string]string{
				"source":     d.Source,
				"video_name": d.VideoName,
				"chunk_id":   strconv.Itoa(d.ChunkID),
			},
			Embedding: d.Vector,
		})
	}
	if err := coll.AddDocuments(ctx, entries, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents to %s: %w", ix.name, err)
	}
	return nil
}

func (ix *Index) Len() int {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	if coll := ix.collection(); coll != nil {
		return coll.Count()
	}
	return 0
}

// All returns every document in insertion order.
func (ix *Index) All(ctx context.Context) ([]Document, error) {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	coll := ix.collection()
	if coll == nil {
		return nil, nil
	}
	n := coll.Count()
	docs := make([]Document, 0, n)
	for i := 0; i < n; i++ {
		entry, err := coll.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("failed to read document %d of %s: %w", i, ix.name, err)
		}
		docs = append(docs, fromEntry(entry.Content, entry.Metadata, entry.Embedding))
	}
	return docs, nil
}

// Search returns the k documents most similar to query by cosine similarity.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Document, error) {
	ix.mutex.RLock()
	defer ix.mutex.RUnlock()

	coll := ix.collection()
	if coll == nil || k <= 0 {
		return nil, nil
	}
	k = min(k, coll.Count())
	if k == 0 {
		return nil, nil
	}

	results, err := coll.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query of %s failed: %w", ix.name, err)
	}
	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, fromEntry(r.Content, r.Metadata, r.Embedding))
	}
	return docs, nil
}

func fromEntry(content string, meta map[string]string, vector []float32) Document {
	chunkID, _ := strconv.Atoi(meta["chunk_id"])
	return Document{
		Content:   content,
		Source:    meta["source"],
		VideoName: meta["video_name"],
		ChunkID:   chunkID,
		Vector:    vector,
	}
}

// Store hands out one Index per session from a persistent vector database
// under dir, opened on first use.
type Store struct {
	dir     string
	db      *chromem.DB
	indexes map[string]*Index
	mutex   sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, indexes: make(map[string]*Index)}
}

func (s *Store) Open(sessionID string) (*Index, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if ix, ok := s.indexes[sessionID]; ok {
		return ix, nil
	}

	if s.db == nil {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		db, err := chromem.NewPersistentDB(s.dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
		s.db = db
	}

	ix := &Index{db: s.db, name: "session_" + sessionID}
	s.indexes[sessionID] = ix
	return ix, nil
}
