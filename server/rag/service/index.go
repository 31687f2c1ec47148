package service

import (
	"sort"
	"sync"

	"fileshare/server/rag/domain"
)

type chunk struct {
	docKey string
	text   string
	vector []float32
}

type hit struct {
	chunk chunk
	score float32
}

// index is an in-process vector index over document chunks.
type index struct {
	mu     sync.RWMutex
	chunks []chunk
	docs   map[string]domain.Document
}

func newIndex() *index {
	return &index{docs: map[string]domain.Document{}}
}

// add indexes the chunks of one document. Re-adding a known document is a
// no-op.
func (ix *index) add(doc domain.Document, texts []string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.docs[doc.Key]; ok {
		return false
	}
	ix.docs[doc.Key] = doc
	for _, text := range texts {
		ix.chunks = append(ix.chunks, chunk{docKey: doc.Key, text: text, vector: embed(text)})
	}
	return true
}

func (ix *index) document(key string) (domain.Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.docs[key]
	return doc, ok
}

// search returns up to limit chunks scoring at least minScore, best first.
func (ix *index) search(query []float32, limit int, minScore float32) []hit {
	ix.mu.RLock()
	hits := make([]hit, 0, len(ix.chunks))
	for _, c := range ix.chunks {
		score := cosine(query, c.vector)
		if score >= minScore {
			hits = append(hits, hit{chunk: c, score: score})
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (ix *index) size() (docs, chunks int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs), len(ix.chunks)
}
