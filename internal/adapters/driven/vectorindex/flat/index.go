// Package flat provides an exhaustive squared-L2 vector index with
// copy-on-write snapshots and file persistence.
//
// Readers load the current snapshot atomically and never block. Writers are
// serialised, build a new snapshot off to the side, and publish it with a
// single pointer swap, so a search never observes a half-applied write.
package flat

import (
	"container/heap"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 32
)

// Config holds configuration for the flat index.
type Config struct {
	// Dir is where index.bin and chunks.json are written. Empty disables persistence.
	Dir string

	// Workers bounds concurrent embedding batches (default: 4).
	Workers int

	// BatchSize is the number of texts per EmbedBatch call (default: 32).
	BatchSize int
}

// snapshot is an immutable view of the index. Never mutate a published snapshot.
type snapshot struct {
	chunks  []domain.Chunk
	vectors [][]float32
	hashes  map[string]int
}

func emptySnapshot() *snapshot {
	return &snapshot{hashes: make(map[string]int)}
}

// Index is an exhaustive nearest-neighbour index over chunk embeddings.
type Index struct {
	writeMu   sync.Mutex
	current   atomic.Pointer[snapshot]
	embedder  driven.EmbeddingService
	dir       string
	workers   int
	batchSize int
}

// New creates an empty index backed by the given embedding service.
func New(embedder driven.EmbeddingService, cfg Config) *Index {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	idx := &Index{
		embedder:  embedder,
		dir:       cfg.Dir,
		workers:   cfg.Workers,
		batchSize: cfg.BatchSize,
	}
	idx.current.Store(emptySnapshot())
	return idx
}

// Build wipes the index and stores every chunk with the given source.
func (idx *Index) Build(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	next, _, err := idx.extend(ctx, emptySnapshot(), chunks, source)
	if err != nil {
		return err
	}
	idx.current.Store(next)
	logger.Debug("index built: %d chunks", len(next.chunks))
	return nil
}

// Add appends chunks whose normalised text is not already indexed.
func (idx *Index) Add(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	next, added, err := idx.extend(ctx, idx.current.Load(), chunks, source)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		idx.current.Store(next)
	}
	logger.Debug("index add: %d of %d chunks inserted", added, len(chunks))
	return added, nil
}

// Replace swaps every chunk of the given source for the new chunks in a single
// snapshot. On error the previous snapshot stays current.
func (idx *Index) Replace(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error) {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	cur := idx.current.Load()
	base := cur.without(source)
	next, added, err := idx.extend(ctx, base, chunks, source)
	if err != nil {
		return 0, err
	}
	idx.current.Store(next)
	logger.Debug("index replace: %d %s chunks dropped, %d inserted",
		len(cur.chunks)-len(base.chunks), source, added)
	return added, nil
}

// without returns a copy holding every chunk not of the given source,
// renumbered in order. Embeddings are kept.
func (s *snapshot) without(source domain.ChunkSource) *snapshot {
	next := emptySnapshot()
	for i, c := range s.chunks {
		if c.Source == source {
			continue
		}
		next.append(c, s.vectors[i], hashText(c.Text))
	}
	return next
}

// extend returns a copy of base with the new chunks appended. base is not modified.
func (idx *Index) extend(
	ctx context.Context,
	base *snapshot,
	chunks []domain.Chunk,
	source domain.ChunkSource,
) (*snapshot, int, error) {
	var (
		pending []domain.Chunk
		hashes  []string
		seen    = make(map[string]struct{})
	)
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		h := hashText(text)
		if _, ok := base.hashes[h]; ok {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		c.Text = text
		c.Source = source
		pending = append(pending, c)
		hashes = append(hashes, h)
	}
	if len(pending) == 0 {
		return base, 0, nil
	}

	vectors, err := idx.embedAll(ctx, pending)
	if err != nil {
		return nil, 0, err
	}

	next := &snapshot{
		chunks:  slices.Clone(base.chunks),
		vectors: slices.Clone(base.vectors),
		hashes:  maps.Clone(base.hashes),
	}
	added := 0
	for i, c := range pending {
		if vectors[i] == nil {
			continue
		}
		next.append(c, vectors[i], hashes[i])
		added++
	}
	return next, added, nil
}

func (s *snapshot) append(c domain.Chunk, vec []float32, hash string) {
	c.ID = len(s.chunks)
	s.chunks = append(s.chunks, c)
	s.vectors = append(s.vectors, vec)
	s.hashes[hash] = c.ID
}

// embedAll embeds chunks in bounded parallel batches. A failed batch is
// retried item by item; items that still fail are logged and left nil.
func (idx *Index) embedAll(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	if idx.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	dims := idx.embedder.Dimensions()
	vectors := make([][]float32, len(chunks))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for start := 0; start < len(chunks); start += idx.batchSize {
		end := min(start+idx.batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}

			batch, err := idx.embedder.EmbedBatch(gctx, texts)
			if err == nil && len(batch) == len(texts) {
				for i, vec := range batch {
					if len(vec) != dims {
						logger.Error("chunk %d skipped: %v", start+i, domain.ErrDimensionMismatch)
						failed.Add(1)
						continue
					}
					vectors[start+i] = vec
				}
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}

			for i, text := range texts {
				vec, err := idx.embedder.Embed(gctx, text)
				if err != nil || len(vec) != dims {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					logger.Error("chunk %d skipped: embedding failed: %v", start+i, err)
					failed.Add(1)
					continue
				}
				vectors[start+i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if int(failed.Load()) == len(chunks) {
		return nil, fmt.Errorf("embed chunks: all %d failed: %w", len(chunks), domain.ErrEmbeddingUnavailable)
	}
	return vectors, nil
}

// Search returns up to k candidates ordered by ascending distance, ties by chunk ID.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	snap := idx.current.Load()
	if len(snap.chunks) == 0 || k <= 0 {
		return []domain.Candidate{}, nil
	}
	if idx.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	q, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != len(snap.vectors[0]) {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w",
			len(q), len(snap.vectors[0]), domain.ErrDimensionMismatch)
	}

	// A zero vector carries no signal and matches nothing.
	if isZero(q) {
		return []domain.Candidate{}, nil
	}

	h := make(hitHeap, 0, k)
	for i, vec := range snap.vectors {
		d := SquaredL2(q, vec)
		if h.Len() < k {
			heap.Push(&h, hit{id: i, dist: d})
		} else if worse(h[0], hit{id: i, dist: d}) {
			h[0] = hit{id: i, dist: d}
			heap.Fix(&h, 0)
		}
	}

	out := make([]domain.Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		top := heap.Pop(&h).(hit)
		out[i] = domain.Candidate{
			Chunk:         snap.chunks[top.id],
			Distance:      top.dist,
			RawConfidence: Confidence(top.dist),
		}
	}
	return out, nil
}

// Chunks returns every indexed chunk in index order.
func (idx *Index) Chunks() []domain.Chunk {
	return slices.Clone(idx.current.Load().chunks)
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.current.Load().chunks)
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// SquaredL2 returns the squared Euclidean distance between two equal-length vectors.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Confidence converts a distance into a raw confidence in (0, 1].
func Confidence(distance float64) float64 {
	return 1 / (1 + distance)
}

// hashText returns the dedup key for a chunk: SHA-256 of its lowercased,
// whitespace-collapsed text.
func hashText(text string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

type hit struct {
	id   int
	dist float64
}

// worse reports whether a ranks after b.
func worse(a, b hit) bool {
	if a.dist != b.dist {
		return a.dist > b.dist
	}
	return a.id > b.id
}

// hitHeap is a max-heap on rank, so the worst kept hit sits at the root.
type hitHeap []hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
