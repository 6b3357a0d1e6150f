package flat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// File names inside the index directory.
const (
	IndexFile   = "index.bin"
	SidecarFile = "chunks.json"

	// SchemaVersion is bumped whenever either file layout changes.
	SchemaVersion = 2
)

var indexMagic = [4]byte{'C', 'W', 'I', 'X'}

// Header sanity limits for reading untrusted files.
const (
	maxDimensions = 1 << 14
	maxVectors    = 1 << 24
)

// sidecar is the JSON file aligned positionally with the vectors in index.bin.
type sidecar struct {
	Chunks   []string             `json:"chunks"`
	Sources  []domain.ChunkSource `json:"sources"`
	Metadata sidecarMetadata      `json:"metadata"`
}

type sidecarMetadata struct {
	Version    int    `json:"version"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions"`
	Count      int    `json:"count"`
}

// Persist writes index.bin and chunks.json. Each file is written to a temp
// file and renamed into place.
func (idx *Index) Persist(_ context.Context) error {
	if idx.dir == "" {
		return nil
	}
	snap := idx.current.Load()

	if err := os.MkdirAll(idx.dir, 0700); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	dims := 0
	if len(snap.vectors) > 0 {
		dims = len(snap.vectors[0])
	}

	var bin bytes.Buffer
	if err := writeVectors(&bin, snap.vectors, dims); err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}

	sc := sidecar{
		Chunks:  make([]string, len(snap.chunks)),
		Sources: make([]domain.ChunkSource, len(snap.chunks)),
		Metadata: sidecarMetadata{
			Version:    SchemaVersion,
			Dimensions: dims,
			Count:      len(snap.chunks),
		},
	}
	if idx.embedder != nil {
		sc.Metadata.Model = idx.embedder.ModelName()
	}
	for i, c := range snap.chunks {
		sc.Chunks[i] = c.Text
		sc.Sources[i] = c.Source
	}
	js, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	if err := writeAtomic(filepath.Join(idx.dir, IndexFile), bin.Bytes()); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(idx.dir, SidecarFile), js); err != nil {
		return err
	}
	logger.Debug("index persisted: %d chunks to %s", len(snap.chunks), idx.dir)
	return nil
}

// Load restores the index from disk. A missing store leaves the index empty.
// If the vectors are unreadable, or were produced by a different model, they
// are rebuilt from the sidecar texts. An unreadable sidecar cannot be
// recovered and yields domain.ErrIndexUnavailable.
func (idx *Index) Load(ctx context.Context) error {
	if idx.dir == "" {
		return nil
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	scPath := filepath.Join(idx.dir, SidecarFile)
	raw, err := os.ReadFile(scPath)
	if errors.Is(err, os.ErrNotExist) {
		if _, statErr := os.Stat(filepath.Join(idx.dir, IndexFile)); statErr == nil {
			return fmt.Errorf("%s present without %s: %w", IndexFile, SidecarFile, domain.ErrIndexUnavailable)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}

	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return fmt.Errorf("decode sidecar: %v: %w", err, domain.ErrIndexUnavailable)
	}
	if len(sc.Chunks) != len(sc.Sources) {
		return fmt.Errorf("sidecar has %d chunks and %d sources: %w",
			len(sc.Chunks), len(sc.Sources), domain.ErrIndexUnavailable)
	}

	chunks := make([]domain.Chunk, len(sc.Chunks))
	for i, text := range sc.Chunks {
		src := sc.Sources[i]
		if !src.IsValid() {
			src = domain.ChunkSourceUploaded
		}
		chunks[i] = domain.Chunk{Text: text, Source: src, Position: i}
	}

	vectors, verr := idx.readVectors(len(chunks))
	if verr == nil && idx.embedder != nil && sc.Metadata.Model != "" && sc.Metadata.Model != idx.embedder.ModelName() {
		verr = fmt.Errorf("vectors built with %s, embedder is %s", sc.Metadata.Model, idx.embedder.ModelName())
	}
	if verr == nil && sc.Metadata.Version != SchemaVersion {
		verr = fmt.Errorf("schema version %d, want %d", sc.Metadata.Version, SchemaVersion)
	}

	if verr == nil {
		next := emptySnapshot()
		for i, c := range chunks {
			next.append(c, vectors[i], hashText(c.Text))
		}
		idx.current.Store(next)
		logger.Debug("index loaded: %d chunks", len(chunks))
		return nil
	}

	logger.Warn("index vectors unusable (%v); rebuilding from %d chunk texts", verr, len(chunks))
	next := emptySnapshot()
	for _, src := range []domain.ChunkSource{domain.ChunkSourceCurated, domain.ChunkSourceUploaded} {
		var group []domain.Chunk
		for _, c := range chunks {
			if c.Source == src {
				group = append(group, c)
			}
		}
		if len(group) == 0 {
			continue
		}
		var err error
		next, _, err = idx.extend(ctx, next, group, src)
		if err != nil {
			return fmt.Errorf("rebuild index: %v: %w", err, domain.ErrIndexUnavailable)
		}
	}
	idx.current.Store(next)

	// Persist does not take writeMu.
	if err := idx.Persist(ctx); err != nil {
		logger.Warn("rebuilt index not persisted: %v", err)
	}
	return nil
}

func (idx *Index) readVectors(count int) ([][]float32, error) {
	f, err := os.Open(filepath.Join(idx.dir, IndexFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vectors, dims, err := decodeVectors(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	if len(vectors) != count {
		return nil, fmt.Errorf("index has %d vectors, sidecar has %d chunks", len(vectors), count)
	}
	if idx.embedder != nil && count > 0 && dims != idx.embedder.Dimensions() {
		return nil, fmt.Errorf("index has %d dimensions, embedder has %d: %w",
			dims, idx.embedder.Dimensions(), domain.ErrDimensionMismatch)
	}
	return vectors, nil
}

// writeVectors encodes: magic, version, dims, count (uint32 LE), then
// count*dims float32 LE values.
func writeVectors(w io.Writer, vectors [][]float32, dims int) error {
	header := []uint32{SchemaVersion, uint32(dims), uint32(len(vectors))}
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	buf := make([]byte, dims*4)
	for _, vec := range vectors {
		for i, f := range vec {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func decodeVectors(r io.Reader) ([][]float32, int, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, fmt.Errorf("read magic: %w", err)
	}
	if magic != indexMagic {
		return nil, 0, errors.New("not an index file")
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	version, dims, count := header[0], int(header[1]), int(header[2])
	if version != SchemaVersion {
		return nil, 0, fmt.Errorf("unsupported index version %d", version)
	}
	if dims > maxDimensions || count > maxVectors {
		return nil, 0, fmt.Errorf("implausible header: %d vectors of %d dimensions", count, dims)
	}

	buf := make([]byte, dims*4)
	vectors := make([][]float32, count)
	for n := range vectors {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, fmt.Errorf("read vector %d: %w", n, err)
		}
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		vectors[n] = vec
	}
	return vectors, dims, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
