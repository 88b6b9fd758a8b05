package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// IndexRecord is the on-disk embedding index: one vector per tool
// description, plus the fingerprint fields needed to detect staleness.
// Field names match the persisted JSON keys the teacher-style store uses.
type IndexRecord struct {
	EmbedKey  string      `json:"embed_key"`
	DescsHash string      `json:"descs_hash"`
	NamesHash string      `json:"names_hash"`
	Dim       int         `json:"dim"`
	Names     []string    `json:"names"`
	Vecs      [][]float32 `json:"vecs"`
}

// Index holds an in-memory embedding index plus the path it persists to.
// Dim is included in the validity fingerprint deliberately: an embedder
// swap that preserves names and descriptions but changes vector width
// must still invalidate the cache, which a names+descs hash alone would
// miss.
type Index struct {
	mu   sync.RWMutex
	path string
	rec  IndexRecord
}

// NewIndex returns an Index that will load from and save to path (typically
// DATA_DIR/tools/index.json).
func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Load reads the persisted index from disk. A missing file is not an
// error; the index simply starts empty.
func (idx *Index) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	raw, err := os.ReadFile(idx.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("registry: read index: %w", err)
	}
	var rec IndexRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("registry: decode index: %w", err)
	}
	idx.rec = rec
	return nil
}

// Save persists the index atomically via a temp file and rename.
func (idx *Index) Save() error {
	idx.mu.RLock()
	rec := idx.rec
	idx.mu.RUnlock()

	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("registry: mkdir %s: %w", dir, err)
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode index: %w", err)
	}
	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("registry: write index temp: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return fmt.Errorf("registry: rename index: %w", err)
	}
	return nil
}

// HashNames computes the fingerprint used for NamesHash: a sha256 over
// the sorted tool names, each followed by a NUL byte.
func HashNames(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return hashStrings(sorted)
}

// HashDescriptions computes the fingerprint used for DescsHash: a sha256
// over descriptions in the same name-sorted order as HashNames, so the
// two hashes are computed over a consistent ordering.
func HashDescriptions(entries []Entry) string {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	descs := make([]string, len(sorted))
	for i, e := range sorted {
		descs[i] = e.Description
	}
	return hashStrings(descs)
}

func hashStrings(ss []string) string {
	h := sha256.New()
	for _, s := range ss {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Valid reports whether the loaded index still matches the given
// embedder identity and catalog fingerprint. All four fields
// (embed key, names hash, descs hash, and dimension) must match.
func (idx *Index) Valid(embedKey, namesHash, descsHash string, dim int) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.rec.EmbedKey == embedKey &&
		idx.rec.NamesHash == namesHash &&
		idx.rec.DescsHash == descsHash &&
		idx.rec.Dim == dim &&
		len(idx.rec.Names) == len(idx.rec.Vecs)
}

// Rebuild replaces the index wholesale, embedding every entry in
// name-sorted batches bounded by embedder.MaxBatchSize().
func (idx *Index) Rebuild(ctx context.Context, embedder Embedder, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	names := make([]string, len(sorted))
	descs := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.Name
		descs[i] = e.Description
	}

	vecs, err := embedBatched(ctx, embedder, descs)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.rec = IndexRecord{
		EmbedKey:  embedder.Name(),
		DescsHash: hashStrings(descs),
		NamesHash: hashStrings(names),
		Dim:       embedder.Dimension(),
		Names:     names,
		Vecs:      vecs,
	}
	idx.mu.Unlock()
	return nil
}

// Append incrementally adds vectors for entries not yet present in the
// index, without re-embedding or re-hashing the rest. This backs the
// "getOrLoad during search does an incremental append, not a full
// rebuild" behavior: loading one new tool mid-search must not force a
// full catalog re-embed.
func (idx *Index) Append(ctx context.Context, embedder Embedder, entries []Entry) error {
	idx.mu.RLock()
	existing := make(map[string]bool, len(idx.rec.Names))
	for _, n := range idx.rec.Names {
		existing[n] = true
	}
	idx.mu.RUnlock()

	var fresh []Entry
	for _, e := range entries {
		if !existing[e.Name] {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Name < fresh[j].Name })

	descs := make([]string, len(fresh))
	for i, e := range fresh {
		descs[i] = e.Description
	}
	vecs, err := embedBatched(ctx, embedder, descs)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, e := range fresh {
		idx.rec.Names = append(idx.rec.Names, e.Name)
		idx.rec.Vecs = append(idx.rec.Vecs, vecs[i])
	}
	idx.rec.EmbedKey = embedder.Name()
	idx.rec.Dim = embedder.Dimension()
	return nil
}

func embedBatched(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	batchSize := embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	if batchSize == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("registry: embed batch: %w", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Scored is one semantic-search hit.
type Scored struct {
	Name  string
	Score float64
}

// Search returns the topK entries whose vectors are most similar to
// query under cosine similarity, descending by score and, on a tie, by
// name for determinism.
func (idx *Index) Search(query []float32, topK int) []Scored {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scored := make([]Scored, 0, len(idx.rec.Names))
	for i, name := range idx.rec.Names {
		scored = append(scored, Scored{Name: name, Score: cosineSimilarity(query, idx.rec.Vecs[i])})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// describeFingerprint renders a short human-readable identity string for
// logs, e.g. "openai/text-embedding-3-small/1536".
func describeFingerprint(embedder Embedder) string {
	return fmt.Sprintf("%s/%d", embedder.Name(), embedder.Dimension())
}
