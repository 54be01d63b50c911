package query

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/jmylchreest/codeindex/pkg/store"
)

// SemanticHit is one semantic-search result: its symbol, resolved
// location, and mapped similarity score in [0,1] (§4.6, §9).
type SemanticHit struct {
	Symbol     store.Symbol
	Location   *store.Location
	Similarity float64
}

// SemanticSearch loads every embedding row for model (optionally
// filtered by language/kind), scores each against queryVector by dot
// product mapped from [-1,1] to [0,1] via (s+1)/2, discards rows below
// minSimilarity, and returns the topK survivors in descending similarity
// order (§4.6, §9 vector-storage note: payloads are raw little-endian
// float32, read without per-value decoding beyond endianness).
func (e *Engine) SemanticSearch(queryVector []float32, model string, topK int, language, kind string, minSimilarity float64) ([]SemanticHit, error) {
	embeddings, err := e.store.EmbeddingsByModel(model, language, kind)
	if err != nil {
		return nil, err
	}

	var hits []SemanticHit
	for _, emb := range embeddings {
		if emb.Dim != len(queryVector) {
			continue
		}
		vec := decodeFloat32LE(emb.Payload, emb.Dim)
		sim := (dot(queryVector, vec) + 1) / 2
		if sim < minSimilarity {
			continue
		}
		sym, err := e.store.GetSymbol(emb.SymbolID)
		if err != nil || sym == nil {
			continue
		}
		loc, err := e.store.GetLocation(emb.SymbolID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SemanticHit{Symbol: *sym, Location: loc, Similarity: sim})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func decodeFloat32LE(payload []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim && (i+1)*4 <= len(payload); i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// EncodeFloat32LE packs a float32 vector into the raw little-endian blob
// format embeddings are stored as (§9). Exposed for the embedding
// collaborator to use when writing new rows.
func EncodeFloat32LE(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v))
	}
	return out
}
