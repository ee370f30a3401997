// Package dedup decides whether new thread text duplicates an existing
// open thread, using embedding similarity with a text-normalization
// fallback. Absence of an embedding provider never blocks creation, it
// only lowers precision; the chosen method is always reported so callers
// can observe which comparison actually ran.
package dedup

import (
	"math"

	"tendril/internal/thread"
)

// Threshold is the cosine similarity above which two embeddings are
// considered the same semantic item. Contract constant.
const Threshold = 0.85

// Comparison methods reported in Result.Method.
const (
	MethodEmbedding = "embedding"
	MethodTextNorm  = "text_normalization"
	MethodSkipped   = "skipped"
)

// Result is the outcome of a dedup check.
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Method      string  `json:"method"`
	Similarity  float64 `json:"similarity,omitempty"`
	MatchedID   string  `json:"matched_thread_id,omitempty"`
	MatchedText string  `json:"matched_text,omitempty"`
}

// Check compares new text (and its optional embedding) against the
// current open set.
//
// With an embedding on both sides, the highest cosine similarity above
// Threshold wins. Without embeddings the comparison degrades to exact
// match on normalized text. With no text or no existing items there is
// nothing to compare and the result is not-duplicate, method "skipped".
func Check(text string, embedding []float64, existing []thread.Thread) Result {
	if text == "" || len(existing) == 0 {
		return Result{Method: MethodSkipped}
	}

	if len(embedding) > 0 {
		if r, compared := checkEmbedding(embedding, existing); compared {
			return r
		}
	}
	return checkNormalized(text, existing)
}

// checkEmbedding returns compared=false when no existing item carries a
// stored embedding, so the caller can fall back to text comparison.
func checkEmbedding(embedding []float64, existing []thread.Thread) (Result, bool) {
	best := Result{Method: MethodEmbedding}
	compared := false
	for _, th := range existing {
		if len(th.Embedding) == 0 {
			continue
		}
		compared = true
		sim := CosineSimilarity(embedding, th.Embedding)
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchedID = th.ID
			best.MatchedText = th.Text
		}
	}
	if !compared {
		return Result{}, false
	}
	if best.Similarity >= Threshold {
		best.IsDuplicate = true
		return best, true
	}
	return Result{Method: MethodEmbedding, Similarity: best.Similarity}, true
}

func checkNormalized(text string, existing []thread.Thread) Result {
	norm := thread.NormalizeText(text)
	if norm == "" {
		return Result{Method: MethodSkipped}
	}
	for _, th := range existing {
		if thread.NormalizeText(th.Text) == norm {
			return Result{
				IsDuplicate: true,
				Method:      MethodTextNorm,
				Similarity:  1,
				MatchedID:   th.ID,
				MatchedText: th.Text,
			}
		}
	}
	return Result{Method: MethodTextNorm}
}

// CosineSimilarity computes similarity between two embeddings (-1 to 1).
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
