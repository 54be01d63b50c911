// Package enrich drives the out-of-scope summary and embedding
// collaborators against the store: bounded concurrent fan-out with
// per-request timeout and retry (§5, §6).
package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/codeindex/pkg/config"
	"github.com/jmylchreest/codeindex/pkg/query"
	"github.com/jmylchreest/codeindex/pkg/store"
)

var logger = log.New(os.Stderr, "[index:enrich] ", log.Ltime)

// Summarizer is the out-of-scope LLM-driven summary generator, specified
// only by this interface (§1, §6).
type Summarizer interface {
	Summarize(ctx context.Context, sym store.Symbol) (summary string, tokens int, err error)
}

// EmbeddingClient is the out-of-scope embedding generator, specified only
// by this interface (§1, §6).
type EmbeddingClient interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Enricher runs the summary and embedding passes over a store, bounding
// concurrent collaborator calls at cfg.Concurrency and retrying
// individual failures up to cfg.MaxRetries times with a linear i*1s
// backoff, each attempt capped at cfg.RequestTimeoutSeconds (§5).
type Enricher struct {
	cfg        config.Config
	store      *store.Store
	summarizer Summarizer
	embeddings EmbeddingClient
}

// New builds an Enricher. cfg is normalized with defaults applied.
// Either collaborator may be nil, in which case the corresponding pass
// is a no-op.
func New(cfg config.Config, st *store.Store, summarizer Summarizer, embeddings EmbeddingClient) *Enricher {
	return &Enricher{cfg: cfg.WithDefaults(), store: st, summarizer: summarizer, embeddings: embeddings}
}

// SummarizeAll fans out Summarize calls across every symbol lacking a
// current summary (§4.10, §6).
func (e *Enricher) SummarizeAll(ctx context.Context) error {
	if e.summarizer == nil {
		return nil
	}
	symbols, err := e.store.ListSymbolsWithoutSummary()
	if err != nil {
		return fmt.Errorf("enrich: list symbols without summary: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(e.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range symbols {
		sym := sym
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := e.summarizeOne(gctx, sym); err != nil {
				logger.Printf("summarize %s: %v", sym.QualifiedName, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// EmbedAll fans out Embed calls across every symbol whose summary has no
// matching embedding row for the collaborator's model (§4.10, §6).
func (e *Enricher) EmbedAll(ctx context.Context) error {
	if e.embeddings == nil {
		return nil
	}
	model := e.embeddings.Model()
	symbols, err := e.store.ListSymbolsNeedingEmbedding(model)
	if err != nil {
		return fmt.Errorf("enrich: list symbols needing embedding: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(e.cfg.Concurrency))
	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range symbols {
		sym := sym
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if err := e.embedOne(gctx, sym, model); err != nil {
				logger.Printf("embed %s: %v", sym.QualifiedName, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Enricher) summarizeOne(ctx context.Context, sym store.Symbol) error {
	var (
		summary string
		tokens  int
	)
	err := e.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		summary, tokens, callErr = e.summarizer.Summarize(callCtx, sym)
		return callErr
	})
	if err != nil {
		return err
	}

	hash := contentHash(sym.Signature + sym.DocComment)
	return e.store.UpdateSummary(sym.ID, hash, summary, tokens, time.Now().Unix())
}

func (e *Enricher) embedOne(ctx context.Context, sym store.Symbol, model string) error {
	var vec []float32
	err := e.withRetry(ctx, func(callCtx context.Context) error {
		var callErr error
		vec, callErr = e.embeddings.Embed(callCtx, sym.Summary)
		return callErr
	})
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	return e.store.UpsertEmbedding(store.Embedding{
		SymbolID:  sym.ID,
		Model:     model,
		Dim:       len(vec),
		Payload:   query.EncodeFloat32LE(vec),
		ChunkHash: sym.SummaryHash,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// withRetry calls fn, retrying up to cfg.MaxRetries times on error with a
// linear i*1s backoff between attempts, each attempt bounded by
// cfg.RequestTimeoutSeconds (§5).
func (e *Enricher) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.RequestTimeoutSeconds)*time.Second)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed after %d retries: %w", e.cfg.MaxRetries, lastErr)
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
