// Package pipeline runs the multi-step invoice extraction flow: request
// parsing, supplier identification, country-code extraction, per-page or
// per-invoice data extraction, merging, and response assembly. All failures
// funnel through a single terminal error stage.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/document"
	"github.com/gwh-ap/invoice-agent/internal/llm"
	"github.com/gwh-ap/invoice-agent/internal/registry"
)

// DocumentOpener resolves a request path to a document store. Split out so
// tests can substitute fixtures.
type DocumentOpener func(path string) (document.Store, error)

// Pipeline wires the collaborators of an extraction run. One Pipeline serves
// many runs; each run owns its State.
type Pipeline struct {
	Logger      *slog.Logger
	Extractor   llm.Extractor
	Registry    *registry.Resolver
	Checkpoints Checkpointer
	OpenDoc     DocumentOpener
	Docs        common.DocumentConfig
}

// New builds a Pipeline with defaults for optional collaborators.
func New(extractor llm.Extractor, resolver *registry.Resolver, docs common.DocumentConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		Logger:      slog.Default(),
		Extractor:   extractor,
		Registry:    resolver,
		Checkpoints: NopCheckpointer{},
		Docs:        docs,
	}
	p.OpenDoc = func(path string) (document.Store, error) {
		return document.Open(p.Docs, path)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.Logger = l
		}
	}
}

func WithCheckpointer(c Checkpointer) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.Checkpoints = c
		}
	}
}

func WithDocumentOpener(open DocumentOpener) Option {
	return func(p *Pipeline) {
		if open != nil {
			p.OpenDoc = open
		}
	}
}

// Run executes the full extraction flow for one request and returns the
// response envelope. Run never returns an error: failures surface as an
// error envelope, the same way they do on the wire.
func (p *Pipeline) Run(ctx context.Context, input []byte) map[string]any {
	st := &State{}
	stage := StageParseRequest

	for stage != StageDone {
		p.Logger.Debug("pipeline.stage", "stage", stage.String(),
			"transaction_id", st.TransactionID, "status", string(st.Status))

		switch stage {
		case StageParseRequest:
			stage = p.parseRequest(ctx, st, input)
		case StageIdentifySupplier:
			stage = p.identifySupplier(ctx, st)
		case StageExtractCountryCodes:
			stage = p.extractCountryCodes(ctx, st)
		case StageExtractText:
			stage = p.extractInvoiceData(ctx, st)
		case StageExtractVision:
			stage = p.extractInvoiceDataImage(ctx, st)
		case StageMerge:
			stage = p.mergeInvoiceData(ctx, st)
		case StagePrepareResponse:
			stage = p.prepareResponse(ctx, st)
		case StageHandleError:
			stage = p.handleError(ctx, st)
		default:
			stage = st.fail("unknown pipeline stage")
		}
	}

	return st.Output
}
