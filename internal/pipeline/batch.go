package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/medlingo/transqa/internal/model"
)

// Request is one translation to validate in a batch.
type Request struct {
	SourceText     string `json:"source_text" csv:"source_text"`
	TranslatedText string `json:"translated_text" csv:"translated_text"`
	SourceLang     string `json:"source_lang" csv:"source_lang"`
	TargetLang     string `json:"target_lang" csv:"target_lang"`
}

// ValidateBatch validates requests concurrently, bounded by the
// configured parallelism. Results keep input order. The first context
// or pipeline failure cancels the remaining work.
func (p *Pipeline) ValidateBatch(ctx context.Context, reqs []Request) ([]*model.Result, error) {
	results := make([]*model.Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := p.Validate(ctx, req.SourceText, req.TranslatedText, req.SourceLang, req.TargetLang)
			if err != nil {
				return eris.Wrapf(err, "pipeline: batch item %d", i)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
