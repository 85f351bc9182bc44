package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type IReloader interface {
	Reload(ctx context.Context) (bool, error)
}

// CorpusReloadJob picks up corpus files rewritten by an external ingestion
// run.
type CorpusReloadJob struct {
	svc IReloader
}

func NewCorpusReloadJob(svc IReloader) *CorpusReloadJob {
	return &CorpusReloadJob{svc: svc}
}

func (j *CorpusReloadJob) Name() string {
	return "corpus_reload"
}

func (j *CorpusReloadJob) Run(ctx context.Context) error {
	changed, err := j.svc.Reload(ctx)
	if err != nil {
		return err
	}
	if changed {
		logutil.GetLogger(ctx).Info("corpus reloaded")
	}
	return nil
}
