package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/expensebook/sheetsync/internal/config"
	"github.com/expensebook/sheetsync/internal/id"
	"github.com/expensebook/sheetsync/internal/model"
	"github.com/expensebook/sheetsync/internal/report"
)

// Options controls a Pipeline.
type Options struct {
	Rules               []Rule
	AnchorRoles         []model.ColumnRole
	FallbackColumn      int
	StrictLabel         bool
	IncludeUnconfigured bool
	RequiredFields      []string
	Workers             int
}

// NewOptions derives pipeline options from a loaded config.
func NewOptions(cfg *config.Config) (Options, error) {
	opts := Options{
		FallbackColumn:      cfg.Anchor.FallbackColumn,
		StrictLabel:         cfg.StrictLabel,
		IncludeUnconfigured: cfg.IncludeUnconfiguredSheets,
		RequiredFields:      cfg.RequiredFields,
		Workers:             cfg.Workers,
	}
	for _, r := range cfg.Rules {
		role, err := model.ParseRole(r.Role)
		if err != nil {
			return Options{}, fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
		}
		opts.Rules = append(opts.Rules, Rule{Role: role, Keywords: r.Keywords})
	}
	for _, s := range cfg.Anchor.Roles {
		role, err := model.ParseRole(s)
		if err != nil {
			return Options{}, fmt.Errorf("%w: anchor: %w", model.ErrConfigInvalid, err)
		}
		opts.AnchorRoles = append(opts.AnchorRoles, role)
	}
	return opts, nil
}

// Result is the outcome of a conversion run.
type Result struct {
	Dataset  model.Dataset
	Outcomes []report.Outcome // one per input table, in input order
}

// Summary aggregates the run's outcomes.
func (r *Result) Summary() report.Summary {
	return report.Summarize(r.Outcomes)
}

// Pipeline turns sheet tables into a Dataset.
type Pipeline struct {
	opts       Options
	catalog    *config.Catalog
	classifier *Classifier
	reconciler *Reconciler
	assembler  *Assembler
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline returns a Pipeline. A nil catalog means no sheet is
// configured; a nil logger discards output.
func NewPipeline(opts Options, catalog *config.Catalog, ids *id.Generator, logger *slog.Logger) *Pipeline {
	if catalog == nil {
		catalog = config.NewCatalog(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		opts:       opts,
		catalog:    catalog,
		classifier: NewClassifier(opts.Rules),
		reconciler: NewReconciler(opts.AnchorRoles, opts.FallbackColumn, opts.StrictLabel),
		assembler:  NewAssembler(catalog, ids, opts.RequiredFields),
		logger:     logger,
		now:        time.Now,
	}
}

type sheetResult struct {
	coerced Coerced
	outcome report.Outcome
}

// Run converts tables concurrently. Records keep input order; a failing
// sheet is reported in Outcomes and never aborts the run. Only context
// cancellation is returned as an error.
func (p *Pipeline) Run(ctx context.Context, tables []model.Table) (*Result, error) {
	results := make([]sheetResult, len(tables))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, t := range tables {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.prepare(t)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Dataset:  model.Dataset{Timestamp: p.now().UnixMilli(), Data: []model.CategoryRecord{}},
		Outcomes: make([]report.Outcome, len(tables)),
	}
	for i, r := range results {
		res.Outcomes[i] = r.outcome
		if r.outcome.Status != report.SheetConverted {
			continue
		}
		res.Dataset.Data = append(res.Dataset.Data, p.assembler.Assemble(tables[i].Name, r.coerced))
	}
	return res, nil
}

// Process converts a single table.
func (p *Pipeline) Process(t model.Table) (*model.CategoryRecord, report.Outcome) {
	r := p.prepare(t)
	if r.outcome.Status != report.SheetConverted {
		return nil, r.outcome
	}
	rec := p.assembler.Assemble(t.Name, r.coerced)
	return &rec, r.outcome
}

func (p *Pipeline) prepare(t model.Table) sheetResult {
	out := report.Outcome{Sheet: t.Name, RowsIn: len(t.Rows)}

	if !p.opts.IncludeUnconfigured && !p.catalog.Exists(t.Name) {
		out.Status = report.SheetSkipped
		out.Reason = "not in category config"
		p.logger.Debug("sheet skipped", "sheet", t.Name, "reason", out.Reason)
		return sheetResult{outcome: out}
	}
	if len(t.Columns) == 0 {
		out.Status = report.SheetSkipped
		out.Reason = "sheet has no header row"
		p.logger.Debug("sheet skipped", "sheet", t.Name, "reason", out.Reason)
		return sheetResult{outcome: out}
	}

	roles := p.classifier.ClassifyTable(t)
	rec, err := p.reconciler.Reconcile(t, roles)
	if err != nil {
		out.Status = report.SheetFailed
		out.Err = err
		p.logger.Warn("sheet failed", "sheet", t.Name, "error", err)
		return sheetResult{outcome: out}
	}

	coerced := Coerce(rec.Table, roles)
	out.Status = report.SheetConverted
	out.RowsKept = len(rec.Table.Rows)
	out.BlankDropped = rec.BlankDropped
	out.DeadDropped = rec.DeadDropped
	out.Fallbacks = coerced.Fallbacks
	p.logger.Info("sheet converted",
		"sheet", t.Name,
		"label", roles.Label,
		"anchors", rec.Anchors,
		"rows", out.RowsKept,
		"dropped", out.BlankDropped+out.DeadDropped,
		"fallbacks", out.Fallbacks,
	)
	return sheetResult{coerced: coerced, outcome: out}
}

// Trim cleans tables without coercing them: blank rows and columns are
// dropped, the label column is filled and rows without an anchor value are
// removed. A table that cannot be reconciled is returned unchanged with a
// failed outcome.
func (p *Pipeline) Trim(ctx context.Context, tables []model.Table) ([]model.Table, []report.Outcome, error) {
	cleaned := make([]model.Table, len(tables))
	outcomes := make([]report.Outcome, len(tables))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, t := range tables {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			cleaned[i], outcomes[i] = p.trim(t)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return cleaned, outcomes, nil
}

func (p *Pipeline) trim(t model.Table) (model.Table, report.Outcome) {
	out := report.Outcome{Sheet: t.Name, RowsIn: len(t.Rows)}

	compact := DropBlankColumns(t.WithRows(DropBlankRows(t.Rows)))
	out.BlankDropped = len(t.Rows) - len(compact.Rows)
	if len(compact.Columns) == 0 {
		out.Status = report.SheetSkipped
		out.Reason = "sheet is empty"
		return compact, out
	}

	roles := p.classifier.ClassifyTable(compact)
	rec, err := p.reconciler.Reconcile(compact, roles)
	if err != nil {
		out.Status = report.SheetFailed
		out.Err = err
		p.logger.Warn("sheet left untrimmed", "sheet", t.Name, "error", err)
		return t, out
	}

	out.Status = report.SheetConverted
	out.RowsKept = len(rec.Table.Rows)
	out.DeadDropped = rec.DeadDropped
	p.logger.Info("sheet trimmed", "sheet", t.Name, "rows", out.RowsKept, "dropped", out.BlankDropped+out.DeadDropped)
	return rec.Table, out
}
