package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"trackline-backend/application/ports"
	"trackline-backend/domain/analysis"
	"trackline-backend/domain/core/entities"
	pkgerrors "trackline-backend/pkg/errors"
)

const (
	// contextCharCap bounds how much of each project's context is sent
	contextCharCap = 500

	// tokenEstimateRatio converts a record's character count to estimated tokens
	tokenEstimateRatio = 0.4

	defaultRequestTokenBudget    = 20000
	defaultMaxProjectsPerRequest = 40
)

// ProjectSummary is the compact representation of a project offered to
// the reasoner for duplicate detection and echoed back in previews
type ProjectSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Context      string `json:"context,omitempty"`
	UpdatesCount int    `json:"updatesCount"`
	TasksCount   int    `json:"tasksCount"`
}

// GroupPreview describes one proposed merge with the summaries the
// operator needs to judge it
type GroupPreview struct {
	Group   analysis.ConsolidationGroup `json:"group"`
	Keep    ProjectSummary              `json:"keep"`
	Sources []ProjectSummary            `json:"sources"`
	Summary string                      `json:"summary"`
}

// Preview is the result of a consolidation analysis. Nothing is mutated;
// the caller decides whether to execute the proposed groups.
type Preview struct {
	Groups    []GroupPreview `json:"groups"`
	NoChanges bool           `json:"noChanges"`
	Errors    []string       `json:"errors,omitempty"`
}

// ConsolidationAnalyzer scans a user's full project list for duplicates.
// Large lists are split into token-bounded batches analyzed concurrently;
// each batch is validated in isolation so one bad verdict cannot poison
// the others.
type ConsolidationAnalyzer struct {
	reasoner      ports.Reasoner
	logger        *zap.Logger
	tokenBudget   int
	maxPerRequest int
}

// NewConsolidationAnalyzer creates a consolidation analyzer. Zero budget
// or batch cap values fall back to defaults.
func NewConsolidationAnalyzer(reasoner ports.Reasoner, logger *zap.Logger, tokenBudget, maxPerRequest int) *ConsolidationAnalyzer {
	if tokenBudget <= 0 {
		tokenBudget = defaultRequestTokenBudget
	}
	if maxPerRequest <= 0 {
		maxPerRequest = defaultMaxProjectsPerRequest
	}
	return &ConsolidationAnalyzer{
		reasoner:      reasoner,
		logger:        logger,
		tokenBudget:   tokenBudget,
		maxPerRequest: maxPerRequest,
	}
}

const consolidationSystemPrompt = `You find duplicate projects in a user's project list. Projects are duplicates when they clearly describe the same effort, possibly under different names or abbreviations.

For each set of duplicates, list every duplicate project in sourceProjectIds, pick the one to keep as keepProjectId (it must be one of sourceProjectIds), and provide a merged name and merged context preserving information from all of them. Only reference project IDs given to you. A project may appear in at most one group. If there are no duplicates, return an empty list.

Respond with JSON only:
{
  "groups": [
    {"sourceProjectIds": ["<id>", "<id>", ...], "keepProjectId": "<id>", "mergedName": "...", "mergedContext": "...", "reasoning": "..."}
  ]
}`

// Analyze proposes consolidation groups for the given projects without
// mutating anything. taskCounts maps project ID to its assigned task count
// and may be nil.
func (a *ConsolidationAnalyzer) Analyze(ctx context.Context, projects []*entities.Project, taskCounts map[string]int) (*Preview, error) {
	if len(projects) < 2 {
		return &Preview{Groups: []GroupPreview{}, NoChanges: true}, nil
	}

	records := make([]ProjectSummary, 0, len(projects))
	summaries := make(map[string]ProjectSummary, len(projects))
	for _, p := range projects {
		record := buildRecord(p, taskCounts[p.ID().String()])
		records = append(records, record)
		summaries[record.ID] = record
	}

	batches := a.splitBatches(records)
	a.logger.Info("analyzing projects for consolidation",
		zap.Int("projects", len(projects)),
		zap.Int("batches", len(batches)))

	type batchResult struct {
		groups []analysis.ConsolidationGroup
		err    error
	}
	results := make([]batchResult, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []ProjectSummary) {
			defer wg.Done()
			groups, err := a.analyzeBatch(ctx, batch)
			results[i] = batchResult{groups: groups, err: err}
		}(i, batch)
	}
	wg.Wait()

	var allGroups []analysis.ConsolidationGroup
	var errs []string
	failed := 0
	for i, r := range results {
		if r.err != nil {
			failed++
			errs = append(errs, fmt.Sprintf("batch %d: %v", i+1, r.err))
			continue
		}
		allGroups = append(allGroups, r.groups...)
	}

	if failed == len(batches) {
		return nil, pkgerrors.NewExternalError("consolidation analysis",
			fmt.Errorf("all %d batches failed: %s", len(batches), strings.Join(errs, "; ")))
	}

	accepted := a.resolveOverlaps(allGroups)

	preview := &Preview{
		Groups:    make([]GroupPreview, 0, len(accepted)),
		NoChanges: len(accepted) == 0,
		Errors:    errs,
	}
	for _, g := range accepted {
		keep := summaries[g.KeepProjectID]
		sources := make([]ProjectSummary, 0, len(g.SourceProjectIDs)-1)
		absorbedNames := make([]string, 0, len(g.SourceProjectIDs)-1)
		for _, id := range g.SourceProjectIDs {
			if id != g.KeepProjectID {
				sources = append(sources, summaries[id])
				absorbedNames = append(absorbedNames, summaries[id].Name)
			}
		}
		preview.Groups = append(preview.Groups, GroupPreview{
			Group:   g,
			Keep:    keep,
			Sources: sources,
			Summary: fmt.Sprintf("Merge %s into %q as %q",
				strings.Join(quoteAll(absorbedNames), ", "), keep.Name, g.MergedName),
		})
	}

	return preview, nil
}

// analyzeBatch runs one reasoner call and validates its verdict against
// only the projects in this batch
func (a *ConsolidationAnalyzer) analyzeBatch(ctx context.Context, batch []ProjectSummary) ([]analysis.ConsolidationGroup, error) {
	raw, err := a.reasoner.Complete(ctx, consolidationSystemPrompt, buildBatchPrompt(batch))
	if err != nil {
		return nil, err
	}

	result, err := analysis.ParseConsolidationAnalysis(raw)
	if err != nil {
		return nil, err
	}

	batchIDs := make(map[string]bool, len(batch))
	for _, r := range batch {
		batchIDs[r.ID] = true
	}
	for i := range result.Groups {
		if err := result.Groups[i].Validate(batchIDs); err != nil {
			return nil, err
		}
	}

	return result.Groups, nil
}

// resolveOverlaps enforces that each project appears in at most one group.
// Groups are considered in order and the first claim on a project wins.
func (a *ConsolidationAnalyzer) resolveOverlaps(groups []analysis.ConsolidationGroup) []analysis.ConsolidationGroup {
	claimed := make(map[string]bool)
	accepted := make([]analysis.ConsolidationGroup, 0, len(groups))

	for _, g := range groups {
		overlap := false
		for _, id := range g.SourceProjectIDs {
			if claimed[id] {
				overlap = true
				break
			}
		}
		if overlap {
			a.logger.Warn("skipping consolidation group overlapping an earlier group",
				zap.String("keepProjectId", g.KeepProjectID),
				zap.Strings("sourceProjectIds", g.SourceProjectIDs))
			continue
		}
		for _, id := range g.SourceProjectIDs {
			claimed[id] = true
		}
		accepted = append(accepted, g)
	}

	return accepted
}

// splitBatches packs records into batches bounded by the token budget and
// the per-request project cap. A record too large on its own still gets a
// batch to itself.
func (a *ConsolidationAnalyzer) splitBatches(records []ProjectSummary) [][]ProjectSummary {
	var batches [][]ProjectSummary
	var current []ProjectSummary
	currentTokens := 0

	for _, r := range records {
		tokens := estimateTokens(r)
		if len(current) > 0 && (currentTokens+tokens > a.tokenBudget || len(current) >= a.maxPerRequest) {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, r)
		currentTokens += tokens
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

func buildRecord(p *entities.Project, tasksCount int) ProjectSummary {
	return ProjectSummary{
		ID:           p.ID().String(),
		Name:         p.Name(),
		Context:      truncateContext(p.Context()),
		UpdatesCount: len(p.Updates()),
		TasksCount:   tasksCount,
	}
}

func truncateContext(s string) string {
	if len(s) <= contextCharCap {
		return s
	}
	return s[:contextCharCap] + "..."
}

func estimateTokens(r ProjectSummary) int {
	chars := len(r.ID) + len(r.Name) + len(r.Context)
	return int(float64(chars) * tokenEstimateRatio)
}

func buildBatchPrompt(batch []ProjectSummary) string {
	var sb strings.Builder
	sb.WriteString("## Projects\n\n")
	for _, r := range batch {
		fmt.Fprintf(&sb, "- id: %s\n  name: %s\n", r.ID, r.Name)
		if r.Context != "" {
			fmt.Fprintf(&sb, "  context: %s\n", r.Context)
		}
		fmt.Fprintf(&sb, "  updates: %d\n  tasks: %d\n", r.UpdatesCount, r.TasksCount)
	}
	return sb.String()
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
