package service

import (
	"context"
	"sort"
	"strings"

	"github.com/xxxsen/legalvault/internal/embedcache"
	"github.com/xxxsen/legalvault/internal/model"
)

const (
	SearchLimit    = 50
	AnalyticsLimit = 20
)

type ICaseSource interface {
	Cases() []*model.Case
	CacheInfo() (string, *embedcache.Matrix)
}

type SearchFilter struct {
	Query    string `json:"query"`
	Court    string `json:"court"`
	Outcome  string `json:"outcome"`
	CaseType string `json:"case_type"`
	Act      string `json:"act"`
}

// CaseService answers keyword search and analytics over the cases of the
// current snapshot.
type CaseService struct {
	source ICaseSource
}

func NewCaseService(source ICaseSource) *CaseService {
	return &CaseService{source: source}
}

func (s *CaseService) Search(ctx context.Context, filter SearchFilter) []*model.Case {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	court := strings.ToLower(strings.TrimSpace(filter.Court))
	outcome := strings.ToLower(strings.TrimSpace(filter.Outcome))
	caseType := strings.ToLower(strings.TrimSpace(filter.CaseType))
	act := strings.ToLower(strings.TrimSpace(filter.Act))

	out := make([]*model.Case, 0, SearchLimit)
	for _, c := range s.source.Cases() {
		if query != "" && !matchesKeyword(c, query) {
			continue
		}
		if court != "" && !strings.Contains(strings.ToLower(c.Court.Text()), court) {
			continue
		}
		if outcome != "" && strings.ToLower(c.PredictedOutcome.Text()) != outcome {
			continue
		}
		if caseType != "" && !strings.Contains(strings.ToLower(c.CaseType.Text()), caseType) {
			continue
		}
		if act != "" && !containsAny(c.ActsReferred.Strings(), act) {
			continue
		}
		out = append(out, c)
		if len(out) == SearchLimit {
			break
		}
	}
	return out
}

func matchesKeyword(c *model.Case, keyword string) bool {
	scalars := []model.FieldValue{
		c.CaseID, c.Summary, c.Facts, c.PrimaryLegalIssueValue(),
		c.JudgmentReasoningValue(), c.Arguments, c.Court,
	}
	for _, v := range scalars {
		if strings.Contains(strings.ToLower(v.Flatten()), keyword) {
			return true
		}
	}
	lists := []model.FieldValue{
		c.Judges, c.Petitioners, c.Respondents, c.ActsReferred,
		c.LegalIssuesValue(), c.KeyLegalPointsValue(),
	}
	for _, v := range lists {
		if containsAny(v.Strings(), keyword) {
			return true
		}
	}
	return false
}

func containsAny(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func outcomeOf(c *model.Case) string {
	if o := c.PredictedOutcome.Text(); o != "" {
		return o
	}
	return model.UnknownValue
}

func (s *CaseService) JudgeStatistics(ctx context.Context) []model.JudgeStat {
	index := map[string]int{}
	var out []model.JudgeStat
	for _, c := range s.source.Cases() {
		outcome := outcomeOf(c)
		for _, judge := range c.Judges.Strings() {
			i, ok := index[judge]
			if !ok {
				i = len(out)
				index[judge] = i
				out = append(out, model.JudgeStat{Judge: judge, Outcomes: map[string]int{}})
			}
			out[i].TotalCases++
			out[i].Outcomes[outcome]++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCases > out[j].TotalCases
	})
	return limit(out, AnalyticsLimit)
}

func (s *CaseService) MostCitedActs(ctx context.Context) []model.ActCount {
	keys, counts := s.count(func(c *model.Case) []string {
		return c.ActsReferred.Strings()
	})
	out := make([]model.ActCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.ActCount{Act: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return limit(out, AnalyticsLimit)
}

func (s *CaseService) CourtDistribution(ctx context.Context) []model.CourtCount {
	keys, counts := s.count(func(c *model.Case) []string {
		if court := c.Court.Text(); court != "" {
			return []string{court}
		}
		return []string{model.UnknownValue}
	})
	out := make([]model.CourtCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.CourtCount{Court: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return limit(out, AnalyticsLimit)
}

func (s *CaseService) OutcomeDistribution(ctx context.Context) []model.OutcomeCount {
	keys, counts := s.count(func(c *model.Case) []string {
		return []string{outcomeOf(c)}
	})
	out := make([]model.OutcomeCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.OutcomeCount{Outcome: k, Count: counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return limit(out, AnalyticsLimit)
}

func (s *CaseService) Status(ctx context.Context) *model.CorpusStatus {
	cases := s.source.Cases()
	courts := map[string]struct{}{}
	judges := map[string]struct{}{}
	acts := map[string]struct{}{}
	for _, c := range cases {
		if court := c.Court.Text(); court != "" {
			courts[court] = struct{}{}
		}
		for _, j := range c.Judges.Strings() {
			judges[j] = struct{}{}
		}
		for _, a := range c.ActsReferred.Strings() {
			acts[a] = struct{}{}
		}
	}
	st := &model.CorpusStatus{
		Status:      "ready",
		TotalCases:  len(cases),
		TotalCourts: len(courts),
		TotalJudges: len(judges),
		TotalActs:   len(acts),
	}
	if len(cases) == 0 {
		st.Status = "no_data"
	}
	state, matrix := s.source.CacheInfo()
	st.CacheState = state
	if matrix != nil {
		st.Model = matrix.ModelName
		st.Device = matrix.Device
		st.Dimension = matrix.Dimension
	}
	return st
}

// count tallies keys in first-seen order.
func (s *CaseService) count(keysOf func(c *model.Case) []string) ([]string, map[string]int) {
	var order []string
	counts := map[string]int{}
	for _, c := range s.source.Cases() {
		for _, k := range keysOf(c) {
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	return order, counts
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	if items == nil {
		return []T{}
	}
	return items
}
