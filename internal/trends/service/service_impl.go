package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/scyra/scyra/internal/clock"
	ledgerdomain "github.com/scyra/scyra/internal/ledger/domain"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	"github.com/scyra/scyra/internal/ratelimit"
	researchdomain "github.com/scyra/scyra/internal/research/domain"
	searchdomain "github.com/scyra/scyra/internal/search/domain"
	"github.com/scyra/scyra/internal/trends/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const rateLimitEndpoint = "trends:generate"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Profiles    profiledomain.Service
	ProfileRepo profiledomain.Repository
	Ledger      ledgerdomain.Service
	Planner     researchdomain.Planner
	Synthesizer researchdomain.Synthesizer
	Search      searchdomain.Service
	Limiter     *ratelimit.FixedWindow
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	profiles    profiledomain.Service
	profileRepo profiledomain.Repository
	ledger      ledgerdomain.Service
	planner     researchdomain.Planner
	synthesizer researchdomain.Synthesizer
	search      searchdomain.Service
	limiter     *ratelimit.FixedWindow
	obsMetrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("trends.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		profiles:    p.Profiles,
		profileRepo: p.ProfileRepo,
		ledger:      p.Ledger,
		planner:     p.Planner,
		synthesizer: p.Synthesizer,
		search:      p.Search,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Report, error) {
	report, outcome, err := s.generate(ctx, req)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordTrendRequest(ctx, outcome)
	}
	return report, err
}

func (s *Service) generate(ctx context.Context, req domain.GenerateRequest) (*domain.Report, string, error) {
	niche := strings.TrimSpace(req.Niche)
	if niche == "" || utf8.RuneCountInString(niche) > domain.MaxNicheLength {
		return nil, "invalid", domain.ErrInvalidNiche
	}

	if err := s.limiter.Allow(ctx, rateLimitEndpoint, "user:"+req.UserID.String()); err != nil {
		return nil, "rate_limited", err
	}

	profile, err := s.profiles.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, "storage_error", err
	}
	if profile.Credits < 1 {
		return nil, "insufficient_credits", profiledomain.ErrInsufficientCredits
	}

	log := s.log.With(
		zap.String("user_id", req.UserID.String()),
		zap.String("niche", niche),
	)

	plan, err := s.planner.BuildPlan(ctx, niche)
	if err != nil {
		log.Warn("search plan failed", zap.Error(err))
		return nil, "upstream_error", upstream(err)
	}

	evidence, err := s.gatherEvidence(ctx, log, niche, plan)
	if err != nil {
		return nil, "upstream_error", err
	}

	analysis, err := s.synthesizer.Analyze(ctx, niche, evidence)
	if err != nil {
		log.Warn("trend analysis failed", zap.Error(err))
		return nil, "upstream_error", upstream(err)
	}
	summary, err := s.synthesizer.Summarize(ctx, niche)
	if err != nil {
		log.Warn("trend summary failed", zap.Error(err))
		return nil, "upstream_error", upstream(err)
	}

	if err := s.commit(ctx, req.UserID, niche, plan, analysis, summary); err != nil {
		if errors.Is(err, profiledomain.ErrInsufficientCredits) {
			return nil, "insufficient_credits", err
		}
		log.Error("trend request commit failed", zap.Error(err))
		return nil, "storage_error", err
	}

	log.Info("trend report generated", zap.Int("sources", len(evidence)))
	return buildReport(niche, summary, plan, analysis, len(evidence)), "success", nil
}

type callPolicy int

const (
	callFatal callPolicy = iota
	callSkippable
)

type searchCall struct {
	label        string
	query        string
	numResults   int
	excerptChars int
	policy       callPolicy
}

// evidencePlan lays out every provider call up front: the primary niche
// search must succeed, the narrower follow-ups may be skipped.
func evidencePlan(niche string, plan *researchdomain.SearchPlan) []searchCall {
	calls := []searchCall{
		{label: "primary", query: niche, numResults: 10, excerptChars: 2000, policy: callFatal},
	}
	terms := plan.SearchTerms
	if len(terms) > 3 {
		terms = terms[:3]
	}
	for _, term := range terms {
		calls = append(calls, searchCall{
			label: "term", query: term, numResults: 5, excerptChars: 1500, policy: callSkippable,
		})
	}
	calls = append(calls, searchCall{
		label: "forums", query: niche + " reddit discussions", numResults: 5, excerptChars: 1500, policy: callSkippable,
	})
	return calls
}

func (s *Service) gatherEvidence(ctx context.Context, log *zap.Logger, niche string, plan *researchdomain.SearchPlan) ([]researchdomain.EvidenceItem, error) {
	var evidence []researchdomain.EvidenceItem
	for _, call := range evidencePlan(niche, plan) {
		results, err := s.search.Search(ctx, searchdomain.SearchRequest{
			Query:        call.query,
			NumResults:   call.numResults,
			ExcerptChars: call.excerptChars,
		})
		if err != nil {
			if call.policy == callFatal {
				log.Warn("evidence search failed",
					zap.String("call", call.label),
					zap.String("query", call.query),
					zap.Error(err),
				)
				return nil, upstream(err)
			}
			log.Warn("evidence search skipped",
				zap.String("call", call.label),
				zap.String("query", call.query),
				zap.Error(err),
			)
			continue
		}
		for _, result := range results {
			evidence = append(evidence, researchdomain.EvidenceItem{
				Title:   result.Title,
				URL:     result.URL,
				Excerpt: result.Excerpt,
			})
		}
	}
	return evidence, nil
}

// commit is the single transactional unit: the conditional debit, its
// ledger posting, and the immutable request row succeed or fail together.
func (s *Service) commit(ctx context.Context, userID snowflake.ID, niche string, plan *researchdomain.SearchPlan, analysis *researchdomain.Analysis, summary string) error {
	result, err := json.Marshal(map[string]any{
		"themes":         analysis.Themes,
		"ideas":          analysis.Ideas,
		"stats":          analysis.Stats,
		"insights":       analysis.Insights,
		"searchStrategy": plan,
		"summary":        summary,
		"timestamp":      s.clock.Now().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.profileRepo.Debit(ctx, tx, userID, 1); err != nil {
			return err
		}
		if err := s.ledger.Record(ctx, tx, ledgerdomain.Entry{
			UserID: userID,
			Amount: -1,
			Type:   ledgerdomain.EntryTypeDebit,
			Reason: fmt.Sprintf("Trend generation for: %s", niche),
		}); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &domain.TrendRequest{
			ID:          s.genID.Generate(),
			UserID:      userID,
			Niche:       niche,
			CreditsUsed: 1,
			Result:      datatypes.JSON(result),
			CreatedAt:   s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordCreditDebit(ctx, 1)
	}
	return nil
}

func buildReport(niche, summary string, plan *researchdomain.SearchPlan, analysis *researchdomain.Analysis, sources int) *domain.Report {
	return &domain.Report{
		Niche:   niche,
		Summary: summary,
		Themes:  analysis.Themes,
		Ideas:   analysis.Ideas,
		Stats: domain.ReportStats{
			SourcesAnalyzed:  sources,
			TrendingVelocity: analysis.Stats.TrendingVelocity,
			EngagementScore:  analysis.Stats.EngagementScore,
			ContentGaps:      analysis.Stats.ContentGaps,
			Sites:            plan.Sites,
			Forums:           plan.Forums,
		},
		Insights: analysis.Insights,
	}
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.TrendRequest, error) {
	return s.repo.ListByUser(ctx, req.UserID, req.Limit)
}

// upstream tags a pipeline dependency failure for boundary mapping.
func upstream(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}
