package agent

import (
	"fmt"
	"time"

	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/internal/application/workflow"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/aescanero/chloe/pkg/ports"
	"go.uber.org/zap"
)

// Node names
const (
	NodeInit                = "init"
	NodeFetchProfile        = "fetch_profile"
	NodeFetchPosts          = "fetch_posts"
	NodeFetchReactions      = "fetch_reactions"
	NodeDataCollected       = "data_collected"
	NodeProfileInsight      = "profile_insight"
	NodeInteractionsInsight = "interactions_insight"
	NodeOutreachMessages    = "outreach_messages"
	NodeFinal               = "final"
)

// DefaultOutreachLanguage is used when neither the request nor the profile gives one
const DefaultOutreachLanguage = "French"

// Settings are the agent-wide defaults
type Settings struct {
	DefaultOutreachLanguage string
	CompanyName             string
	CompanyContext          string
	Prompts                 PromptTemplates
	// Models maps each processing mode to a model name
	Models map[domain.ProcessingMode]string
}

// Agent builds and runs the nodes of the lead analysis graph
type Agent struct {
	fetcher  ports.Fetcher
	retrier  *structured.Retrier
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	settings Settings
	prompts  *Prompts
	now      func() time.Time
}

// Option configures an Agent
type Option func(*Agent)

// WithMetrics records fetch metrics on m
func WithMetrics(m ports.MetricsCollector) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithClock overrides the clock used for the run date
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// New creates an agent. The retrier carries the shared limiter.
func New(fetcher ports.Fetcher, retrier *structured.Retrier, settings Settings, logger *zap.Logger, opts ...Option) (*Agent, error) {
	if settings.DefaultOutreachLanguage == "" {
		settings.DefaultOutreachLanguage = DefaultOutreachLanguage
	}

	prompts, err := NewPrompts(settings.Prompts)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		fetcher:  fetcher,
		retrier:  retrier,
		logger:   logger,
		settings: settings,
		prompts:  prompts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Graph declares the lead analysis graph
func (a *Agent) Graph() (*workflow.Graph, error) {
	g, err := workflow.NewBuilder().
		AddNode(NodeInit, workflow.FieldDateNow, a.initNode).
		AddNode(NodeFetchProfile,
			workflow.FieldLead|workflow.FieldExperiences|workflow.FieldEducations|
				workflow.FieldCertifications|workflow.FieldProfileRaw|workflow.FieldOutreachLanguage,
			a.fetchProfileNode).
		AddNode(NodeFetchPosts, workflow.FieldPosts|workflow.FieldPostsRaw, a.fetchPostsNode).
		AddNode(NodeFetchReactions, workflow.FieldReactions|workflow.FieldReactionsRaw, a.fetchReactionsNode).
		AddNode(NodeDataCollected, workflow.FieldNone, a.dataCollectedNode).
		AddNode(NodeProfileInsight, workflow.FieldProfileInsight, a.profileInsightNode).
		AddNode(NodeInteractionsInsight, workflow.FieldInteractionsInsight, a.interactionsInsightNode).
		AddNode(NodeOutreachMessages, workflow.FieldOutreachMessages, a.outreachMessagesNode).
		AddNode(NodeFinal, workflow.FieldNone, a.finalNode).
		FanOut(NodeInit, NodeFetchProfile, NodeFetchPosts, NodeFetchReactions).
		FanIn(NodeDataCollected, NodeFetchProfile, NodeFetchPosts, NodeFetchReactions).
		FanOut(NodeDataCollected, NodeProfileInsight, NodeInteractionsInsight, NodeOutreachMessages).
		FanIn(NodeFinal, NodeProfileInsight, NodeInteractionsInsight, NodeOutreachMessages).
		SetEntry(NodeInit).
		SetTerminal(NodeFinal).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build agent graph: %w", err)
	}
	return g, nil
}

// model returns the model configured for the request mode, "" for the provider default
func (a *Agent) model(mode domain.ProcessingMode) string {
	return a.settings.Models[mode]
}

// company returns the seller name and context, request values first
func (a *Agent) company(req domain.RunRequest) (string, string) {
	name := firstNonEmpty(req.CompanyName, a.settings.CompanyName, DefaultCompanyName)
	companyContext := firstNonEmpty(req.CustomCompanyContext, a.settings.CompanyContext, DefaultCompanyContext)
	return name, companyContext
}

func (a *Agent) nodeLogger(state workflow.State, node string) *zap.Logger {
	return a.logger.With(zap.String("run_id", state.RunID), zap.String("node", node))
}

// truncateError keeps warnings short
func truncateError(err error) string {
	msg := err.Error()
	if r := []rune(msg); len(r) > 100 {
		return string(r[:100])
	}
	return msg
}
