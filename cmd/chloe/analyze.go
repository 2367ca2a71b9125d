package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/chloe/pkg/api/http"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type analyzeOptions struct {
	mode             string
	postsLimit       int
	reactionsLimit   int
	insightsLanguage string
	outreachLanguage string
	companyName      string
	rawData          bool
	skipProfile      bool
	skipInteractions bool
	skipOutreach     bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <linkedin-url>",
		Short: "Analyze one LinkedIn profile and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", string(domain.ModeBalanced), "processing mode: fast, balanced or pro")
	flags.IntVar(&opts.postsLimit, "posts-limit", domain.DefaultPostsLimit, "number of posts to fetch (1-100)")
	flags.IntVar(&opts.reactionsLimit, "reactions-limit", domain.DefaultReactionsLimit, "number of reactions to fetch (1-100)")
	flags.StringVar(&opts.insightsLanguage, "insights-language", domain.DefaultInsightsLanguage, "language of the profile and interactions insights")
	flags.StringVar(&opts.outreachLanguage, "outreach-language", "", "language of the outreach messages (detected from the profile when empty)")
	flags.StringVar(&opts.companyName, "company", "", "company name used in the prompts")
	flags.BoolVar(&opts.rawData, "raw", false, "include the collected data in the response")
	flags.BoolVar(&opts.skipProfile, "no-profile-insight", false, "skip the profile insight")
	flags.BoolVar(&opts.skipInteractions, "no-interactions-insight", false, "skip the interactions insight")
	flags.BoolVar(&opts.skipOutreach, "no-outreach", false, "skip the outreach messages")

	return cmd
}

func runAnalyze(cmd *cobra.Command, url string, opts *analyzeOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// A single analysis keeps runs in process
	cfg.Storage.Backend = "memory"
	cfg.Storage.EventBus = "memory"

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	req := domain.RunRequest{
		LinkedInURL:            url,
		PostsLimit:             opts.postsLimit,
		ReactionsLimit:         opts.reactionsLimit,
		GetProfileInsight:      domain.Bool(!opts.skipProfile),
		GetInteractionsInsight: domain.Bool(!opts.skipInteractions),
		GetOutreachMessages:    domain.Bool(!opts.skipOutreach),
		InsightsLanguage:       opts.insightsLanguage,
		OutreachLanguage:       opts.outreachLanguage,
		GetRawData:             opts.rawData,
		Mode:                   domain.ProcessingMode(opts.mode),
		CompanyName:            opts.companyName,
	}

	record, runErr := a.manager.Invoke(ctx, req)
	if record == nil {
		return runErr
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(http.NewInvokeResponse(record)); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return runErr
}
