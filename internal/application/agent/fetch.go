package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aescanero/chloe/internal/application/workflow"
	"go.uber.org/zap"
)

// Warnings produced while collecting data
const (
	WarnNoExperience    = "No professional experience found in LinkedIn profile. Profile insight may be limited."
	WarnNoEducation     = "No education information found in LinkedIn profile."
	WarnDefaultLanguage = "No preferred language detected from profile. Defaulting outreach language to %s."
	WarnNoPosts         = "No LinkedIn posts found for this profile. Interactions insight and post comments will be limited."
	WarnFewPosts        = "Only %d posts found (requested %d). Lead may have limited posting activity."
	WarnNoReactions     = "No LinkedIn reactions found for this profile. Interactions insight will be based solely on posts."
	WarnFewReactions    = "Only %d reactions found (requested %d). Lead may have limited engagement activity."
	WarnFetchFailed     = "Failed to fetch LinkedIn %s: %s"
	WarnTransformFailed = "Failed to read LinkedIn %s data: %s"
)

func warnf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

func (a *Agent) initNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	a.nodeLogger(state, NodeInit).Info("initializing run",
		zap.String("linkedin_url", state.Request.LinkedInURL),
		zap.String("mode", string(state.Request.Mode)))

	p := workflow.NewPatch()
	p.DateNow.Set(a.now().UTC())
	return p, nil
}

// fetch calls one scraper method, cleans the payload and records metrics.
// Failures are returned as a warning.
func (a *Agent) fetch(ctx context.Context, logger *zap.Logger, category string, call func(context.Context) (json.RawMessage, error)) (json.RawMessage, string) {
	start := time.Now()
	raw, err := call(ctx)
	if err == nil {
		raw, err = cleanRaw(raw)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	if a.metrics != nil {
		a.metrics.RecordFetch(category, status, time.Since(start))
	}

	if err != nil {
		logger.Error("fetch failed", zap.String("category", category), zap.Error(err))
		return nil, warnf(WarnFetchFailed, category, truncateError(err))
	}
	return raw, ""
}

func (a *Agent) fetchProfileNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeFetchProfile)
	req := state.Request
	p := workflow.NewPatch()

	raw, warning := a.fetch(ctx, logger, "profile", func(ctx context.Context) (json.RawMessage, error) {
		return a.fetcher.FetchProfile(ctx, req.LinkedInURL)
	})

	detected := ""
	if warning != "" {
		p.Warn(warning)
	} else {
		p.ProfileRaw.Set(raw)
		profile, err := TransformProfile(raw, req.LinkedInURL, logger)
		if err != nil {
			logger.Error("failed to transform profile", zap.Error(err))
			p.Warnf(WarnTransformFailed, "profile", truncateError(err))
		} else {
			detected = profile.Lead.Languages
			p.Lead.Set(profile.Lead)
			p.Experiences.Set(profile.Experiences)
			p.Educations.Set(profile.Educations)
			p.Certifications.Set(profile.Certifications)

			if len(profile.Experiences) == 0 {
				logger.Warn(WarnNoExperience)
				p.Warn(WarnNoExperience)
			}
			if len(profile.Educations) == 0 {
				logger.Warn(WarnNoEducation)
				p.Warn(WarnNoEducation)
			}
			if len(profile.Certifications) == 0 {
				logger.Info("no certifications found in profile")
			}
		}
	}

	language, fallback := ResolveOutreachLanguage(req.OutreachLanguage, detected, a.settings.DefaultOutreachLanguage)
	if fallback {
		msg := warnf(WarnDefaultLanguage, language)
		logger.Warn(msg)
		p.Warn(msg)
	}
	p.OutreachLanguage.Set(language)

	logger.Info("profile collected",
		zap.String("outreach_language", language),
		zap.Int("warnings", len(p.Warnings)))
	return p, nil
}

func (a *Agent) fetchPostsNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeFetchPosts)
	req := state.Request
	p := workflow.NewPatch()

	raw, warning := a.fetch(ctx, logger, "posts", func(ctx context.Context) (json.RawMessage, error) {
		return a.fetcher.FetchPosts(ctx, req.LinkedInURL, req.PostsLimit)
	})
	if warning != "" {
		p.Warn(warning)
		return p, nil
	}

	p.PostsRaw.Set(raw)
	posts, err := TransformPosts(raw, logger)
	if err != nil {
		logger.Error("failed to transform posts", zap.Error(err))
		p.Warnf(WarnTransformFailed, "posts", truncateError(err))
		return p, nil
	}
	p.Posts.Set(posts)

	switch {
	case len(posts) == 0:
		logger.Warn(WarnNoPosts)
		p.Warn(WarnNoPosts)
	case len(posts) < req.PostsLimit:
		msg := warnf(WarnFewPosts, len(posts), req.PostsLimit)
		logger.Warn(msg)
		p.Warn(msg)
	}

	logger.Info("posts collected", zap.Int("count", len(posts)))
	return p, nil
}

func (a *Agent) fetchReactionsNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeFetchReactions)
	req := state.Request
	p := workflow.NewPatch()

	raw, warning := a.fetch(ctx, logger, "reactions", func(ctx context.Context) (json.RawMessage, error) {
		return a.fetcher.FetchReactions(ctx, req.LinkedInURL, req.ReactionsLimit)
	})
	if warning != "" {
		p.Warn(warning)
		return p, nil
	}

	p.ReactionsRaw.Set(raw)
	reactions, err := TransformReactions(raw, logger)
	if err != nil {
		logger.Error("failed to transform reactions", zap.Error(err))
		p.Warnf(WarnTransformFailed, "reactions", truncateError(err))
		return p, nil
	}
	p.Reactions.Set(reactions)

	switch {
	case len(reactions) == 0:
		logger.Warn(WarnNoReactions)
		p.Warn(WarnNoReactions)
	case len(reactions) < req.ReactionsLimit:
		msg := warnf(WarnFewReactions, len(reactions), req.ReactionsLimit)
		logger.Warn(msg)
		p.Warn(msg)
	}

	logger.Info("reactions collected", zap.Int("count", len(reactions)))
	return p, nil
}

func (a *Agent) dataCollectedNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	a.nodeLogger(state, NodeDataCollected).Info("data collection completed",
		zap.Bool("has_lead", state.Lead != nil),
		zap.Int("experiences", len(state.Experiences)),
		zap.Int("posts", len(state.Posts)),
		zap.Int("reactions", len(state.Reactions)),
		zap.Int("warnings", len(state.Warnings)))
	return nil, nil
}

func (a *Agent) finalNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	a.nodeLogger(state, NodeFinal).Info("analysis completed",
		zap.Bool("profile_insight", state.ProfileInsight != nil),
		zap.Bool("interactions_insight", state.InteractionsInsight != nil),
		zap.Bool("outreach_messages", state.OutreachMessages != nil),
		zap.Int("warnings", len(state.Warnings)))
	return nil, nil
}
