package agent

import (
	"context"
	"time"

	"github.com/aescanero/chloe/internal/application/structured"
	"github.com/aescanero/chloe/internal/application/workflow"
	"github.com/aescanero/chloe/pkg/domain"
	"go.uber.org/zap"
)

// Warnings produced while generating insights
const (
	WarnNoLead                = "LinkedIn profile unavailable. Profile insight will be based on the profile URL only."
	WarnNoActivity            = "No posts or reactions available. Interactions insight will be very limited or generic."
	WarnNoPostsForComments    = "No posts available for commenting. Post comment suggestions will be empty."
	WarnProfileExhausted      = "Failed to generate profile insight after multiple attempts. Profile analysis unavailable."
	WarnInteractionsExhausted = "Failed to generate interactions insight after multiple attempts. Engagement analysis unavailable."
	WarnOutreachExhausted     = "Failed to generate outreach messages after multiple attempts. No outreach suggestions available."
	WarnGenerationError       = "Error generating %s: %s"
)

const dateLayout = "2006-01-02 15:04:05"

// leadOrMinimal returns the collected lead, or one carrying only the URL
func leadOrMinimal(state workflow.State) *domain.Lead {
	if state.Lead != nil {
		return state.Lead
	}
	return &domain.Lead{LinkedInURL: state.Request.LinkedInURL}
}

func (a *Agent) dateNow(state workflow.State) string {
	if state.DateNow.IsZero() {
		return a.now().UTC().Format(dateLayout)
	}
	return state.DateNow.Format(dateLayout)
}

func (a *Agent) profileInsightNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeProfileInsight)
	req := state.Request
	if !req.ProfileInsightEnabled() {
		logger.Info("profile insight disabled, skipping")
		return nil, nil
	}

	p := workflow.NewPatch()
	if state.Lead == nil {
		logger.Warn(WarnNoLead)
		p.Warn(WarnNoLead)
	}
	lead := leadOrMinimal(state)
	companyName, companyContext := a.company(req)

	prompt, err := a.prompts.Profile(req.CustomProfilePrompt, ProfilePromptData{
		CompanyName:      companyName,
		CompanyContext:   companyContext,
		DateNow:          a.dateNow(state),
		InsightsLanguage: req.InsightsLanguage,
		FullName:         orDefault(lead.FullName, "Unknown"),
		Headline:         orDefault(lead.Headline, "N/A"),
		CurrentTitle:     orDefault(lead.CurrentTitle, "N/A"),
		CurrentCompany:   orDefault(lead.CurrentCompany, "N/A"),
		Location:         orDefault(lead.Location, "N/A"),
		Languages:        orDefault(lead.Languages, "N/A"),
		Experiences:      FormatExperiences(state.Experiences),
		Educations:       FormatEducations(state.Educations),
		Certifications:   FormatCertifications(state.Certifications),
	})
	if err != nil {
		logger.Error("failed to render prompt", zap.Error(err))
		p.Warnf(WarnGenerationError, "profile insight", truncateError(err))
		return p, nil
	}

	res := generate[domain.ProfileInsight](ctx, a, logger, NodeProfileInsight, prompt, req.Mode)
	if !res.Ok() {
		p.Warn(WarnProfileExhausted)
		return p, nil
	}

	logger.Debug("profile insight generated", zap.Float64("confidence", res.Value.Confidence))
	p.ProfileInsight.Set(&res.Value)
	return p, nil
}

func (a *Agent) interactionsInsightNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeInteractionsInsight)
	req := state.Request
	if !req.InteractionsInsightEnabled() {
		logger.Info("interactions insight disabled, skipping")
		return nil, nil
	}

	p := workflow.NewPatch()
	if len(state.Posts) == 0 && len(state.Reactions) == 0 {
		logger.Warn(WarnNoActivity)
		p.Warn(WarnNoActivity)
	}
	lead := leadOrMinimal(state)
	companyName, companyContext := a.company(req)

	prompt, err := a.prompts.Interactions(req.CustomInteractionsPrompt, InteractionsPromptData{
		CompanyName:      companyName,
		CompanyContext:   companyContext,
		DateNow:          a.dateNow(state),
		InsightsLanguage: req.InsightsLanguage,
		FullName:         orDefault(lead.FullName, "Unknown"),
		CurrentTitle:     orDefault(lead.CurrentTitle, "N/A"),
		CurrentCompany:   orDefault(lead.CurrentCompany, "N/A"),
		PostsCount:       len(state.Posts),
		Posts:            FormatPosts(state.Posts, promptPostsLimit),
		ReactionsCount:   len(state.Reactions),
		Reactions:        FormatReactions(state.Reactions, promptReactionsLimit),
	})
	if err != nil {
		logger.Error("failed to render prompt", zap.Error(err))
		p.Warnf(WarnGenerationError, "interactions insight", truncateError(err))
		return p, nil
	}

	res := generate[domain.InteractionsInsight](ctx, a, logger, NodeInteractionsInsight, prompt, req.Mode)
	if !res.Ok() {
		p.Warn(WarnInteractionsExhausted)
		return p, nil
	}

	logger.Debug("interactions insight generated", zap.Float64("confidence", res.Value.Confidence))
	p.InteractionsInsight.Set(&res.Value)
	return p, nil
}

func (a *Agent) outreachMessagesNode(ctx context.Context, state workflow.State) (*workflow.Patch, error) {
	logger := a.nodeLogger(state, NodeOutreachMessages)
	req := state.Request
	if !req.OutreachMessagesEnabled() {
		logger.Info("outreach messages disabled, skipping")
		return nil, nil
	}

	p := workflow.NewPatch()
	profileSummary := "No profile insight available"
	if state.ProfileInsight != nil {
		profileSummary = state.ProfileInsight.Summary
	} else {
		logger.Info("profile insight unavailable, outreach personalization will be limited")
	}
	interactionsSummary := "No interactions insight available"
	if state.InteractionsInsight != nil {
		interactionsSummary = state.InteractionsInsight.Summary
	} else {
		logger.Info("interactions insight unavailable, outreach will lack engagement-based personalization")
	}
	if len(state.Posts) == 0 {
		logger.Warn(WarnNoPostsForComments)
		p.Warn(WarnNoPostsForComments)
	}

	language, _ := ResolveOutreachLanguage(req.OutreachLanguage, state.OutreachLanguage, a.settings.DefaultOutreachLanguage)
	lead := leadOrMinimal(state)
	companyName, companyContext := a.company(req)
	logger.Info("using outreach language", zap.String("language", language))

	prompt, err := a.prompts.Outreach(req.CustomOutreachPrompt, OutreachPromptData{
		CompanyName:         companyName,
		CompanyContext:      companyContext,
		DateNow:             a.dateNow(state),
		FullName:            orDefault(lead.FullName, "Unknown"),
		FirstName:           orDefault(lead.FirstName, "Unknown"),
		CurrentTitle:        orDefault(lead.CurrentTitle, "N/A"),
		CurrentCompany:      orDefault(lead.CurrentCompany, "N/A"),
		Languages:           orDefault(lead.Languages, language),
		OutreachLanguage:    language,
		ProfileInsight:      profileSummary,
		InteractionsInsight: interactionsSummary,
		PostsForComments:    FormatPostsForComments(state.Posts, commentPostsLimit),
	})
	if err != nil {
		logger.Error("failed to render prompt", zap.Error(err))
		p.Warnf(WarnGenerationError, "outreach messages", truncateError(err))
		return p, nil
	}

	res := generate[domain.OutreachMessages](ctx, a, logger, NodeOutreachMessages, prompt, req.Mode)
	if !res.Ok() {
		p.Warn(WarnOutreachExhausted)
		return p, nil
	}

	logger.Debug("outreach messages generated",
		zap.Float64("confidence", res.Value.Confidence),
		zap.Int("post_comments", len(res.Value.PostComments)))
	p.OutreachMessages.Set(&res.Value)
	return p, nil
}

// generate runs one structured generation for a node and logs its outcome
func generate[T any](ctx context.Context, a *Agent, logger *zap.Logger, node, prompt string, mode domain.ProcessingMode) structured.Result[T] {
	start := time.Now()
	res := structured.Generate[T](ctx, a.retrier, structured.Call{
		Name:   node,
		Prompt: prompt,
		Model:  a.model(mode),
	})

	if res.Ok() {
		logger.Info("generation succeeded",
			zap.Int("attempts", res.Attempts),
			zap.Duration("duration", time.Since(start)))
	} else {
		logger.Error("generation exhausted",
			zap.Int("attempts", res.Attempts),
			zap.Duration("duration", time.Since(start)),
			zap.Error(res.Err))
	}
	return res
}
