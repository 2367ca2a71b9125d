// Package agent wires the lead analysis workflow.
//
// The graph collects the lead's profile, posts and reactions in parallel,
// waits for all three, then generates the profile insight, the interactions
// insight and the outreach messages in parallel:
//
//	init -> {fetch_profile, fetch_posts, fetch_reactions} -> data_collected
//	     -> {profile_insight, interactions_insight, outreach_messages} -> final
//
// Nodes never fail on missing or partial data. They record a warning and
// leave the affected field absent.
package agent
