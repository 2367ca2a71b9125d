// Package structured turns free-form model replies into validated Go values.
//
// Generate sends a prompt through the shared limiter, parses the reply as
// JSON into T and validates it. A reply that does not fit T is repaired by
// sending a fix-up prompt that embeds the JSON schema of T, the rejected
// output and the validation error. After MaxRetries repairs the call is
// Exhausted. Transport failures are never retried.
//
// Example usage:
//
//	r := structured.NewRetrier(generator, lim, logger)
//	res := structured.Generate[domain.ProfileInsight](ctx, r, structured.Call{
//	    Name:   "profile_insight",
//	    Prompt: prompt,
//	    Model:  "claude-sonnet-4-5",
//	})
//	if res.Ok() {
//	    insight := res.Value
//	}
package structured
