// Package config provides configuration management for the Chloe service.
//
// Configuration is loaded from environment variables using the env package,
// after an optional .env file in the working directory. An optional YAML
// agent profile (AGENT_PROFILE_FILE) carries the seller's company context
// and prompt overrides. All values have sensible defaults for development
// use, except the LLM and Apify credentials.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
