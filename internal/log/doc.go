// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// The analysis stages carry API credentials for SerpAPI, the fake-news
// classifier endpoint, and the summarization model. The RedactingHandler
// masks those values in log output so a verbose run never leaks a key
// into logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//	logger.Info("calling reverse image search",
//	    "api_key", key, // masked in output
//	    "image", imageURL,
//	)
//	slog.SetDefault(logger)
package log
