// Package logging builds the process logger and the attribute helpers every
// package logs with.
//
// Owner ids are never logged raw; Owner hashes them:
//
//	logger.Info("task created", logging.Owner(owner), logging.TaskID(id))
//
// Tokens, prompts and task contents are not logged at all.
package logging
