package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/server"
)

// CallFunc executes one tool call with its raw JSON arguments
type CallFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Instrumented wraps fn with a span, tool metrics and an audit record.
// Panics inside fn are recovered and reported as errors.
//
// Usage:
//
//	call := common.Instrumented(sc, instrumentation.TransportMCP, "createTask", createTask)
func Instrumented(sc *server.ServerContext, transport, toolName string, fn CallFunc) CallFunc {
	return func(ctx context.Context, args json.RawMessage) (result any, err error) {
		start := time.Now()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithTransport(transport).
			WithSpanContext(ctx)
		if id, ok := auth.FromContext(ctx); ok {
			invocation.WithOwner(id.Owner, id.Email)
		}

		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = fmt.Errorf("panic in tool %s: %v", toolName, r)
				sc.Logger().Error("tool panicked", logging.Tool(toolName), logging.Err(err))
			}

			if err != nil {
				instrumentation.SetSpanError(span, err)
				invocation.CompleteWithError(err)
			} else {
				instrumentation.SetSpanSuccess(span)
				invocation.CompleteSuccess()
			}

			sc.Metrics().RecordToolInvocationWithOwner(ctx, toolName, invocation.Status(), invocation.OwnerHash(), time.Since(start))
			sc.AuditLogger().LogToolInvocation(invocation)
		}()

		return fn(ctx, args)
	}
}
