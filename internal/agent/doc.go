// Package agent runs the conversational loop between the user, an
// OpenAI-compatible chat model and the task tools.
//
// Each run sends the system prompt plus the conversation to the model. When
// the model asks for tools they are executed in order, their JSON results are
// appended as tool messages, and the model is called again. A run ends when
// the model answers without tool calls or after MaxIterations round-trips,
// in which case FallbackMessage is returned.
package agent
