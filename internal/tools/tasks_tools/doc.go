// Package tasks_tools exposes the task store as callable tools.
//
// The same table serves two callers: the agent loop, which dispatches the
// model's tool calls by name and feeds the JSON result back to the model, and
// the MCP server, which registers every tool with its input schema.
//
// # Available Tools
//
//   - createTask: create a task (optionally scheduled in Google Calendar)
//   - updateTask: change fields of an existing task
//   - deleteTask: soft-delete one task
//   - deleteTasksBulk: soft-delete several tasks, requires confirm=true
//   - searchTasks: filter, sort and page tasks
//   - getTaskStats: productivity statistics
//   - listFolders: list the caller's folders
//
// # Arguments
//
// Arguments are decoded strictly into a typed struct per tool. Unknown
// fields, wrong JSON types and values outside an enumeration are rejected
// before the store is touched. Every failure is returned to the caller as
// {"error": "<mensaje>"}.
//
// # Authentication
//
// The owner is taken from the request context (see auth.WithIdentity). Over
// HTTP it comes from the bearer token, over stdio from the --owner flag.
package tasks_tools
