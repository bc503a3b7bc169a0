package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
	"github.com/teemow/todoagent/internal/tools/common"
)

// Resource URIs
const (
	ProfileURI  = "user://profile"
	FoldersURI  = "user://folders"
	UpcomingURI = "user://tasks/upcoming"
)

// RegisterUserResources registers the caller-scoped resources. Each read
// resolves the owner from the request context, like the tools do.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("Authenticated owner, time zone and task summary"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	foldersResource := mcp.NewResource(
		FoldersURI,
		"Folders",
		mcp.WithResourceDescription("Folders of the current user with their parent ids"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(foldersResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleFolders(ctx, request, sc)
	})

	upcomingResource := mcp.NewResource(
		UpcomingURI,
		"Upcoming Tasks",
		mcp.WithResourceDescription("Number of pending tasks due today and this week, and the next one due"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(upcomingResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUpcoming(ctx, request, sc)
	})

	return nil
}

// handleUserProfile returns the caller's identity and an all-time summary
func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated owner in context")
	}
	client, err := common.TaskClient(ctx, sc)
	if err != nil {
		return nil, err
	}

	stats, err := client.GetStats(ctx, tasks.PeriodAllTime, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get task summary: %w", err)
	}

	profileData := map[string]interface{}{
		"owner":    id.Owner,
		"email":    id.Email,
		"timeZone": calendar.ZoneName(sc.Location()),
		"summary":  stats.Summary,
	}
	return jsonContents(request, profileData)
}

func handleFolders(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := common.TaskClient(ctx, sc)
	if err != nil {
		return nil, err
	}
	folders, err := client.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	if folders == nil {
		folders = []tasks.Folder{}
	}
	return jsonContents(request, map[string]interface{}{"folders": folders})
}

func handleUpcoming(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := common.TaskClient(ctx, sc)
	if err != nil {
		return nil, err
	}
	stats, err := client.GetStats(ctx, tasks.PeriodAllTime, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming tasks: %w", err)
	}
	return jsonContents(request, stats.Upcoming)
}

func jsonContents(request mcp.ReadResourceRequest, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
