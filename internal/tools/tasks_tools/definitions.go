package tasks_tools

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/todoagent/internal/tasks"
)

func createTaskTool() mcp.Tool {
	return mcp.NewTool(CreateTask,
		mcp.WithDescription("Crear una nueva tarea"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Título de la tarea, no vacío"),
		),
		mcp.WithString("priority",
			mcp.Enum(tasks.Priorities...),
		),
		mcp.WithString("dueDate",
			mcp.Description("Fecha ISO 8601 futura. Sin zona horaria se interpreta en la hora local del usuario"),
		),
		mcp.WithString("category",
			mcp.Enum(tasks.Categories...),
		),
		mcp.WithString("details"),
		mcp.WithString("folderId",
			mcp.Description("Id de la carpeta destino"),
		),
		mcp.WithString("folderName",
			mcp.Description("Nombre de la carpeta destino; se ignora si se indica folderId"),
		),
	)
}

func updateTaskTool() mcp.Tool {
	return mcp.NewTool(UpdateTask,
		mcp.WithDescription("Actualizar campos de una tarea existente"),
		mcp.WithString("taskId",
			mcp.Required(),
		),
		mcp.WithString("title"),
		mcp.WithBoolean("completed"),
		mcp.WithString("priority",
			mcp.Enum(tasks.Priorities...),
		),
		mcp.WithString("dueDate",
			mcp.Description("Fecha ISO 8601; null elimina la fecha"),
		),
		mcp.WithString("category",
			mcp.Enum(tasks.Categories...),
		),
		mcp.WithString("details",
			mcp.Description("null elimina los detalles"),
		),
		mcp.WithString("folderId",
			mcp.Description("null saca la tarea de su carpeta"),
		),
		mcp.WithString("folderName"),
	)
}

func deleteTaskTool() mcp.Tool {
	return mcp.NewTool(DeleteTask,
		mcp.WithDescription("Eliminar una tarea por id"),
		mcp.WithString("taskId",
			mcp.Required(),
		),
		mcp.WithBoolean("confirm"),
	)
}

func deleteTasksBulkTool() mcp.Tool {
	return mcp.NewTool(DeleteTasksBulk,
		mcp.WithDescription("Eliminar múltiples tareas por id con confirmación"),
		mcp.WithArray("taskIds",
			mcp.Required(),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Debe ser true; sin confirmación no se borra nada"),
		),
	)
}

func searchTasksTool() mcp.Tool {
	return mcp.NewTool(SearchTasks,
		mcp.WithDescription("Buscar y filtrar tareas"),
		mcp.WithString("query",
			mcp.Description("Texto a buscar en título y detalles"),
		),
		mcp.WithBoolean("completed"),
		mcp.WithString("priority",
			mcp.Enum(tasks.Priorities...),
		),
		mcp.WithString("category",
			mcp.Enum(tasks.Categories...),
		),
		mcp.WithArray("categories",
			mcp.Items(map[string]any{"type": "string", "enum": tasks.Categories}),
		),
		mcp.WithString("dueDateFrom"),
		mcp.WithString("dueDateTo"),
		mcp.WithString("sortBy",
			mcp.Enum(sortKeys...),
		),
		mcp.WithString("sortOrder",
			mcp.Enum(sortOrders...),
		),
		mcp.WithString("logic",
			mcp.Description("Cómo combinar completed, priority y category"),
			mcp.Enum(logics...),
		),
		mcp.WithNumber("limit"),
		mcp.WithNumber("offset"),
	)
}

func getTaskStatsTool() mcp.Tool {
	return mcp.NewTool(GetTaskStats,
		mcp.WithDescription("Obtener estadísticas de productividad"),
		mcp.WithString("period",
			mcp.Enum(tasks.Periods...),
		),
		mcp.WithString("groupBy",
			mcp.Enum(tasks.GroupBys...),
		),
	)
}

func listFoldersTool() mcp.Tool {
	return mcp.NewTool(ListFolders,
		mcp.WithDescription("Listar las carpetas del usuario"),
	)
}
