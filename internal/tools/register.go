package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/sheettools/internal/registry"
)

const (
	ServerName        = "MS Excel Tools"
	ServerDescription = "A set of tools to perform basic read and write operations on Microsoft Excel (.xlsx) files."
)

// Tool ids.
const (
	IDSumRange = "sum_range"
	IDAvgRange = "avg_range"
	IDGetCell  = "get_cell"
	IDSetCell  = "set_cell"
	IDToCSV    = "to_csv"
)

func fileParam(desc string) registry.Parameter {
	return registry.Parameter{Name: "file", Type: "file", Description: desc}
}

func stringParam(name, desc string) registry.Parameter {
	return registry.Parameter{Name: name, Type: "string", Description: desc}
}

// Descriptors lists the tools in discovery order.
func Descriptors() []registry.Descriptor {
	return []registry.Descriptor{
		{
			ID:          IDSumRange,
			Name:        "Sum Cell Range",
			Description: "Calculates the sum of all numbers in a given cell range (e.g., 'Sheet1!A1:A10').",
			Parameters: []registry.Parameter{
				fileParam("The .xlsx file to process."),
				stringParam("range", "The cell range string (e.g., 'Sheet1!A1:A10')."),
			},
			MCPOptions: []mcp.ToolOption{mcp.WithOutputSchema[ValueResult]()},
		},
		{
			ID:          IDAvgRange,
			Name:        "Average Cell Range",
			Description: "Calculates the average of all numbers in a given cell range.",
			Parameters: []registry.Parameter{
				fileParam("The .xlsx file to process."),
				stringParam("range", "The cell range string (e.g., 'Sheet1!A1:A10')."),
			},
			MCPOptions: []mcp.ToolOption{mcp.WithOutputSchema[ValueResult]()},
		},
		{
			ID:          IDGetCell,
			Name:        "Get Cell Value",
			Description: "Retrieves the value from a single, specific cell (e.g., 'Sheet1!B2').",
			Parameters: []registry.Parameter{
				fileParam("The .xlsx file to process."),
				stringParam("cell", "The cell address (e.g., 'Sheet1!B2')."),
			},
			MCPOptions: []mcp.ToolOption{mcp.WithOutputSchema[ValueResult]()},
		},
		{
			ID:          IDSetCell,
			Name:        "Set Cell Value",
			Description: "Writes a new value to a specific cell and returns the modified Excel file.",
			Parameters: []registry.Parameter{
				fileParam("The .xlsx file to process."),
				stringParam("cell", "The cell address to modify (e.g., 'Sheet1!C3')."),
				stringParam("value", "The new value to write into the cell."),
			},
			Mutating:   true,
			MCPOptions: []mcp.ToolOption{mcp.WithOutputSchema[FileResult]()},
		},
		{
			ID:          IDToCSV,
			Name:        "Convert to CSV",
			Description: "Converts the first worksheet of an Excel file into CSV format.",
			Parameters: []registry.Parameter{
				fileParam("The .xlsx file to convert."),
			},
			MCPOptions: []mcp.ToolOption{mcp.WithOutputSchema[FileResult]()},
		},
	}
}

// Register adds the five tools to reg, bound to svc.
func Register(reg *registry.Registry, svc *Service) {
	handlers := map[string]registry.Handler{
		IDSumRange: registry.Bind(svc.SumRange),
		IDAvgRange: registry.Bind(svc.AvgRange),
		IDGetCell:  registry.Bind(svc.GetCell),
		IDSetCell:  registry.Bind(svc.SetCell),
		IDToCSV:    registry.Bind(svc.ToCSV),
	}
	for _, d := range Descriptors() {
		reg.Register(d, handlers[d.ID])
	}
}

// NewRegistry returns a Registry populated with the five tools.
func NewRegistry(svc *Service) *registry.Registry {
	reg := registry.New(ServerName, ServerDescription)
	Register(reg, svc)
	return reg
}
