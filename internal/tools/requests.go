package tools

// Request fields are pointers so that a present-but-empty string reaches
// the handler (and fails there with the matching code) while an absent
// key fails validation as a missing parameter.

// SumRangeRequest is the parameter object of sum_range.
type SumRangeRequest struct {
	File  *string `json:"file" validate:"required"`
	Range *string `json:"range" validate:"required"`
}

// AvgRangeRequest is the parameter object of avg_range.
type AvgRangeRequest struct {
	File  *string `json:"file" validate:"required"`
	Range *string `json:"range" validate:"required"`
}

// GetCellRequest is the parameter object of get_cell.
type GetCellRequest struct {
	File *string `json:"file" validate:"required"`
	Cell *string `json:"cell" validate:"required"`
}

// SetCellRequest is the parameter object of set_cell.
type SetCellRequest struct {
	File  *string `json:"file" validate:"required"`
	Cell  *string `json:"cell" validate:"required"`
	Value *string `json:"value" validate:"required"`
}

// ToCSVRequest is the parameter object of to_csv.
type ToCSVRequest struct {
	File *string `json:"file" validate:"required"`
}

// ValueResult carries a computed or read value.
type ValueResult struct {
	Value any `json:"value" jsonschema_description:"Number, string, boolean or null"`
}

// FileResult carries a produced file as a data URL.
type FileResult struct {
	File string `json:"file" jsonschema_description:"data:<mime>;base64,<payload>"`
}
