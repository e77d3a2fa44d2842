package types

// ExportRequest is the query of the export endpoint.
type ExportRequest struct {
	Format string `validate:"required,oneof=json yaml"`
}
