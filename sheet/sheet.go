// Package sheet talks to the spreadsheet that stores survey responses.
package sheet

import "context"

// Connector authenticates against a spreadsheet backend. Connect is called
// once per submission; credentials are not cached between calls.
type Connector interface {
	Connect(ctx context.Context) (Sheet, error)
}

// Sheet is one tab of a spreadsheet, addressed by 1-based row numbers.
type Sheet interface {
	// Extent returns the number of rows up to the last populated cell of
	// column A.
	Extent(ctx context.Context) (int, error)
	// WriteRow stores cells starting at column A of the given row.
	WriteRow(ctx context.Context, row int, cells []any) error
	Close() error
}
