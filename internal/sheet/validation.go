package sheet

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"
)

// validationSource is a resolved --copy-validation-from range, checked
// before any rows are written.
type validationSource struct {
	rng      A1Range
	sheetIDs map[string]int64
}

func (h *Handle) resolveValidationSource(ctx context.Context, sourceA1 string) (*validationSource, error) {
	rng, err := ParseA1Range(sourceA1)
	if err != nil {
		return nil, fmt.Errorf("parse copy-validation-from: %w", err)
	}
	if strings.TrimSpace(rng.SheetName) == "" {
		return nil, fmt.Errorf("copy-validation-from must include a sheet name")
	}
	ids, err := h.SheetIDs(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := ids[rng.SheetName]; !ok {
		return nil, fmt.Errorf("unknown sheet %q in copy-validation-from", rng.SheetName)
	}
	return &validationSource{rng: rng, sheetIDs: ids}, nil
}

func (h *Handle) pasteValidation(ctx context.Context, src *validationSource, destA1 string) error {
	dest, err := ParseA1Range(destA1)
	if err != nil {
		return fmt.Errorf("parse updated range: %w", err)
	}
	destSheetID, ok := src.sheetIDs[dest.SheetName]
	if !ok {
		return fmt.Errorf("unknown sheet %q in updated range", dest.SheetName)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			CopyPaste: &sheets.CopyPasteRequest{
				Source:      src.rng.GridRange(src.sheetIDs[src.rng.SheetName]),
				Destination: dest.GridRange(destSheetID),
				PasteType:   "PASTE_DATA_VALIDATION",
			},
		}},
	}
	if _, err := h.svc.Spreadsheets.BatchUpdate(h.ID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("apply data validation: %w", err)
	}
	return nil
}

// SheetIDs maps tab titles to their numeric sheet ids.
func (h *Handle) SheetIDs(ctx context.Context) (map[string]int64, error) {
	resp, err := h.svc.Spreadsheets.Get(h.ID).
		Fields("sheets.properties.sheetId", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet metadata: %w", err)
	}

	ids := make(map[string]int64, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		ids[s.Properties.Title] = s.Properties.SheetId
	}
	return ids, nil
}

// GridRange converts r to the half-open, 0-based form used by batchUpdate.
// Open bounds are left unset, which the API reads as the sheet edge.
func (r A1Range) GridRange(sheetID int64) *sheets.GridRange {
	g := &sheets.GridRange{SheetId: sheetID}
	if r.StartRow > 0 {
		g.StartRowIndex = int64(r.StartRow - 1)
	}
	if r.EndRow > 0 {
		g.EndRowIndex = int64(r.EndRow)
	}
	if r.StartCol > 0 {
		g.StartColumnIndex = int64(r.StartCol - 1)
	}
	if r.EndCol > 0 {
		g.EndColumnIndex = int64(r.EndCol)
	}
	return g
}
