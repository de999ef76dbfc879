// Package sheet binds a Sheets client to one spreadsheet.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/sheets/v4"
)

const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"

	InsertRows = "INSERT_ROWS"
	Overwrite  = "OVERWRITE"
)

var errEmptyRange = errors.New("empty range")

// Handle is the spreadsheets resource of a Sheets client, bound to ID.
type Handle struct {
	ID  string
	svc *sheets.Service
}

func Open(svc *sheets.Service, spreadsheetID string) (*Handle, error) {
	if svc == nil {
		return nil, errors.New("nil sheets service")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	return &Handle{ID: spreadsheetID, svc: svc}, nil
}

// Spreadsheets exposes the raw sub-resource for calls the handle does not wrap.
func (h *Handle) Spreadsheets() *sheets.SpreadsheetsService {
	return h.svc.Spreadsheets
}

type Tab struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
	Index   int64  `json:"index"`
	Rows    int64  `json:"rows"`
	Columns int64  `json:"columns"`
}

type Metadata struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Title         string `json:"title"`
	Locale        string `json:"locale,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
	URL           string `json:"url,omitempty"`
	Tabs          []Tab  `json:"sheets"`
}

func (h *Handle) Metadata(ctx context.Context) (Metadata, error) {
	resp, err := h.svc.Spreadsheets.Get(h.ID).
		Fields("spreadsheetId", "spreadsheetUrl", "properties(title,locale,timeZone)",
			"sheets.properties(sheetId,title,index,gridProperties)").
		Context(ctx).
		Do()
	if err != nil {
		return Metadata{}, err
	}

	md := Metadata{
		SpreadsheetID: resp.SpreadsheetId,
		URL:           resp.SpreadsheetUrl,
		Tabs:          make([]Tab, 0, len(resp.Sheets)),
	}
	if resp.Properties != nil {
		md.Title = resp.Properties.Title
		md.Locale = resp.Properties.Locale
		md.TimeZone = resp.Properties.TimeZone
	}
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		tab := Tab{
			SheetID: s.Properties.SheetId,
			Title:   s.Properties.Title,
			Index:   s.Properties.Index,
		}
		if gp := s.Properties.GridProperties; gp != nil {
			tab.Rows = gp.RowCount
			tab.Columns = gp.ColumnCount
		}
		md.Tabs = append(md.Tabs, tab)
	}
	return md, nil
}

type GetOptions struct {
	MajorDimension    string
	ValueRenderOption string
}

func (h *Handle) Get(ctx context.Context, rangeSpec string, opts GetOptions) (*sheets.ValueRange, error) {
	if strings.TrimSpace(rangeSpec) == "" {
		return nil, errEmptyRange
	}
	call := h.svc.Spreadsheets.Values.Get(h.ID, rangeSpec)
	if opts.MajorDimension != "" {
		call = call.MajorDimension(opts.MajorDimension)
	}
	if opts.ValueRenderOption != "" {
		call = call.ValueRenderOption(opts.ValueRenderOption)
	}
	return call.Context(ctx).Do()
}

func (h *Handle) Update(ctx context.Context, rangeSpec string, values [][]any, inputOption string) (*sheets.UpdateValuesResponse, error) {
	if strings.TrimSpace(rangeSpec) == "" {
		return nil, errEmptyRange
	}
	if inputOption == "" {
		inputOption = InputUserEntered
	}
	return h.svc.Spreadsheets.Values.Update(h.ID, rangeSpec, &sheets.ValueRange{Values: values}).
		ValueInputOption(inputOption).
		Context(ctx).
		Do()
}

type AppendOptions struct {
	InputOption      string
	InsertDataOption string
	// CopyValidationFrom is an A1 range (with sheet name) whose data
	// validation is pasted onto the appended cells.
	CopyValidationFrom string
}

func (h *Handle) Append(ctx context.Context, rangeSpec string, values [][]any, opts AppendOptions) (*sheets.AppendValuesResponse, error) {
	if strings.TrimSpace(rangeSpec) == "" {
		return nil, errEmptyRange
	}
	if opts.InputOption == "" {
		opts.InputOption = InputUserEntered
	}
	if opts.InsertDataOption == "" {
		opts.InsertDataOption = InsertRows
	}

	var src *validationSource
	if strings.TrimSpace(opts.CopyValidationFrom) != "" {
		var err error
		if src, err = h.resolveValidationSource(ctx, opts.CopyValidationFrom); err != nil {
			return nil, err
		}
	}

	resp, err := h.svc.Spreadsheets.Values.Append(h.ID, rangeSpec, &sheets.ValueRange{Values: values}).
		ValueInputOption(opts.InputOption).
		InsertDataOption(opts.InsertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if src == nil {
		return resp, nil
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return resp, fmt.Errorf("append response has no updated range; cannot copy validation")
	}
	if err := h.pasteValidation(ctx, src, resp.Updates.UpdatedRange); err != nil {
		return resp, err
	}
	return resp, nil
}

func (h *Handle) Clear(ctx context.Context, rangeSpec string) (*sheets.ClearValuesResponse, error) {
	if strings.TrimSpace(rangeSpec) == "" {
		return nil, errEmptyRange
	}
	return h.svc.Spreadsheets.Values.Clear(h.ID, rangeSpec, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
}
