package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/casepro/gmailbot/internal/outfmt"
	"github.com/casepro/gmailbot/internal/sheet"
	"github.com/casepro/gmailbot/internal/ui"
)

func newSheetsCmd(flags *rootFlags) *cobra.Command {
	sf := &sheetFlags{}
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets (configured spreadsheet unless --spreadsheet is given)",
	}
	cmd.PersistentFlags().StringVar(&sf.Spreadsheet, "spreadsheet", "", "Spreadsheet ID (default: config spreadsheet_id)")
	cmd.PersistentFlags().BoolVar(&sf.Alternate, "alternate", false, "Use the alternate spreadsheet (config alternate_spreadsheet_id)")

	cmd.AddCommand(newSheetsMetadataCmd(flags, sf))
	cmd.AddCommand(newSheetsGetCmd(flags, sf))
	cmd.AddCommand(newSheetsUpdateCmd(flags, sf))
	cmd.AddCommand(newSheetsAppendCmd(flags, sf))
	cmd.AddCommand(newSheetsClearCmd(flags, sf))
	return cmd
}

func newSheetsMetadataCmd(flags *rootFlags, sf *sheetFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Show spreadsheet title and tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := openSpreadsheet(cmd.Context(), flags, sf)
			if err != nil {
				return err
			}
			md, err := h.Metadata(cmd.Context())
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, md)
			}

			u := ui.FromContext(cmd.Context())
			if !outfmt.IsPlain(cmd.Context()) {
				u.Out().Printf("ID\t%s", md.SpreadsheetID)
				u.Out().Printf("Title\t%s", md.Title)
				if md.TimeZone != "" {
					u.Out().Printf("TimeZone\t%s", md.TimeZone)
				}
				if md.URL != "" {
					u.Out().Printf("URL\t%s", md.URL)
				}
				u.Out().Println()
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SHEET_ID\tTITLE\tROWS\tCOLS")
			for _, tab := range md.Tabs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", tab.SheetID, tab.Title, tab.Rows, tab.Columns)
			}
			return tw.Flush()
		},
	}
}

func newSheetsGetCmd(flags *rootFlags, sf *sheetFlags) *cobra.Command {
	var opts sheet.GetOptions

	cmd := &cobra.Command{
		Use:   "get <range>",
		Short: "Get values from a range",
		Long:  "Get values from a range of the configured spreadsheet.\nExample: gmailbot sheets get 'Sheet1!A1:B10'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			h, err := openSpreadsheet(cmd.Context(), flags, sf)
			if err != nil {
				return err
			}

			resp, err := h.Get(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"spreadsheetId": h.ID,
					"range":         resp.Range,
					"values":        resp.Values,
				})
			}

			if len(resp.Values) == 0 {
				u.Err().Println("No data found")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, row := range resp.Values {
				cells := make([]string, len(row))
				for i, cell := range row {
					cells[i] = fmt.Sprintf("%v", cell)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&opts.MajorDimension, "dimension", "", "Major dimension: ROWS or COLUMNS")
	cmd.Flags().StringVar(&opts.ValueRenderOption, "render", "", "Value render option: FORMATTED_VALUE, UNFORMATTED_VALUE, or FORMULA")
	return cmd
}

type valuesFlags struct {
	JSON  string
	Input string
}

func (v *valuesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.JSON, "values-json", "", `Rows as JSON, e.g. '[["a","b"],["c","d"]]'`)
	cmd.Flags().StringVar(&v.Input, "input", sheet.InputUserEntered, "Value input option: RAW or USER_ENTERED")
}

// rows reads values from --values-json, or from trailing args where each
// arg is a row of comma-separated cells ("a,b" "c,d" or "a,b;c,d").
func (v *valuesFlags) rows(args []string) ([][]any, error) {
	switch strings.ToUpper(strings.TrimSpace(v.Input)) {
	case sheet.InputRaw, sheet.InputUserEntered:
		v.Input = strings.ToUpper(strings.TrimSpace(v.Input))
	default:
		return nil, usage(fmt.Sprintf("invalid --input %q (expected RAW|USER_ENTERED)", v.Input))
	}

	if strings.TrimSpace(v.JSON) != "" {
		if len(args) > 0 {
			return nil, usage("use either --values-json or positional values, not both")
		}
		rows, err := sheet.ParseValues(v.JSON)
		if err != nil {
			return nil, usage(err.Error())
		}
		return rows, nil
	}
	rows := sheet.ParseDelimited(strings.Join(args, ";"))
	if len(rows) == 0 {
		return nil, usage("no values given (use --values-json or 'a,b;c,d')")
	}
	return rows, nil
}

func newSheetsUpdateCmd(flags *rootFlags, sf *sheetFlags) *cobra.Command {
	var vf valuesFlags

	cmd := &cobra.Command{
		Use:   "update <range> [values...]",
		Short: "Update values in a range",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			rows, err := vf.rows(args[1:])
			if err != nil {
				return err
			}
			h, err := openSpreadsheet(cmd.Context(), flags, sf)
			if err != nil {
				return err
			}

			resp, err := h.Update(cmd.Context(), args[0], rows, vf.Input)
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"updatedRange": resp.UpdatedRange,
					"updatedRows":  resp.UpdatedRows,
					"updatedCells": resp.UpdatedCells,
				})
			}
			u.Out().Successf("Updated %d cells in %s", resp.UpdatedCells, resp.UpdatedRange)
			return nil
		},
	}
	vf.register(cmd)
	return cmd
}

func newSheetsAppendCmd(flags *rootFlags, sf *sheetFlags) *cobra.Command {
	var vf valuesFlags
	var insert string
	var copyValidationFrom string

	cmd := &cobra.Command{
		Use:   "append <range> [values...]",
		Short: "Append rows after the last row of a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			rows, err := vf.rows(args[1:])
			if err != nil {
				return err
			}
			insert = strings.ToUpper(strings.TrimSpace(insert))
			if insert != sheet.InsertRows && insert != sheet.Overwrite {
				return usage(fmt.Sprintf("invalid --insert %q (expected INSERT_ROWS|OVERWRITE)", insert))
			}
			h, err := openSpreadsheet(cmd.Context(), flags, sf)
			if err != nil {
				return err
			}

			resp, err := h.Append(cmd.Context(), args[0], rows, sheet.AppendOptions{
				InputOption:        vf.Input,
				InsertDataOption:   insert,
				CopyValidationFrom: copyValidationFrom,
			})
			if err != nil {
				return err
			}

			updatedRange := ""
			var updatedCells int64
			if resp.Updates != nil {
				updatedRange = resp.Updates.UpdatedRange
				updatedCells = resp.Updates.UpdatedCells
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"tableRange":   resp.TableRange,
					"updatedRange": updatedRange,
					"updatedCells": updatedCells,
				})
			}
			u.Out().Successf("Appended %d cells to %s", updatedCells, updatedRange)
			return nil
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVar(&insert, "insert", sheet.InsertRows, "Insert data option: INSERT_ROWS or OVERWRITE")
	cmd.Flags().StringVar(&copyValidationFrom, "copy-validation-from", "", "Copy data validation from this A1 range (with sheet name) onto the appended rows")
	return cmd
}

func newSheetsClearCmd(flags *rootFlags, sf *sheetFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <range>",
		Short: "Clear values in a range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := ui.FromContext(cmd.Context())
			if err := confirm(flags, fmt.Sprintf("Clear %s?", args[0])); err != nil {
				return err
			}
			h, err := openSpreadsheet(cmd.Context(), flags, sf)
			if err != nil {
				return err
			}
			resp, err := h.Clear(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"clearedRange": resp.ClearedRange})
			}
			u.Out().Successf("Cleared %s", resp.ClearedRange)
			return nil
		},
	}
}
