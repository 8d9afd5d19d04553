package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ReportMapper/internal/configdoc"
	"ReportMapper/internal/coords"
	"ReportMapper/internal/editor"
	"ReportMapper/internal/mapping"
	"ReportMapper/internal/period"
	"ReportMapper/internal/workbook"
)

var errInvalid = errors.New("configuration is invalid")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "periodmap",
		Short:         "Map spreadsheet columns to reporting periods",
		SilenceUsage: true,
	}
	root.AddCommand(
		newColumnsCmd(),
		newInferCmd(),
		newValidateCmd(),
		newDetectCmd(),
		newResolveCmd(),
		newFmtCmd(),
	)
	return root
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func loadConfig(path string) (*configdoc.Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return configdoc.Import(f, configdoc.DetectFormat(path))
}

func splitColumns(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns RANGE",
		Short: "List the columns of a range such as B3:M3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := coords.Columns(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(cols, " "))
			return nil
		},
	}
}

func newInferCmd() *cobra.Command {
	var (
		void string
		year int
	)
	cmd := &cobra.Command{
		Use:   "infer RANGE",
		Short: "Infer periods from the number of active columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := coords.Columns(args[0])
			if err != nil {
				return err
			}
			voids := mapping.NewVoidSet(splitColumns(void)...)
			m := mapping.FromAssignments(period.Infer(cols, voids.Func(), year))
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().StringVar(&void, "void", "", "Comma-separated columns to skip, e.g. F,G")
	cmd.Flags().IntVar(&year, "year", editor.DefaultReferenceYear, "Year the inferred periods fall in")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a configuration document's period mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			s := c.Structure
			if _, err := coords.ParseRange(s.PeriodsRange); err != nil {
				return fmt.Errorf("periodsRange: %w", err)
			}
			active := mapping.NewVoidSet(s.VoidedColumns...).Exclude(s.PeriodMapping)
			res := mapping.Validate(active)
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

func openSheet(path, name string) (*workbook.Sheet, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	return wb.Sheet(name)
}

func newDetectCmd() *cobra.Command {
	var (
		rng   string
		sheet string
		void  string
		year  int
	)
	cmd := &cobra.Command{
		Use:   "detect WORKBOOK",
		Short: "Detect periods from the header text of a workbook range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := coords.ParseRange(rng)
			if err != nil {
				return err
			}
			s, err := openSheet(args[0], sheet)
			if err != nil {
				return err
			}
			voids := mapping.NewVoidSet(splitColumns(void)...)
			as := period.DetectFromHeaders(workbook.HeaderLabels(s, r), r.Columns(), voids.Func(), year)
			return writeJSON(cmd.OutOrStdout(), mapping.FromAssignments(as))
		},
	}
	cmd.Flags().StringVar(&rng, "range", "", "Header range, e.g. B3:M3")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().StringVar(&void, "void", "", "Comma-separated columns to skip")
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Year used when headers are unreadable")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		cfgPath string
		sheet   string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "resolve WORKBOOK",
		Short: "Read mapped amounts out of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			name := sheet
			if name == "" {
				name = c.Structure.SheetName
			}
			s, err := openSheet(args[0], name)
			if err != nil {
				return err
			}
			res, err := workbook.Resolve(c, s)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), res)
			case "table":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CELL\tLINE\tPERIOD\tAMOUNT")
				for _, v := range res.Values {
					line := v.Metric
					if line == "" {
						line = strings.Trim(strings.Join([]string{v.Section, v.Category, v.Subcategory}, "/"), "/")
					}
					fmt.Fprintf(tw, "%s%d\t%s\t%s\t%s\n", v.Column, v.Row, line, v.Period.Label, v.Amount.StringFixed(2))
				}
				for _, is := range res.Issues {
					fmt.Fprintf(tw, "%s\t!\t%s\t%q\n", is.Cell, is.Reason, is.Raw)
				}
				return tw.Flush()
			}
			return fmt.Errorf("unknown format %q (json or table)", format)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "Configuration document (.json, .hjson or .yaml)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: the configuration's sheet)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or table")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newFmtCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Normalize a configuration document and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(args[0])
			if err != nil {
				return err
			}
			switch configdoc.Format(to) {
			case configdoc.FormatJSON:
				text, err := configdoc.Text(c)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			case configdoc.FormatYAML:
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(c); err != nil {
					return err
				}
				return enc.Close()
			}
			return fmt.Errorf("%w: %s", configdoc.ErrUnsupportedFormat, to)
		},
	}
	cmd.Flags().StringVar(&to, "to", "json", "Output format: json or yaml")
	return cmd
}
