package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/builder"
	"github.com/goliatone/go-formstate/pkg/controller"
)

var errInvalidValues = errors.New("values failed validation")

type validateReport struct {
	Form   string            `json:"formId"`
	Fields int               `json:"fields"`
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <declaration>",
		Short: "Check a form declaration and optionally validate values against it",
		Long: `Parse a JSON or YAML declaration, resolve every validator reference and
compile visibility rules. With --values, build a controller, apply the values
and run full validation; the command fails when any visible field is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args[0])
		},
	}
	cmd.Flags().String("values", "", "JSON or YAML file with field values to validate")
	cmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, path string) error {
	b, raw, err := a.loadDeclaration(path)
	if err != nil {
		return err
	}
	form, err := b.FromDeclaration(raw)
	if err != nil {
		return err
	}

	report := validateReport{Form: form.ID, Fields: len(form.Fields), Valid: true}
	if valuesPath := a.v.GetString("values"); valuesPath != "" {
		values, err := readValues(valuesPath)
		if err != nil {
			return err
		}
		ctl, err := b.BuildController(form, controller.WithContext(cmd.Context()))
		if err != nil {
			return err
		}
		defer ctl.Dispose()

		for _, id := range sortedKeys(values) {
			if err := ctl.SetFieldValue(id, values[id]); err != nil {
				return err
			}
		}
		report.Valid = ctl.ValidateAll(cmd.Context())
		report.Errors = ctl.Errors()
	}

	if err := writeReport(cmd, a.v.GetString("format"), report); err != nil {
		return err
	}
	if !report.Valid {
		return errInvalidValues
	}
	return nil
}

func readValues(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := make(map[string]any)
	if builder.DetectFormat(raw) == builder.FormatJSON {
		err = json.Unmarshal(raw, &values)
	} else {
		err = yaml.Unmarshal(raw, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("decode values %s: %w", path, err)
	}
	return values, nil
}

func writeReport(cmd *cobra.Command, format string, report validateReport) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(payload))
		return err
	case "text", "":
		if report.Valid {
			_, err := fmt.Fprintf(out, "%s: ok (%d fields)\n", report.Form, report.Fields)
			return err
		}
		fmt.Fprintf(out, "%s: %d invalid field(s)\n", report.Form, len(report.Errors))
		for _, id := range sortedKeys(report.Errors) {
			fmt.Fprintf(out, "  %s: %s\n", id, report.Errors[id])
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
