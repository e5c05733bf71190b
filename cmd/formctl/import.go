package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/builder"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-openapi <document>",
		Short: "Derive a form declaration from an OpenAPI request body",
		Long: `Read an OpenAPI 3 document and write a form declaration built from the
request body of --operation. Without --operation the operations that carry an
object request body are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0])
		},
	}
	cmd.Flags().String("operation", "", "operation id to import")
	cmd.Flags().StringP("format", "f", "yaml", "declaration format (yaml, json)")
	cmd.Flags().String("out", "", "output file (stdout if empty)")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	operation := a.v.GetString("operation")
	if operation == "" {
		ids, err := builder.Operations(cmd.Context(), raw)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	format, err := builder.ParseFormat(a.v.GetString("format"))
	if err != nil {
		return err
	}
	form, err := a.builder().FromOpenAPI(cmd.Context(), raw, operation)
	if err != nil {
		return err
	}
	payload, err := builder.EncodeDeclaration(form, format)
	if err != nil {
		return err
	}

	if out := a.v.GetString("out"); out != "" {
		if err := os.WriteFile(out, payload, 0o644); err != nil {
			return fmt.Errorf("write declaration: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Form written to %s\n", out)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(payload)
	return err
}
