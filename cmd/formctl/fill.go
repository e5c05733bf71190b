package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/builder"
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/prompt"
)

func newFillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill <declaration>",
		Short: "Fill a form interactively and print the submitted values",
		Long: `Prompt for every visible field of a declaration, re-asking until each
answer passes its validators, then submit the form and print the values.
Fields revealed by later answers are asked in a further pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFill(cmd, args[0])
		},
	}
	cmd.Flags().StringP("output", "o", "json", "output format (json, form, pretty)")
	cmd.Flags().Int("max-attempts", 0, "give up after this many invalid answers to one field (0 = unlimited)")
	cmd.Flags().String("locale", "", "locale used to translate labels and messages")
	cmd.Flags().String("translations", "", "YAML catalog of translations keyed by locale")
	return cmd
}

func (a *app) runFill(cmd *cobra.Command, path string) error {
	b, raw, err := a.loadDeclaration(path)
	if err != nil {
		return err
	}
	form, err := b.FromDeclaration(raw)
	if err != nil {
		return err
	}
	if path := a.v.GetString("translations"); path != "" {
		catalog, err := builder.LoadCatalog(path)
		if err != nil {
			return err
		}
		form = builder.Localize(form, a.v.GetString("locale"), catalog, nil)
	}
	ctl, err := b.BuildController(form, controller.WithContext(cmd.Context()))
	if err != nil {
		return err
	}
	defer ctl.Dispose()

	driver := a.driver
	if driver == nil {
		driver = prompt.NewSurveyDriver(cmd.ErrOrStderr())
	}
	session := prompt.New(
		prompt.WithDriver(driver),
		prompt.WithLogger(a.logger),
		prompt.WithMaxAttempts(a.v.GetInt("max-attempts")),
	)
	if _, err := session.Fill(cmd.Context(), ctl); err != nil {
		return err
	}

	format := prompt.OutputFormat(a.v.GetString("output"))
	ok := ctl.Submit(cmd.Context(), func(_ context.Context, values map[string]any) (bool, error) {
		payload, err := prompt.Encode(values, format)
		if err != nil {
			return false, err
		}
		if _, err := cmd.OutOrStdout().Write(payload); err != nil {
			return false, err
		}
		return true, nil
	})
	if !ok {
		if msg := ctl.LastError(); msg != "" {
			return errors.New(msg)
		}
		return errInvalidValues
	}
	return nil
}
