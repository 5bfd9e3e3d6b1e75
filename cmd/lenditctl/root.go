package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/apierr"
	"lendit-admin/internal/platform/config"
)

type app struct {
	cfgPath string
	token   string
	out     io.Writer

	cfg *config.Config
	api *apiclient.Client
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}
	root := &cobra.Command{
		Use:           "lenditctl",
		Short:         "LendIt: solicitantes, productos y préstamos desde la terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&a.token, "token", "", "backend token (default $LENDIT_TOKEN)")

	root.AddCommand(
		newLoginCmd(a),
		newImportCmd(a),
		newLoansCmd(a),
		newTemplateCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.token == "" {
		a.token = os.Getenv("LENDIT_TOKEN")
	}
	a.api, err = apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	return err
}

// authed: トークン付きの context
func (a *app) authed(ctx context.Context) (context.Context, error) {
	if a.token == "" {
		return nil, errors.New("token required: run `lenditctl login` and set --token or LENDIT_TOKEN")
	}
	return apiclient.WithCredentials(ctx, apiclient.StaticToken(a.token)), nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe: API と同じ文言でエラーを出す
func describe(err error) error {
	if err == nil {
		return nil
	}
	b := apierr.From(err)
	if b.Error.Details != nil {
		d, _ := json.MarshalIndent(b.Error.Details, "", "  ")
		return fmt.Errorf("%s: %s\n%s", b.Error.Code, b.Error.Message, d)
	}
	return fmt.Errorf("%s: %s", b.Error.Code, b.Error.Message)
}
