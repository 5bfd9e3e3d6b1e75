package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lendit-admin/internal/lend_mgmt/importer"
	"lendit-admin/internal/lend_mgmt/loans"
	"lendit-admin/internal/lend_mgmt/requesters"
	"lendit-admin/internal/listing"
	"lendit-admin/internal/platform/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var user, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión y muestra el token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("LENDIT_PASSWORD")
			}
			s := session.New("cli", a.api, session.NewMemoryStorage(), session.Options{})
			defer s.Logout(cmd.Context())
			res, err := s.Login(cmd.Context(), user, password)
			if err != nil {
				return describe(err)
			}
			if !res.Success {
				return fmt.Errorf("%s", res.Detail)
			}
			fmt.Fprintln(a.out, res.Token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "nombre de usuario")
	cmd.Flags().StringVarP(&password, "password", "p", "", "contraseña (default $LENDIT_PASSWORD)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importa solicitantes o productos desde un .xlsx",
	}
	for _, t := range []importer.Target{importer.Requesters, importer.Products} {
		cmd.AddCommand(&cobra.Command{
			Use:   t.Name + " FILE",
			Short: "Importa " + t.Name,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, err := a.authed(cmd.Context())
				if err != nil {
					return err
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				info, err := f.Stat()
				if err != nil {
					return err
				}
				p := importer.New(a.api, a.cfg.Import.Timeout, a.cfg.Import.MaxBytes)
				res, err := p.Import(ctx, t, importer.File{Name: info.Name(), Size: info.Size(), Content: f})
				if err != nil {
					return describe(err)
				}
				return a.printJSON(res)
			},
		})
	}
	return cmd
}

func newLoansCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "loans", Aliases: []string{"prestamos"}, Short: "Préstamos"}

	var who, status string
	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista préstamos (más recientes primero)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			svc := loans.NewService(a.api, requesters.NewService(a.api))
			q := listing.Query{
				Filters:  listing.Filters{loans.FilterRequester: who, loans.FilterStatus: status},
				Page:     &page,
				PageSize: &size,
			}
			p, _, err := svc.Browse(ctx, "cli", q)
			if err != nil {
				return describe(err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOLICITANTE\tREGISTRO\tLIMITE\tESTADO\tPRORROGA")
			for _, r := range p.Items {
				ext := "-"
				if r.FechaProlongacion != nil {
					ext = *r.FechaProlongacion
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.IDPrestamo, r.Solicitante, r.FechaRegistro, r.FechaLimite, r.Solicitud.Estado, ext)
			}
			fmt.Fprintf(tw, "\npágina %d/%d, %d préstamos\n", p.Page, p.TotalPages, p.Total)
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&who, "solicitante", "", "nombre o identificación")
	list.Flags().StringVar(&status, "estado", "", "estado de la solicitud")
	list.Flags().IntVar(&page, "page", 1, "página")
	list.Flags().IntVar(&size, "page-size", listing.DefaultPageSize, "5/10/25/50/100")

	ret := &cobra.Command{
		Use:   "return ID",
		Short: "Marca un préstamo como devuelto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			ctx, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			res, err := loans.NewService(a.api, requesters.NewService(a.api)).Return(ctx, id)
			if err != nil {
				return describe(err)
			}
			return a.printJSON(res)
		},
	}

	var days int
	ext := &cobra.Command{
		Use:   "extend ID",
		Short: "Prolonga la fecha límite (aprendiz: 1 día; otros: 1 a 30)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			ctx, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			res, err := loans.NewService(a.api, requesters.NewService(a.api)).Extend(ctx, id, days)
			if err != nil {
				return describe(err)
			}
			return a.printJSON(res)
		},
	}
	ext.Flags().IntVar(&days, "days", 0, "días (0: valor por defecto del rol)")

	cmd.AddCommand(list, ret, ext)
	return cmd
}

func newTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "template [FILE]",
		Short: "Genera la plantilla de importación de solicitantes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := importer.TemplateName
			if len(args) == 1 {
				name = args[0]
			}
			b, err := importer.RequesterTemplate()
			if err != nil {
				return err
			}
			if err := os.WriteFile(name, b, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (%d bytes)\n", name, len(b))
			return nil
		},
	}
}
