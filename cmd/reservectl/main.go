package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusreserve/internal/bootstrap"
	"campusreserve/internal/database"
	"campusreserve/internal/domain"
	"campusreserve/internal/modules/admission"
	"campusreserve/internal/modules/inventory"
	"campusreserve/internal/modules/report"
	"campusreserve/internal/repository"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "reservectl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	inj := bootstrap.BuildContainer()
	defer bootstrap.Close(inj)

	app := &cli.App{
		Name:  "reservectl",
		Usage: "operator tasks for the campus reservation service",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Action: func(c *cli.Context) error {
					return database.Migrate(do.MustInvoke[*gorm.DB](inj))
				},
			},
			{
				Name:  "seed",
				Usage: "insert demo users, spaces and resources (idempotent)",
				Action: func(c *cli.Context) error {
					return seed(c.Context, inj)
				},
			},
			{
				Name:  "deactivate-space",
				Usage: "take a space out of service and cancel its upcoming reservations",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "space id", Required: true},
				},
				Action: func(c *cli.Context) error {
					res, err := do.MustInvoke[*inventory.Service](inj).
						DeactivateSpace(c.Context, domain.Actor{Role: domain.RoleAdmin}, c.Int64("id"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "space %q deactivated, %d reservation(s) cancelled\n", res.Space.Name, len(res.Cancelled))
					for _, r := range res.Cancelled {
						fmt.Fprintf(c.App.Writer, "  #%d %s %s-%s requester=%d\n", r.ID, r.Date, r.StartTime, r.EndTime, r.RequesterID)
					}
					return nil
				},
			},
			{
				Name:  "finalize",
				Usage: "mark approved reservations dated before today as FINALIZED",
				Action: func(c *cli.Context) error {
					n, err := do.MustInvoke[*admission.Engine](inj).FinalizeElapsed(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%d reservation(s) finalized\n", n)
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "write the reservation report as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "first date, YYYY-MM-DD"},
					&cli.StringFlag{Name: "to", Usage: "last date, YYYY-MM-DD"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
				},
				Action: func(c *cli.Context) error {
					for _, name := range []string{"from", "to"} {
						if v := c.String(name); v != "" {
							if _, err := domain.ParseDate(v); err != nil {
								return fmt.Errorf("--%s: %w", name, err)
							}
						}
					}

					var w io.Writer = c.App.Writer
					if path := c.String("out"); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return err
						}
						defer f.Close()
						w = f
					}
					return do.MustInvoke[*report.Service](inj).ExportCSV(c.Context, w, c.String("from"), c.String("to"))
				},
			},
		},
	}

	if err := app.Run(args); err != nil {
		do.MustInvoke[*zap.Logger](inj).Error("reservectl failed", zap.Error(err))
		return err
	}
	return nil
}

func seed(ctx context.Context, inj *do.Injector) error {
	log := do.MustInvoke[*zap.Logger](inj)
	db := do.MustInvoke[*gorm.DB](inj)
	users := repository.NewUserRepository(db)
	inv := do.MustInvoke[*inventory.Service](inj)

	for _, u := range []domain.User{
		{Email: "admin@campus.test", Name: "Reservations Office", Role: domain.RoleAdmin, IsActive: true},
		{Email: "ana@campus.test", Name: "Ana Torres", Role: domain.RoleRequester, IsActive: true},
		{Email: "luis@campus.test", Name: "Luis Rojas", Role: domain.RoleRequester, IsActive: true},
	} {
		if err := users.Upsert(ctx, &u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	for _, s := range []inventory.SpaceRequest{
		{Name: "Auditorium", Location: "Building A, ground floor", Capacity: 200},
		{Name: "Computer Lab 1", Location: "Building B, room 104", Capacity: 30},
		{Name: "Meeting Room 3", Location: "Library, 2nd floor", Capacity: 12},
	} {
		if _, err := inv.CreateSpace(ctx, s); err != nil && !isDuplicate(err) {
			return fmt.Errorf("seed space %s: %w", s.Name, err)
		}
	}

	for _, r := range []inventory.ResourceRequest{
		{Name: "Projector", Stock: 4},
		{Name: "Wireless Microphone", Stock: 6},
		{Name: "Laptop", Stock: 10},
		{Name: "Video Camera", Stock: 2},
	} {
		if _, err := inv.CreateResource(ctx, r); err != nil && !isDuplicate(err) {
			return fmt.Errorf("seed resource %s: %w", r.Name, err)
		}
	}

	log.Info("seed complete")
	return nil
}

func isDuplicate(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve) && ve.Has("duplicate")
}
