package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pos-activation/internal/app"
	"pos-activation/internal/config"
	"pos-activation/internal/domain"
	"pos-activation/internal/domain/model"
	"pos-activation/internal/domain/ports/repository"
	"pos-activation/internal/infra/api"
	"pos-activation/internal/infra/logging"
)

const demoBusinessID = "demo-store"

var defaultFeatures = []struct {
	Name        string
	Description string
}{
	{"advanced_reporting", "Advanced sales and inventory reports"},
	{"multi_payment", "Split a sale across several payment methods"},
	{"inventory_alerts", "Low-stock notifications"},
	{"barcode_labels", "Print barcode labels for products"},
}

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer svc.Close()

	if err := seed(ctx, svc, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("seeding failed")
		svc.Close()
		os.Exit(1)
	}

	// Sessions for trying the API against the demo data.
	auth := api.NewAuthManager(cfg.Auth)
	for _, role := range []string{api.RoleAdmin, api.RoleOwner} {
		bid := demoBusinessID
		if role == api.RoleAdmin {
			bid = ""
		}
		if tok, err := auth.Mint(role, bid); err == nil {
			fmt.Printf("%s token: %s\n", role, tok)
		}
	}
}

// seed creates the demo business and the default features. Running it again
// changes nothing.
func seed(ctx context.Context, svc *app.Services, out io.Writer) error {
	_, err := svc.Repos.Businesses.FindByID(ctx, repository.NoTX, demoBusinessID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b, err := model.NewBusiness(demoBusinessID, "Demo Store")
		if err != nil {
			return err
		}
		if err := svc.Repos.Businesses.Save(ctx, repository.NoTX, b); err != nil {
			return fmt.Errorf("save demo business: %w", err)
		}
		fmt.Fprintf(out, "seeded business: %s (id=%s)\n", b.Name, b.ID)
	case err != nil:
		return fmt.Errorf("find demo business: %w", err)
	default:
		fmt.Fprintf(out, "business %s already present\n", demoBusinessID)
	}

	for _, f := range defaultFeatures {
		created, err := svc.Features.RegisterFeature(ctx, f.Name, f.Description, true)
		switch {
		case errors.Is(err, domain.ErrDuplicateFeature):
			fmt.Fprintf(out, "feature %s already present\n", f.Name)
		case err != nil:
			return fmt.Errorf("register feature %q: %w", f.Name, err)
		default:
			fmt.Fprintf(out, "seeded feature: %s (id=%s)\n", created.Name, created.ID)
		}
	}
	return nil
}
