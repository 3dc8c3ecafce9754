package main

import (
	"fmt"
	"os"

	"github.com/kingrea/apiprobe/internal/bridge"
	"github.com/kingrea/apiprobe/internal/catalog"
	"github.com/kingrea/apiprobe/internal/config"
	"github.com/kingrea/apiprobe/internal/invoke"
	"github.com/kingrea/apiprobe/internal/logbook"
	"github.com/kingrea/apiprobe/internal/logging"
	"github.com/kingrea/apiprobe/internal/resolver"
	"github.com/kingrea/apiprobe/plugins"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	projectDir  string
	catalogPath string
	target      string
}

// project is everything a subcommand needs, built once per invocation.
type project struct {
	cfg      *config.Config
	logger   *logging.Logger
	journal  *logbook.Logbook
	catalog  *catalog.Catalog
	settings bridge.Settings
}

func loadProject(opts *globalOptions) (*project, error) {
	projectDir := opts.projectDir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		projectDir = cwd
	}
	if err := config.InitProjectDir(projectDir); err != nil {
		return nil, fmt.Errorf("initialize %s directory: %w", config.ProbeDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.catalogPath != "" {
		cfg.SetCatalogPath(opts.catalogPath)
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		logger.Close()
		return nil, err
	}
	producers := catalog.DefaultProducers(nil)
	if err := plugins.RegisterScriptProducers(producers, cfg); err != nil {
		logger.Close()
		return nil, err
	}
	cat, err := plugins.LoadCatalog(cfg, producers)
	if err != nil {
		logger.Errorf("catalog: %v", err)
		logger.Close()
		return nil, err
	}
	settings := bridge.SettingsFromConfig(cfg)
	if opts.target != "" {
		settings.Target = opts.target
	}
	logger.Printf("catalog loaded: %d categories", cat.Len())
	return &project{cfg: cfg, logger: logger, journal: journal, catalog: cat, settings: settings}, nil
}

func (p *project) resolver() *resolver.Resolver {
	return resolver.New(resolver.WithLogger(p.logger))
}

func (p *project) client() *bridge.Client {
	return bridge.NewClient(p.settings, bridge.WithClientLogger(p.logger))
}

func (p *project) invoker(send bool) *invoke.Invoker {
	opts := []invoke.Option{invoke.WithResolver(p.resolver()), invoke.WithJournal(p.journal)}
	if send {
		opts = append(opts, invoke.WithSender(p.client()))
	}
	return invoke.New(p.catalog, opts...)
}

func (p *project) Close() {
	if p != nil && p.logger != nil {
		p.logger.Close()
	}
}
