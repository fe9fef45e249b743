// Command grpctui wires the configuration, descriptor pool and engine
// models together and hands off to the terminal UI. Kept deliberately
// thin: the UI itself is an external collaborator (see spec.md's Scope),
// so this entrypoint's job ends at constructing a ready-to-drive engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kdavison/grpctui/internal/codec"
	"github.com/kdavison/grpctui/internal/config"
	"github.com/kdavison/grpctui/internal/descriptor"
	"github.com/kdavison/grpctui/internal/grpcclient"
	"github.com/kdavison/grpctui/internal/headers"
	"github.com/kdavison/grpctui/internal/history"
	"github.com/kdavison/grpctui/internal/logging"
	"github.com/kdavison/grpctui/internal/messages"
	"github.com/kdavison/grpctui/internal/selection"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file (default: $GRPCTUI_CONFIG_DIR/config.toml)")
	address := flag.String("address", "", "gRPC server address, overrides server.default_address")
	flag.Parse()

	if err := run(*configPath, *address); err != nil {
		fmt.Fprintln(os.Stderr, "grpctui:", err)
		os.Exit(1)
	}
}

func run(configPath, addressOverride string) error {
	codec.Register()

	if configPath == "" {
		dir, err := config.Dir()
		if err != nil {
			return fmt.Errorf("resolve config dir: %w", err)
		}
		configPath = filepath.Join(dir, "config.toml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logging.Init(cfg.Logging.Directory, logging.Level(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()

	hm := headers.New(cfg.Server.DefaultAddress, cfg.Server.DefaultAuthHeader)
	if addressOverride != "" {
		hm.Address = addressOverride
	}

	hist := history.New(cfg.History.Directory, cfg.History.Disabled, cfg.History.Autosave)

	pool, err := buildPool(cfg, hm.Address)
	if err != nil {
		return fmt.Errorf("build descriptor pool: %w", err)
	}

	client := grpcclient.New(hm.Address, grpcclient.TLSOption{
		Enabled:      cfg.TLS.CustomCert != "",
		CustomCACert: cfg.TLS.CustomCert,
	})
	if err := client.Dial(context.Background()); err != nil {
		return fmt.Errorf("dial %s: %w", hm.Address, err)
	}
	defer client.Close()

	sel := selection.New(pool)
	msgs := messages.New(client, hm, hist, cfg)

	logging.Debug("grpctui engine ready",
		zap.String("address", hm.Address),
		zap.Int("services", len(sel.Services())),
	)

	// The terminal UI takes ownership of sel/msgs/hm/hist from here; this
	// command has no rendering loop of its own.
	_ = msgs
	return nil
}

// buildPool assembles the Descriptor Pool either from configured .proto
// sources, or — when none are configured — from the target server's
// reflection service.
func buildPool(cfg *config.File, address string) (*descriptor.Pool, error) {
	if len(cfg.Files) > 0 {
		return descriptor.FromProtoFiles(cfg.Includes, cfg.Files...)
	}

	client := grpcclient.New(address, grpcclient.TLSOption{
		Enabled:      cfg.TLS.CustomCert != "",
		CustomCACert: cfg.TLS.CustomCert,
	})
	ctx := context.Background()
	if err := client.Dial(ctx); err != nil {
		return nil, fmt.Errorf("dial %s for reflection: %w", address, err)
	}
	defer client.Close()

	refl, err := client.Reflection()
	if err != nil {
		return nil, err
	}

	services, err := refl.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	pool := descriptor.NewPool()
	for _, svc := range services {
		protos, err := refl.Resolve(ctx, svc)
		if err != nil {
			return nil, err
		}
		p, err := descriptor.FromFileDescriptorProtos(protos)
		if err != nil {
			return nil, err
		}
		pool.Merge(p)
	}
	return pool, nil
}
