package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stockagent/stockagent/migrations"
)

// BareMetal deploys the service as a systemd unit behind nginx.
type BareMetal struct {
	opts    Options
	geteuid func() int
	env     *EnvFile
}

func NewBareMetal(opts Options) *BareMetal {
	opts.defaults()
	return &BareMetal{opts: opts, geteuid: os.Geteuid}
}

// Deploy runs every step and stops at the first failure.
func (b *BareMetal) Deploy(ctx context.Context) (Result, error) {
	b.opts.Out.Header("Deploying %s (bare metal)", b.opts.Config.AppName)
	res := NewPlan(b.opts.Out, b.Steps()...).Execute(ctx)
	if err := finish(ctx, b.opts, ModeBareMetal, res); err != nil {
		return res, err
	}
	b.summary()
	return res, nil
}

func (b *BareMetal) Steps() []Step {
	cfg := b.opts.Config
	steps := []Step{
		{Name: "Checking privileges", Run: b.requireRoot},
		{Name: "Verifying environment file", Run: b.verifyEnv},
		{Name: "Updating package index", Run: b.run("apt-get", "update", "-q")},
		{Name: "Installing system packages", Run: b.run("apt-get", append([]string{"install", "-y", "-q"}, cfg.Packages...)...)},
		{Name: "Creating service user", Run: b.ensureUser},
		{Name: "Preparing application directory", Run: b.prepareDir},
		{Name: "Installing application", Run: b.install},
	}
	if b.opts.Migrate != nil {
		steps = append(steps, Step{Name: "Applying database migrations", Run: b.opts.Migrate})
	}
	steps = append(steps,
		Step{Name: "Writing systemd unit", Run: b.writeUnit},
		Step{Name: "Starting service", Run: b.startService},
		Step{Name: "Configuring nginx", Run: b.writeNginxSite},
		Step{Name: "Validating nginx configuration", Run: b.testNginx},
		Step{Name: "Reloading nginx", Run: b.run("systemctl", "reload", "nginx")},
		checkHealth(b.opts),
	)
	return steps
}

func (b *BareMetal) run(name string, args ...string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := b.opts.Runner.Run(ctx, name, args...)
		return err
	}
}

func (b *BareMetal) requireRoot(context.Context) error {
	if uid := b.geteuid(); uid != 0 {
		return fmt.Errorf("%w (euid %d), rerun with sudo", ErrNotRoot, uid)
	}
	return nil
}

func (b *BareMetal) verifyEnv(context.Context) error {
	env, err := verifyEnv(b.opts.Config.EnvFile)
	if err != nil {
		return err
	}
	b.env = env
	b.opts.Out.Success("%s has all required keys", env.Path)
	return nil
}

func (b *BareMetal) ensureUser(ctx context.Context) error {
	user := b.opts.Config.ServiceUser
	if _, err := b.opts.Runner.Run(ctx, "id", "-u", user); err == nil {
		b.opts.Out.Info("User %s already exists", user)
		return nil
	}
	_, err := b.opts.Runner.Run(ctx, "useradd",
		"--system",
		"--no-create-home",
		"--home-dir", b.opts.Config.AppDir,
		"--shell", "/usr/sbin/nologin",
		user)
	return err
}

func (b *BareMetal) prepareDir(context.Context) error {
	cfg := b.opts.Config
	for _, dir := range []string{cfg.AppDir, filepath.Dir(installedBinaryPath(cfg)), installedMigrationsDir(cfg)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func (b *BareMetal) install(ctx context.Context) error {
	cfg := b.opts.Config
	if err := copyFile(cfg.BinaryPath, installedBinaryPath(cfg), 0o755); err != nil {
		return err
	}
	if err := extractMigrations(migrations.FS, installedMigrationsDir(cfg)); err != nil {
		return err
	}
	if b.env != nil {
		if err := WriteEnvFile(installedEnvPath(cfg), b.env.Values); err != nil {
			return err
		}
	}
	owner := cfg.ServiceUser + ":" + cfg.ServiceUser
	_, err := b.opts.Runner.Run(ctx, "chown", "-R", owner, cfg.AppDir)
	return err
}

func (b *BareMetal) writeUnit(context.Context) error {
	unit, err := RenderUnit(b.opts.Config)
	if err != nil {
		return err
	}
	if err := os.WriteFile(b.opts.Config.UnitPath, unit, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", b.opts.Config.UnitPath, err)
	}
	return nil
}

func (b *BareMetal) startService(ctx context.Context) error {
	name := b.opts.Config.AppName
	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", name},
		{"restart", name},
	} {
		if _, err := b.opts.Runner.Run(ctx, "systemctl", args...); err != nil {
			return err
		}
	}
	return nil
}

func (b *BareMetal) writeNginxSite(context.Context) error {
	cfg := b.opts.Config
	site, err := RenderNginxSite(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.NginxSitePath, site, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.NginxSitePath, err)
	}

	link := filepath.Join(cfg.NginxEnabledDir, filepath.Base(cfg.NginxSitePath))
	if err := os.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", link, err)
	}
	if err := os.Symlink(cfg.NginxSitePath, link); err != nil {
		return fmt.Errorf("enabling nginx site: %w", err)
	}
	return nil
}

func (b *BareMetal) testNginx(ctx context.Context) error {
	if _, err := b.opts.Runner.Run(ctx, "nginx", "-t"); err != nil {
		return fmt.Errorf("%w: %v", ErrNginxConfig, err)
	}
	return nil
}

func (b *BareMetal) summary() {
	cfg := b.opts.Config
	out := b.opts.Out
	out.Success("Deployment of %s complete", cfg.AppName)
	out.Plain("  Service:    systemctl status %s\n", cfg.AppName)
	out.Plain("  Logs:       journalctl -u %s -f\n", cfg.AppName)
	out.Plain("  Unit:       %s\n", cfg.UnitPath)
	out.Plain("  Nginx site: %s\n", cfg.NginxSitePath)
	out.Plain("  Health:     %s\n", cfg.HealthProbeURL())
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	// Rename so a running binary is replaced rather than overwritten in place.
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("installing %s: %w", dst, err)
	}
	return nil
}

func extractMigrations(src fs.FS, dir string) error {
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", path, err)
		}
		dst := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("writing migration %s: %w", dst, err)
		}
		return nil
	})
}
