package deploy

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/stockagent/stockagent/internal/config"
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.AppName}} stock recommendation agent
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.ServiceUser}}
Group={{.ServiceUser}}
WorkingDirectory={{.AppDir}}
EnvironmentFile={{.EnvPath}}
ExecStart={{.ExecPath}}
Restart=always
RestartSec=5
MemoryMax={{.MemoryMax}}
NoNewPrivileges=true
ProtectSystem=full
PrivateTmp=true
StandardOutput=journal
StandardError=journal
SyslogIdentifier={{.AppName}}

[Install]
WantedBy=multi-user.target
`))

var nginxTemplate = template.Must(template.New("nginx").Parse(`server {
    listen 80;
    server_name {{.ServerName}};

    client_max_body_size 1m;

    location {{.HealthPath}} {
        proxy_pass http://127.0.0.1:{{.UpstreamPort}}{{.HealthPath}};
        access_log off;
    }

    location / {
        proxy_pass http://127.0.0.1:{{.UpstreamPort}};
        proxy_http_version 1.1;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection "upgrade";
        proxy_read_timeout 120s;
    }
}
`))

type unitData struct {
	AppName     string
	ServiceUser string
	AppDir      string
	EnvPath     string
	ExecPath    string
	MemoryMax   string
}

// RenderUnit renders the systemd unit for cfg.
func RenderUnit(cfg config.DeployConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := unitTemplate.Execute(&buf, unitData{
		AppName:     cfg.AppName,
		ServiceUser: cfg.ServiceUser,
		AppDir:      cfg.AppDir,
		EnvPath:     installedEnvPath(cfg),
		ExecPath:    installedBinaryPath(cfg),
		MemoryMax:   cfg.MemoryMax,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering systemd unit: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderNginxSite renders the reverse proxy site for cfg.
func RenderNginxSite(cfg config.DeployConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := nginxTemplate.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("rendering nginx site: %w", err)
	}
	return buf.Bytes(), nil
}

func installedBinaryPath(cfg config.DeployConfig) string {
	return filepath.Join(cfg.AppDir, "bin", cfg.AppName)
}

func installedEnvPath(cfg config.DeployConfig) string {
	return filepath.Join(cfg.AppDir, ".env")
}

func installedMigrationsDir(cfg config.DeployConfig) string {
	return filepath.Join(cfg.AppDir, "migrations")
}
