package ftpserver

import (
	"fmt"

	"goftp.io/server/v2"
)

// Config holds FTP listener settings.
type Config struct {
	Hostname     string
	Port         int
	PublicIP     string
	PassivePorts string
}

// NewServer builds the goftp server around the drive filesystem.
func NewServer(cfg Config, fs Filesystem, auth server.Auth) (*server.Server, error) {
	srv, err := server.NewServer(&server.Options{
		Name:           "driveftp",
		WelcomeMessage: "driveftp ready",
		Driver:         NewDriver(fs),
		Auth:           auth,
		Perm:           server.NewSimplePerm("root", "root"),
		Logger:         zapLogger{},
		Hostname:       cfg.Hostname,
		PublicIP:       cfg.PublicIP,
		PassivePorts:   cfg.PassivePorts,
		Port:           cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("create ftp server: %w", err)
	}
	return srv, nil
}
