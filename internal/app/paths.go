package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths for the .aptlookup/ project directory.
type Paths struct {
	Root   string // .aptlookup/
	Config string // .aptlookup/config.json
	DB     string // .aptlookup/aptlookup.db
	Status string // .aptlookup/status.json

	LogDir    string // .aptlookup/log/
	DaemonLog string // .aptlookup/log/daemon.log

	RunDir   string // .aptlookup/run/
	PIDFile  string // .aptlookup/run/daemon.pid
	PortFile string // .aptlookup/run/http.port
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, ".aptlookup")
	return &Paths{
		Root:   root,
		Config: filepath.Join(root, "config.json"),
		DB:     filepath.Join(root, "aptlookup.db"),
		Status: filepath.Join(root, "status.json"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		PortFile: filepath.Join(root, "run", "http.port"),
	}
}

// EnsureDirs creates all subdirectories under .aptlookup/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes ephemeral runtime files (PID file and port file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
