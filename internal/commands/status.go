package commands

import (
	"os"
	"time"
)

// Status summarizes the gateway for the CLI and the MCP tools.
type Status struct {
	State           string    `json:"state"`
	RunID           string    `json:"runId,omitempty"`
	PID             int       `json:"pid,omitempty"`
	Port            int       `json:"port"`
	URL             string    `json:"url"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
	BinaryPath      string    `json:"binaryPath"`
	BinaryInstalled bool      `json:"binaryInstalled"`
}

// Status returns the current gateway status.
func (a *App) Status() Status {
	sup := a.Supervisor.Status()
	cfg := a.Config()

	st := Status{
		State:           string(sup.State),
		RunID:           sup.RunID,
		PID:             sup.PID,
		Port:            cfg.Port,
		URL:             a.StudioURL(),
		StartedAt:       sup.StartedAt,
		BinaryPath:      a.Provisioner.Path(),
		BinaryInstalled: a.Provisioner.Exists(),
	}
	if sup.Port != 0 {
		st.Port = sup.Port
	}
	if cfg.BinaryPath != "" {
		if _, err := os.Stat(cfg.BinaryPath); err == nil {
			st.BinaryPath = cfg.BinaryPath
			st.BinaryInstalled = true
		}
	}
	return st
}
