// Package systemd installs and checks the clearlift daemon unit.
package systemd

import "fmt"

// DaemonUnitPath is where init --install-systemd writes the daemon unit.
const DaemonUnitPath = "/etc/systemd/system/clearlift-daemon.service"

// DaemonTemplate returns the clearlift-daemon.service unit running the
// inbox daemon from bin against configDir (inbox, outbox and state live
// underneath it).
func DaemonTemplate(bin, configDir string) string {
	return fmt.Sprintf(`[Unit]
Description=Clearlift elevator inbox daemon
After=local-fs.target

[Service]
Type=simple
ExecStart=%[1]s daemon --inbox %[2]s/inbox --outbox %[2]s/outbox --state %[2]s/state --audit-log %[2]s/audit.jsonl --db %[2]s/history.db
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ReadWritePaths=%[2]s

[Install]
WantedBy=multi-user.target
`, bin, configDir)
}
