package systemd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// UnitHashFile is the name of the install-time hash file inside the
// daemon state directory.
const UnitHashFile = "unit-file.sha256"

// CheckUnitFileIntegrity compares the current unit file hash against the
// stored install-time hash. Returns a warning message if the unit file
// has been modified, or empty string if integrity is confirmed or
// checking is not applicable (no unit file or no stored hash).
func CheckUnitFileIntegrity(unitPath, hashPath string) string {
	if _, err := os.Stat(unitPath); err != nil {
		return "" // Not running under systemd or unit file not found.
	}

	stored, err := os.ReadFile(hashPath)
	if err != nil {
		return "" // No stored hash: first install or non-systemd environment.
	}
	expectedHash := strings.TrimSpace(string(stored))
	if len(expectedHash) != 64 {
		return "" // Invalid stored hash.
	}

	actualHash, err := hashFile(unitPath)
	if err != nil {
		return fmt.Sprintf("cannot read unit file %s: %v", unitPath, err)
	}
	if actualHash == expectedHash {
		return ""
	}

	return fmt.Sprintf("systemd unit file %s has been modified since installation (expected %s, got %s)",
		unitPath, expectedHash[:16], actualHash[:16])
}

// RecordUnitFileHash writes the SHA-256 hash of unitPath to hashPath.
// Called during installation to record the baseline.
func RecordUnitFileHash(unitPath, hashPath string) error {
	hash, err := hashFile(unitPath)
	if err != nil {
		return fmt.Errorf("hash unit file: %w", err)
	}
	return os.WriteFile(hashPath, []byte(hash+"\n"), 0600)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}
