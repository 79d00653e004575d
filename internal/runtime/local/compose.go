package local

import (
	"fmt"
	"os"

	"codelevels/internal/domain/execution"
)

const unitFilePattern = "unit-*.py"

// writeUnit persists the composed source of unit at a freshly allocated
// temporary path inside dir. The caller owns the file and must call cleanup
// once the child has exited.
func writeUnit(dir string, unit execution.Unit) (string, func(), error) {
	file, err := os.CreateTemp(dir, unitFilePattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("create unit file: %w", err)
	}

	path := file.Name()
	cleanup := func() {
		_ = os.Remove(path)
	}

	if _, err := file.WriteString(unit.Source()); err != nil {
		_ = file.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write unit file: %w", err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close unit file: %w", err)
	}

	return path, cleanup, nil
}
