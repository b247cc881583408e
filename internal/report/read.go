package report

import (
	"fmt"
	"os"
)

// Read loads a previously generated artifact file.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report artifact: %w", err)
	}
	return string(data), nil
}
