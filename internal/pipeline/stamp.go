package pipeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/curvewatch/curvewatch/pkg/utils"
)

const stampPrefix = "Last updated:"

// StampReadme rewrites the "Last updated:" line in the README with the
// given date, appending one if the file has none. A missing README is
// created with just the stamp.
func StampReadme(path string, t time.Time) error {
	stamp := fmt.Sprintf("%s %s", stampPrefix, utils.FormatDate(t))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return os.WriteFile(path, []byte(stamp+"\n"), 0o644)
	}
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), stampPrefix) {
			lines[i] = stamp
			replaced = true
			break
		}
	}
	out := strings.Join(lines, "\n")
	if !replaced {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += stamp + "\n"
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
