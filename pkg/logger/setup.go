package logger

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SetupLoggerTo initializes the default logger writing to out.
func SetupLoggerTo(out io.Writer, logLevel string, logJSON, logSource bool) Logger {
	Init(&Config{
		Level:      ParseLevel(logLevel),
		Output:     out,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
	return GetDefault()
}

func GetLoggerConfig(cmd *cobra.Command) (string, bool, bool, error) {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-json flag: %w", err)
	}

	logSource, err := cmd.Flags().GetBool("log-source")
	if err != nil {
		return "", false, false, fmt.Errorf("failed to get log-source flag: %w", err)
	}

	return logLevel, logJSON, logSource, nil
}
