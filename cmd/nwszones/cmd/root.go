package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
)

var (
	// baseURL is the NWS API root.
	baseURL string
	// contact identifies the caller in the User-Agent, as the NWS API requires.
	contact string
	// verbose enables debug logging.
	verbose bool

	// log is the CLI logger; it writes to stderr so tables on stdout stay clean.
	log = newLogger(zapcore.InfoLevel)

	// rootCmd is the base command for the NWS zone tools.
	rootCmd = &cobra.Command{
		Use:   "nwszones",
		Short: "Look up National Weather Service zone codes.",
		Long: `Tools for finding the NWS forecast zone code a widget should watch.

"list" prints every zone as a Markdown table sorted by state and name.
"lookup" resolves a latitude/longitude pair to its forecast zone.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log = newLogger(zapcore.DebugLevel)
			}
		},
	}
)

// newLogger creates a sugared console logger writing to stderr.
func newLogger(level zapcore.LevelEnabler) *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: ", ",
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)

	return zap.New(core).Sugar()
}

func newClient() *nws.Client {
	return nws.NewClient(baseURL, contact)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// Execute runs the nwszones CLI and exits with non-zero status on error.
func Execute() {
	defer func() { _ = log.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", nws.DefaultBaseURL, "NWS API base URL")
	rootCmd.PersistentFlags().StringVar(&contact, "email", "nwszones@example.com", "contact address sent in the User-Agent")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(listCmd, lookupCmd)
}
