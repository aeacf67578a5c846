package di

import (
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/logging"
)

// CLIFlags contains the global flags of rfpctl
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides holds the persistent flags that map onto configuration keys
	Overrides *pflag.FlagSet
}

// flagKeys maps rfpctl flag names to the configuration keys they override
var flagKeys = map[string]string{
	"provider":          "llm.provider",
	"max-body-size":     "llm.max_body_size",
	"store":             "store.type",
	"sqlite-path":       "store.sqlite_path",
	"mailbox":           "imap.mailbox",
	"mark-seen":         "poll.mark_seen",
	"correlate-subject": "poll.correlate_subject",
}

// RegisterFlags declares the configuration override flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("provider", "", "LLM provider (openai, gemini, bedrock)")
	fs.Int("max-body-size", 0, "Maximum email body size sent to the LLM")
	fs.String("store", "", "Store type (memory, sqlite, mysql, postgres)")
	fs.String("sqlite-path", "", "SQLite database path")
	fs.String("mailbox", "", "IMAP mailbox to poll")
	fs.Bool("mark-seen", false, "Flag processed messages as seen")
	fs.Bool("correlate-subject", false, "Attach replies to the RFP tagged in their subject")
}

// BuildCLIContainer creates and configures a dependency injection container for rfpctl
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration, with explicitly set flags taking precedence
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		if err := bindOverrides(cfg, flags.Overrides); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	if err := provideCollaborators(container); err != nil {
		return nil, err
	}

	return container, nil
}

func bindOverrides(cfg *config.Config, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := cfg.GetViper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}
