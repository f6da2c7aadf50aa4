package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bioimagesuiteweb/bisweb-sub000/engine"
	"github.com/bioimagesuiteweb/bisweb-sub000/snapshot"
)

// Version of the bisweb tool.
const Version = "0.1.0"

// wrap is the column help text is wrapped at.
const wrap = 50

type app struct {
	v      *viper.Viper
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "bisweb",
		Short: "bisweb protocol tool",
		Long: fmt.Sprintf(`bisweb (v%s)

Reads and writes snapshots of bisweb interchange objects and checks that a
native engine round-trips every object kind.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: a.configure,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.logger.Sync() },
	}

	root.PersistentFlags().String("config", "", wrapString("Configuration file (YAML, TOML or JSON). Flags and BISWEB_* environment variables take precedence"))
	root.PersistentFlags().String("log-level", "warn", wrapString("Log level (debug, info, warn, error)"))

	root.AddCommand(
		a.versionCmd(),
		a.inspectCmd(),
		a.sampleCmd(),
		a.selftestCmd(),
	)
	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of bisweb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bisweb v%s\n", Version)
		},
	}
}

// configure loads .env files, binds the command's flags and builds the logger.
func (a *app) configure(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	a.v.SetEnvPrefix("bisweb")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, err := newLogger(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger
	engine.SetLogger(logger)
	snapshot.SetLogger(logger)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// wrapString wraps text at wrap columns for flag help.
func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
