package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/daemon"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfgFile string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pyreg [file]",
		Short: "Run programs written in a small Python-like language",
		Long: `pyreg compiles programs to register bytecode and runs them.

Programs run through the pyreg daemon when one is listening, which keeps
compiled bytecode cached between invocations, and in process otherwise.`,
		Example: `  pyreg -c "print(6 * 7)"
  pyreg script.py
  echo "1 + 2" | pyreg --stdin
  pyreg --profile -c "x = 2\nx * x"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			processGlobalFlags()
		},
		RunE: runRoot,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pyreg.yaml)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("socket", daemon.DefaultSocketPath, "Daemon socket path")
	pf.String("pid-file", daemon.DefaultPIDFile, "Daemon PID file path")
	pf.String("http", "", "Daemon HTTP address, for example 127.0.0.1:7979")
	pf.Int64("max-steps", 0, "Abort programs after this many instructions (0 means no limit)")
	pf.Int("cache-size", 0, "Compiled program cache capacity (0 disables caching when set)")

	f := cmd.Flags()
	f.StringP("code", "c", "", "Code to execute")
	f.Bool("stdin", false, "Read code from stdin")
	f.Bool("no-daemon", false, "Execute in process without contacting the daemon")
	f.Bool("profile", false, "Print a per-stage timing table to stderr")
	f.Bool("profile-json", false, "Print per-stage timings as JSON to stderr")

	for _, name := range []string{"no-color", "log-level", "socket", "pid-file", "http", "max-steps"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
	viper.BindPFlag("cache.size", pf.Lookup("cache-size"))
	for _, name := range []string{"code", "stdin", "no-daemon", "profile", "profile-json"} {
		viper.BindPFlag(name, f.Lookup(name))
	}

	cmd.AddCommand(
		newRunCommand(),
		newCompileCommand(),
		newDisCommand(),
		newTraceCommand(),
		newDaemonCommand(),
		newCacheCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			if format == "json" {
				data, err := marshalJSON(map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pyreg %s (%s, %s)\n", version, commit, date)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".pyreg")
	}
	viper.SetEnvPrefix("pyreg")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger := newLogger()
		logger.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	} else if cfgFile != "" {
		fatal(fmt.Errorf("reading config: %w", err))
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cmd.Flags().Changed("code") && !cmd.Flags().Changed("stdin") {
		return cmd.Help()
	}
	source, filename, err := getSource(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	opts := executeOptions(filename)

	var output string
	switch {
	case viper.GetBool("profile") || viper.GetBool("profile-json"):
		out, profile, err := pyreg.ExecuteProfiled(ctx, source, opts...)
		if err != nil {
			return withSource(err, source)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		if viper.GetBool("profile-json") {
			text, err := profile.JSON(colorEnabled())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), text)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s", profile.Table())
		}
		return nil
	case viper.GetBool("no-daemon"):
		output, err = pyreg.Execute(ctx, source, opts...)
	default:
		client, cerr := daemon.NewClient(daemonConfig())
		if cerr != nil {
			return cerr
		}
		output, err = client.ExecuteOrFallback(ctx, source, opts...)
	}
	if err != nil {
		return withSource(err, source)
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

func executeOptions(filename string) []pyreg.Option {
	var opts []pyreg.Option
	if filename != "" {
		opts = append(opts, pyreg.WithFilename(filepath.Base(filename)))
	}
	if steps := viper.GetInt64("max-steps"); steps > 0 {
		opts = append(opts, pyreg.WithMaxSteps(steps))
	}
	return opts
}

func daemonConfig() daemon.Config {
	logger := newLogger()
	return daemon.Config{
		SocketPath: viper.GetString("socket"),
		PIDFile:    viper.GetString("pid-file"),
		HTTPAddr:   viper.GetString("http"),
		CacheSize:  cacheSize(),
		Logger:     &logger,
	}
}

// cacheSize maps an explicit cache size of 0 to a disabled daemon cache.
// An unset size keeps the default capacity.
func cacheSize() int {
	size := viper.GetInt("cache.size")
	if size == 0 && viper.IsSet("cache.size") {
		return daemon.CacheDisabled
	}
	return size
}

func main() {
	cobra.OnInitialize(initConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fatal(err)
	}
}
