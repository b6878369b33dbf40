package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fullstacktard/fst-claude-proxy/internal/app"
	"github.com/fullstacktard/fst-claude-proxy/internal/backend"
	"github.com/fullstacktard/fst-claude-proxy/internal/config"
	proxyerr "github.com/fullstacktard/fst-claude-proxy/internal/errors"
	"github.com/fullstacktard/fst-claude-proxy/internal/runner"
	"github.com/fullstacktard/fst-claude-proxy/internal/scaffold"
)

// version is set at build time via ldflags
var version = "dev"

// workflowDir resolves the per-user workflow directory. This is the only
// place the CLAUDE_WORKFLOW_DIR environment variable is consulted; every
// layer below receives the resolved path explicitly.
func workflowDir() string {
	if dir := os.Getenv("CLAUDE_WORKFLOW_DIR"); dir != "" {
		return dir
	}

	dir, err := config.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s. Using current directory.\n", err)
		return "."
	}
	return dir
}

func exitOnError(err error) {
	if err != nil {
		proxyerr.HandleError(err)
		os.Exit(1)
	}
}

// gatherOptions assembles app.Options from flags, resolving the config path
// against the workflow directory when no explicit --config is given.
func gatherOptions(cmd *cobra.Command) (app.Options, error) {
	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := runner.ParseMode(modeStr)
	if err != nil {
		return app.Options{}, err
	}

	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	image, _ := cmd.Flags().GetString("image")
	name, _ := cmd.Flags().GetString("name")
	entryPoint, _ := cmd.Flags().GetString("entry-point")
	force, _ := cmd.Flags().GetBool("force")
	volumeFlags, _ := cmd.Flags().GetStringArray("volume")

	dir := workflowDir()
	if configPath == "" {
		configPath = filepath.Join(dir, config.ConfigFileName)
	}

	volumes := make(map[string]string)
	for _, v := range volumeFlags {
		hostPath, containerPath, ok := splitVolume(v)
		if !ok {
			return app.Options{}, fmt.Errorf("invalid volume %q (expected host:container)", v)
		}
		volumes[hostPath] = containerPath
	}

	return app.Options{
		Mode:          mode,
		Port:          port,
		Host:          host,
		ConfigDir:     dir,
		ConfigPath:    configPath,
		Debug:         debug,
		Image:         image,
		ContainerName: name,
		EntryPoint:    entryPoint,
		Volumes:       volumes,
		Force:         force,
	}, nil
}

func splitVolume(v string) (string, string, bool) {
	for i := len(v) - 1; i > 0; i-- {
		if v[i] == ':' {
			return v[:i], v[i+1:], true
		}
	}
	return "", "", false
}

var rootCmd = &cobra.Command{
	Use:     "fst-proxy",
	Short:   "fst-claude-proxy - LiteLLM proxy supervisor with agent routing",
	Version: version,
	Long: `fst-proxy launches and supervises the fst-claude-proxy backend, either as
a Docker container or as a locally spawned process, and manages the routing
configuration the backend consumes.`,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the proxy backend",
	Long: `Start resolves the proxy configuration, validates it, and launches the
backend in the selected execution mode. A validation error blocks the start
unless --force is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := gatherOptions(cmd)
		exitOnError(err)
		exitOnError(app.Start(opts))
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running proxy backend",
	Long: `Stop shuts down the backend instance recorded by the last start. Safe to
run when nothing is running.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := gatherOptions(cmd)
		exitOnError(err)
		exitOnError(app.Stop(opts))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the proxy backend's state and health",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := gatherOptions(cmd)
		exitOnError(err)
		exitOnError(app.Status(opts))
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Stream the backend container's logs",
	Long: `Logs attaches to the backend container's stdout and stderr and streams
lines until interrupted. Docker mode only; in local mode the backend already
inherits this terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = app.DefaultContainerName
		}

		b, err := backend.NewDockerBackend(name)
		exitOnError(err)

		stop, err := b.StreamLogs(context.Background(), func(line string) {
			fmt.Println(line)
		})
		exitOnError(err)
		defer stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the backend image from a local build context",
	Run: func(cmd *cobra.Command, args []string) {
		contextDir, _ := cmd.Flags().GetString("context")
		tag, _ := cmd.Flags().GetString("tag")

		b, err := backend.NewDockerBackend(app.DefaultContainerName)
		exitOnError(err)
		exitOnError(b.BuildImage(context.Background(), contextDir, tag))
		fmt.Printf("Image built: %s\n", tag)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that execution-mode prerequisites are available",
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := gatherOptions(cmd)
		exitOnError(err)
		exitOnError(app.Doctor(opts))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the proxy configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = filepath.Join(workflowDir(), config.ConfigFileName)
		}

		resolver := config.NewResolver(configPath)
		cfg := resolver.Load(false)
		if cfg == nil {
			defaults := config.Defaults()
			cfg = &defaults
			fmt.Fprintf(os.Stderr, "No config file at %s; showing built-in defaults.\n", configPath)
		}

		output := map[string]any{
			"config":       cfg,
			"routing_mode": cfg.Mode(),
			"fallback":     resolver.FallbackConfig(),
		}

		data, err := json.MarshalIndent(output, "", "  ")
		exitOnError(err)
		fmt.Println(string(data))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file into the workflow directory",
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")

		dir := workflowDir()
		exitOnError(scaffold.InitConfig(dir, dryRun, force))
		if !dryRun {
			fmt.Printf("Config written to %s\n", filepath.Join(dir, config.ConfigFileName))
		}
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = filepath.Join(workflowDir(), config.ConfigFileName)
		}

		resolver := config.NewResolver(configPath)
		cfg := resolver.Load(false)
		if cfg == nil {
			fmt.Printf("No config file at %s; built-in defaults are always valid.\n", configPath)
			return
		}

		result := config.Validate(cfg)
		for _, errMsg := range result.Errors {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errMsg)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}

		if result.Valid {
			fmt.Println("Config is valid.")
		} else {
			os.Exit(1)
		}
	},
}

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "docker", "Execution mode: docker or local")
	cmd.Flags().IntP("port", "p", 4000, "Port the proxy listens on")
	cmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	cmd.Flags().StringP("config", "c", "", "Path to the proxy config file")
	cmd.Flags().Bool("debug", false, "Enable debug logging in the backend")
	cmd.Flags().String("image", "", "Backend container image (docker mode)")
	cmd.Flags().String("name", "", "Backend container name (docker mode)")
	cmd.Flags().String("entry-point", "", "Backend executable (local mode)")
	cmd.Flags().Bool("force", false, "Start even when the config fails validation")
	cmd.Flags().StringArray("volume", nil, "Volume binding host:container (docker mode, repeatable)")
}

func init() {
	addConnectionFlags(startCmd)
	rootCmd.AddCommand(startCmd)

	addConnectionFlags(stopCmd)
	rootCmd.AddCommand(stopCmd)

	addConnectionFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)

	logsCmd.Flags().String("name", "", "Backend container name")
	rootCmd.AddCommand(logsCmd)

	buildCmd.Flags().String("context", ".", "Build context directory")
	buildCmd.Flags().String("tag", app.DefaultImage, "Image tag")
	rootCmd.AddCommand(buildCmd)

	addConnectionFlags(doctorCmd)
	rootCmd.AddCommand(doctorCmd)

	configShowCmd.Flags().StringP("config", "c", "", "Path to the proxy config file")
	configValidateCmd.Flags().StringP("config", "c", "", "Path to the proxy config file")
	configInitCmd.Flags().Bool("dry-run", false, "Print the config that would be written without writing it")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
