package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/ytsync/internal/auth"
	"github.com/joescharf/ytsync/internal/cache"
	"github.com/joescharf/ytsync/internal/credentials"
	"github.com/joescharf/ytsync/internal/output"
	"github.com/joescharf/ytsync/internal/store"
	"github.com/joescharf/ytsync/internal/syncengine"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	authMgr   *auth.Manager

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "ytsync",
	Short: "YouTrack sync - edit issues and articles as local files",
	Long: `ytsync connects to a YouTrack server and lets you open issues and
knowledge-base articles as local Markdown files, track their sync status,
and push edits back. It also exposes an MCP server so AI tools can query
projects and entities.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return syncStatusRun()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/ytsync/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "ytsync")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("YTSYNC")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "ytsync")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "ytsync.db"))
	viper.SetDefault("temp_dir", filepath.Join(defaultConfigDir, "edited"))
	viper.SetDefault("recent_cap", cache.DefaultRecentCap)
	viper.SetDefault("editor", "")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Store and auth manager are initialized lazily so config/version
	// commands run without touching the database or credentials.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getAuthManager returns the shared auth manager, initializing it on first call.
func getAuthManager() *auth.Manager {
	if authMgr != nil {
		return authMgr
	}
	creds := credentials.NewStore(viper.GetString("state_dir"))
	authMgr = auth.NewManager(creds)
	authMgr.Logf = ui.Warning
	return authMgr
}

// session bundles everything a connected command needs.
type session struct {
	auth      *auth.Manager
	engine    *syncengine.Engine
	workspace *cache.Workspace
}

// requireSession restores the stored session or fails with a login hint.
// The workspace cache is rebound to the session's server before return.
func requireSession(ctx context.Context) (*session, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	m := getAuthManager()
	if !m.IsAuthenticated() && !m.Initialize(ctx) {
		return nil, fmt.Errorf("not authenticated: run 'ytsync login --url <server> --token <token>'")
	}

	ws := cache.NewWorkspace(s)
	ws.RecentCap = viper.GetInt("recent_cap")
	ws.Logf = ui.VerboseLog
	ws.Rebind(m.BaseURL())

	engine := syncengine.New(s, m.Client(), m.BaseURL(), viper.GetString("temp_dir"))

	return &session{auth: m, engine: engine, workspace: ws}, nil
}
