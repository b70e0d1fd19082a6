package cli

import (
	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/buildinfo"
	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/pipeline"
)

// RootCommand creates the root cobra command with all subcommands
// registered.
//
// Before any subcommand runs the config is loaded from --config (or the
// default path) and --verbose raises the log level to debug. The store is
// opened lazily by the commands that need it and closed afterwards.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "LegacyLink keeps family trees and draws them by generation",
		Long: `LegacyLink records family members and their parent, child, sibling and
spouse links, names the kinship between any two members, and lays the tree
out generation by generation for rendering and export.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return c.checkTree()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.Close()
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/legacylink/config.toml)")
	flags.StringVarP(&c.tree, "tree", "t", pipeline.DefaultTree, "family tree to operate on")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the layout and render cache")

	root.AddGroup(
		&cobra.Group{ID: "tree", Title: "Tree Commands:"},
		&cobra.Group{ID: "view", Title: "View Commands:"},
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
	)
	for _, sub := range []*cobra.Command{
		c.memberCommand(), c.linkCommand(), c.unlinkCommand(),
		c.importCommand(), c.backupCommand(), c.validateCommand(),
	} {
		sub.GroupID = "tree"
		root.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{
		c.relationCommand(), c.relationsCommand(), c.layoutCommand(),
		c.renderCommand(), c.exportCommand(), c.searchCommand(),
		c.statsCommand(), c.browseCommand(),
	} {
		sub.GroupID = "view"
		root.AddCommand(sub)
	}
	for _, sub := range []*cobra.Command{
		c.serveCommand(), c.loginCommand(), c.logoutCommand(), c.whoamiCommand(),
		c.cacheCommand(), c.configCommand(), c.completionCommand(), c.versionCommand(),
	} {
		sub.GroupID = "admin"
		root.AddCommand(sub)
	}
	return root
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Get()
			printKeyValue("Version", info.Version)
			printKeyValue("Commit", info.Commit)
			printKeyValue("Built", info.Date)
			return nil
		},
	}
}
