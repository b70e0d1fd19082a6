package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/pipeline"
)

func (c *CLI) importCommand() *cobra.Command {
	var mode, format string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load members from a JSON, YAML or compressed roster file",
		Long: `Load members from a roster file (.json, .yaml, .yml or .llz). In merge
mode incoming members replace stored members with the same id and new ones
are appended; replace mode discards the stored tree. The tree is saved as
imported and any problems are listed; repair them with validate --fix.

Use - to read from stdin together with --format.`,
		Example: `  legacylink import hale.yaml
  legacylink import backup.llz --mode replace
  cat tree.json | legacylink import - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importMode, err := pipeline.ParseImportMode(mode)
			if err != nil {
				return err
			}
			incoming, err := readRosterArg(args[0], format)
			if err != nil {
				return err
			}
			r, err := c.pipelineRunner(cmd.Context())
			if err != nil {
				return err
			}
			roster, issues, err := r.Import(cmd.Context(), c.tree, incoming, importMode)
			if err != nil {
				return err
			}
			printSuccess("Imported %d members into %s (%s)", incoming.Len(), StyleHighlight.Render(c.tree), importMode)
			printDetail("tree now has %d members", roster.Len())
			printIssues(issues, "Problems")
			if len(issues) > 0 {
				printNextStep("Repair with", appName+" validate --fix")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(pipeline.ImportMerge), "merge or replace")
	cmd.Flags().StringVar(&format, "format", "", "json, yaml or llz (needed for stdin)")
	return cmd
}

// readRosterArg reads a roster from a path, or from stdin for "-".
func readRosterArg(path, format string) (*family.Roster, error) {
	var (
		doc graph.Document
		err error
	)
	switch {
	case path == "-":
		f := graph.FormatJSON
		if format != "" {
			if f, err = graph.FormatFromPath("stdin." + format); err != nil {
				return nil, err
			}
		}
		doc, err = graph.ReadRoster(stdin, f)
	case format != "":
		var f graph.Format
		if f, err = graph.FormatFromPath("file." + format); err != nil {
			return nil, err
		}
		var file *os.File
		if file, err = os.Open(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		defer file.Close()
		doc, err = graph.ReadRoster(file, f)
	default:
		doc, err = graph.ReadRosterFile(path)
	}
	if err != nil {
		return nil, err
	}
	return doc.Roster(), nil
}

func (c *CLI) backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup FILE",
		Short: "Write the tree to a roster file",
		Long:  "Write the tree to a roster file. The extension picks the encoding: .json, .yaml, .yml, or .llz for zstd-compressed JSON.",
		Example: `  legacylink backup hale.json
  legacylink backup --tree hale hale-2026.llz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			if err := graph.WriteRosterFile(args[0], graph.NewDocument(c.tree, roster)); err != nil {
				return err
			}
			printSuccess("Backed up %d members of %s", roster.Len(), StyleHighlight.Render(c.tree))
			printFile(args[0])
			return nil
		},
	}
}

func (c *CLI) validateCommand() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the tree for one-sided links and parent cycles",
		Long: `Check the tree for duplicate ids, links to missing members, self
links, one-sided links and parent cycles. With --fix, missing reverse links
are added and cycles are broken, then the tree is saved and checked again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				roster      *family.Roster
				symmetrized int
				broken      int
				err         error
			)
			if fix {
				roster, err = c.mutateTree(cmd, func(r *family.Roster) error {
					symmetrized, broken = r.Repair()
					return nil
				})
			} else {
				_, roster, err = c.loadTree(cmd)
			}
			if err != nil {
				return err
			}
			if fix {
				printSuccess("Added %d reverse links, broke %d cycles", symmetrized, broken)
			}

			issues := roster.Validate()
			if len(issues) == 0 {
				printSuccess("%s is consistent (%d members)", StyleHighlight.Render(c.tree), roster.Len())
				return nil
			}
			printIssues(issues, "Problems")
			if !fix {
				printNextStep("Repair with", appName+" validate --fix")
			}
			return errors.New(errors.ErrCodeInvalidTree, "%d problems found in %s", len(issues), c.tree)
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "add missing reverse links and break cycles")
	return cmd
}

func printIssues(issues []family.Issue, heading string) {
	if len(issues) == 0 {
		return
	}
	printWarning("%s (%d)", heading, len(issues))
	for _, is := range issues {
		printDetail("%s: %s", is.Kind, is.Message)
	}
}
