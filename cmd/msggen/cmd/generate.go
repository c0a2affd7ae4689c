package cmd

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/config"
	"github.com/danmuck/msggen/internal/emit"
	"github.com/danmuck/msggen/internal/output"
	"github.com/danmuck/msggen/internal/protocol/schema"
)

var (
	generateFlags        projectFlags
	generateStdout       bool
	generateKeepExisting bool
	generateBuildID      string
)

var generateCmd = &cobra.Command{
	Use:   "generate [--config msggen.toml] [--schema messages.toml] [--lang c,python] [--out dir]",
	Short: "Emit codec sources for every message in the schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := generateFlags.resolve(cmd)
		if err != nil {
			return err
		}
		msgs, err := compileProject(cfg)
		if err != nil {
			return err
		}
		buildID := compiler.NewBuildID()
		if generateBuildID != "" {
			v, err := strconv.ParseUint(generateBuildID, 0, 32)
			if err != nil {
				return err
			}
			buildID = uint32(v)
		}

		files, dirs, err := generateFiles(cfg, msgs, buildID)
		if err != nil {
			return err
		}
		log.Info().
			Int("messages", len(msgs)).
			Int("files", len(files)).
			Str("build_id", emit.BuildIDHex(buildID)).
			Msg("generate: compiled schema")

		if generateStdout {
			return output.Print(os.Stdout, files)
		}
		written, err := output.WriteFiles(cmd.Context(), cfg.Output, files, output.Options{
			Overwrite: !generateKeepExisting,
			Dirs:      dirs,
		})
		if err != nil {
			return err
		}
		for _, w := range written {
			okColor.Print("wrote ")
			nameColor.Print(w.Path)
			dimColor.Printf(" (%d bytes)\n", w.Bytes)
		}
		return nil
	},
}

// generateFiles runs the configured backends in one pass and routes each
// file to the output directory of the language that produced it.
func generateFiles(cfg config.ProjectConfig, msgs []schema.MsgSpec, buildID uint32) ([]emit.File, map[string]string, error) {
	files, err := compiler.Generate(msgs, buildID, lowerAll(cfg.Languages)...)
	if err != nil {
		return nil, nil, err
	}
	dirs := make(map[string]string, len(files))
	for _, f := range files {
		dirs[f.Name] = cfg.OutputDir(f.Language)
	}
	return files, dirs, nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateFlags.bind(generateCmd, true)
	generateCmd.Flags().BoolVarP(&generateStdout, "stdout", "", false, "print files instead of writing them")
	generateCmd.Flags().BoolVarP(&generateKeepExisting, "keep-existing", "", false, "fail instead of replacing existing files")
	generateCmd.Flags().StringVarP(&generateBuildID, "build-id", "", "", "fixed build id (e.g. 0x1234abcd) instead of a random one")
}
