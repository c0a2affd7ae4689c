package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/conformance"
)

var (
	verifyFlags projectFlags
	verifyKeep  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [--config msggen.toml] [--schema messages.toml] [--lang python,c,cpp]",
	Short: "Build and run the emitted code against the reference frames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := verifyFlags.resolve(cmd)
		if err != nil {
			return err
		}
		msgs, err := compileProject(cfg)
		if err != nil {
			return err
		}
		h := conformance.New()
		h.Dir = verifyKeep

		var langs []string
		if cmd.Flags().Changed("lang") {
			langs = lowerAll(cfg.Languages)
		}
		reports, err := h.Run(cmd.Context(), msgs, compiler.NewBuildID(), langs...)
		for _, r := range reports {
			if r.Skipped {
				warnColor.Print("skip ")
				fmt.Printf("%-7s %s\n", r.Language, r.Reason)
				continue
			}
			okColor.Print("pass ")
			fmt.Printf("%-7s %d vectors\n", r.Language, r.Vectors)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyFlags.bind(verifyCmd, false)
	verifyCmd.Flags().StringVarP(&verifyKeep, "keep", "", "", "keep generated drivers under this directory")
}
