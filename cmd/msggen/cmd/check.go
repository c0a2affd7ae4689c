package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/table"
)

var (
	checkFormat    string
	checkHandshake bool
)

type checkResult struct {
	Path        string   `json:"path"`
	OK          bool     `json:"ok"`
	Messages    int      `json:"messages"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check <schema globs...> [--format text|json]",
	Short: "Validate schema files and report every error",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkFormat != "text" && checkFormat != "json" {
			return fmt.Errorf("unknown report format: %s", checkFormat)
		}
		paths, err := expandGlobs(args)
		if err != nil {
			return err
		}
		results := make([]checkResult, 0, len(paths))
		failed := 0
		for _, path := range paths {
			res := checkFile(path)
			if !res.OK {
				failed++
			}
			results = append(results, res)
		}

		if checkFormat == "json" {
			text, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(text))
		} else {
			printCheck(results)
		}
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d schema(s) invalid", errCheckFailed, failed, len(results))
		}
		return nil
	},
}

func expandGlobs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no schema matches %q", pattern)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func checkFile(path string) checkResult {
	res := checkResult{Path: path}
	text, err := os.ReadFile(path)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}
	msgs, err := compiler.Compile(text, compiler.Options{
		Format:    table.FormatFromPath(path),
		Handshake: checkHandshake,
	})
	if err != nil {
		var list schema.ErrorList
		if errors.As(err, &list) {
			res.Errors = list.Strings()
		} else {
			res.Errors = []string{err.Error()}
		}
		return res
	}
	res.OK = true
	res.Messages = len(msgs)
	res.Fingerprint = schema.Fingerprint(msgs)
	return res
}

func printCheck(results []checkResult) {
	for _, res := range results {
		if res.OK {
			okColor.Print("ok   ")
			nameColor.Print(res.Path)
			dimColor.Printf(" (%d messages, %s)\n", res.Messages, res.Fingerprint)
			continue
		}
		failColor.Print("FAIL ")
		nameColor.Println(res.Path)
		for _, e := range res.Errors {
			fmt.Printf("     %s\n", e)
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "report format: text|json")
	checkCmd.Flags().BoolVarP(&checkHandshake, "handshake", "", false, "include the interMCU uid handshake message")
}
