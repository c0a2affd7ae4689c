// Package cmd implements the msggen command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/observability"
)

var metricsFile string

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	nameColor = color.New(color.FgCyan)
	dimColor  = color.New(color.FgHiBlack)
)

var rootCmd = &cobra.Command{
	Use:           "msggen",
	Short:         "Compile message schemas into C, C++, Python and JSON codecs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitLogger("msggen")
		observability.RegisterMetrics()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if metricsFile != "" {
		if merr := observability.WriteTextfile(metricsFile); merr != nil {
			log.Error().Err(merr).Str("path", metricsFile).Msg("metrics export failed")
		}
	}
	if err != nil {
		bailf("%s", err)
	}
}

func bailf(format string, args ...interface{}) {
	failColor.Fprint(os.Stderr, "error: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&metricsFile, "metrics-file", "", "", "write prometheus metrics to this file on exit")
}
