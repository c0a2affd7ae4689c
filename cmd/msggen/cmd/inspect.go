package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/msggen/internal/compiler"
	"github.com/danmuck/msggen/internal/protocol"
	"github.com/danmuck/msggen/internal/protocol/frame"
	"github.com/danmuck/msggen/internal/protocol/schema"
	"github.com/danmuck/msggen/internal/table"
)

var (
	inspectHandshake bool
	inspectFields    bool
	inspectVectors   bool
	inspectFrame     string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <schema>",
	Short: "Print message ids, names and frame sizes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		text, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		msgs, err := compiler.Compile(text, compiler.Options{
			Format:    table.FormatFromPath(path),
			Handshake: inspectHandshake,
		})
		if err != nil {
			return schemaFailure(path, err)
		}

		if inspectFrame != "" {
			return decodeFrame(msgs, inspectFrame)
		}

		nameColor.Printf("%-4s %-28s %-16s %8s %6s\n", "ID", "NAME", "CLASS", "PAYLOAD", "FRAME")
		for _, m := range msgs {
			l := frame.LayoutOf(m)
			fmt.Printf("%-4d %-28s %-16s %8d %6d\n", m.ID, m.Name, m.Class, l.PayloadSize, l.FrameSize)
			if inspectFields {
				for _, s := range l.Slots {
					dimColor.Printf("       +%-3d %-20s %s\n", s.Offset, s.Field.Name, s.Field.Type)
				}
			}
			if inspectVectors {
				if err := printVectors(m); err != nil {
					return err
				}
			}
		}
		dimColor.Printf("%d messages, fingerprint %s\n", len(msgs), schema.Fingerprint(msgs))
		return nil
	},
}

func printVectors(m schema.MsgSpec) error {
	vecs, err := protocol.Vectors(m)
	if err != nil {
		return err
	}
	for _, v := range vecs {
		warnColor.Printf("       %-8s ", v.Label)
		fmt.Println(hex.EncodeToString(v.Frame))
	}
	return nil
}

func decodeFrame(msgs []schema.MsgSpec, text string) error {
	text = strings.NewReplacer(" ", "", ":", "").Replace(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	buf, err := hex.DecodeString(text)
	if err != nil {
		return fmt.Errorf("frame is not hex: %w", err)
	}
	msg, err := protocol.NewCatalog(msgs).Decode(buf)
	if err != nil {
		return err
	}
	okColor.Print("decoded ")
	fmt.Println(msg)
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVarP(&inspectHandshake, "handshake", "", false, "include the interMCU uid handshake message")
	inspectCmd.Flags().BoolVarP(&inspectFields, "fields", "f", false, "list field offsets")
	inspectCmd.Flags().BoolVarP(&inspectVectors, "vectors", "v", false, "print reference frames")
	inspectCmd.Flags().StringVarP(&inspectFrame, "frame", "", "", "decode a hex encoded frame instead of listing messages")
}
