package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smazurov/streamctl/internal/streams"
)

// CreateInspectCmd creates the inspect command.
func CreateInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <connection-string>",
		Short: "Decode a connection string and show its profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg := streams.Decode(args[0])
			profile := streams.Classify(cfg)
			out := c.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Config  streams.StreamConfig `json:"config"`
					Profile streams.Profile      `json:"profile"`
				}{cfg, profile})
			}

			fmt.Fprintf(out, "source:  %s\n", streams.RedactAddress(cfg.SourceAddress))
			fmt.Fprintf(out, "mode:    %s\n", cfg.Mode)
			fmt.Fprintf(out, "profile: %s\n", profile)
			if cfg.Mode == streams.ModeTranscode {
				t := cfg.Transcode
				fmt.Fprintf(out, "video:   %s\n", orNone(t.VideoCodec))
				fmt.Fprintf(out, "audio:   %s\n", orNone(t.AudioCodec))
				fmt.Fprintf(out, "hwaccel: %s\n", orNone(t.HWAccel))
				fmt.Fprintf(out, "preset:  %s\n", orNone(string(t.Preset)))
				if len(t.Extra) > 0 {
					fmt.Fprintf(out, "extra:   #%s\n", strings.Join(t.Extra, "#"))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the decoded config as JSON")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
