// Command camrec records clips from a camera, a command or a test pattern.
package main

import (
	"github.com/camrec/camrec/internal/config"
	"github.com/camrec/camrec/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "camrec",
	Short: "Record camera clips into a gallery",
	Long: `camrec records uncompressed YUV4MPEG2 clips from a V4L2 camera, from raw
frames written by a command, or from a synthetic test pattern, and saves
finished clips into a gallery directory.`,
	Example: `  # Record interactively from the best camera
  camrec record

  # Record from the test pattern at 720p
  camrec record --source videotest --resolution 720p

  # Record from ffmpeg
  CAMREC_COMMAND="ffmpeg -hide_banner -f lavfi -i testsrc=size=640x480:rate=30 -f rawvideo -pix_fmt yuv420p -" \
    camrec record -c camrec.yaml --source command

  # List video sources and their modes
  camrec devices`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		return logging.SetLevel(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (disabled, error, warn, info, debug, trace)")

	rootCmd.AddCommand(recordCmd, devicesCmd, formatsCmd)
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
