// Command boschctl reads and controls a Bosch/Buderus heating gateway on
// the local network.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/WulfgarW/boschhttp/internal/config"
)

var (
	configFile string
	flagHost   string
	flagKey    string
	flagPass   string
	flagDebug  bool
	flagLog    string

	cfg     *config.Config
	logger  *log.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:           "boschctl",
	Short:         "Talk to a Bosch/Buderus heating gateway",
	Long:          "Read circuits and sensors of a Bosch/Buderus heating gateway, change modes and target temperatures and export readings.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
		applyFlags(cfg)
		return openLog(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "configuration file (yaml)")
	pf.StringVar(&flagHost, "host", "", "gateway address, overrides BOSCH_IP")
	pf.StringVar(&flagKey, "access-key", "", "gateway access key, overrides BOSCH_ACCESS_TOKEN")
	pf.StringVar(&flagPass, "password", "", "gateway password, overrides BOSCH_PASSWORD")
	pf.BoolVar(&flagDebug, "debug", false, "log library debug output")
	pf.StringVar(&flagLog, "log-file", "", "write the log to this file instead of stderr")

	rootCmd.AddCommand(infoCmd, scanCmd, circuitsCmd, sensorsCmd, setModeCmd, setTempCmd, exportCmd)
}

func applyFlags(cfg *config.Config) {
	if flagHost != "" {
		cfg.Gateway.Host = flagHost
	}
	if flagKey != "" {
		cfg.Gateway.AccessKey = flagKey
	}
	if flagPass != "" {
		cfg.Gateway.Password = flagPass
	}
	if flagDebug {
		cfg.Logging.Debug = true
	}
	if flagLog != "" {
		cfg.Logging.File = flagLog
	}
}

func openLog(lc config.LoggingConfig) error {
	var w io.Writer = os.Stderr
	if lc.File != "" {
		f, err := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		w = f
	}
	logger = log.New(w, "boschctl: ", log.Lshortfile)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
