// Command scidata inspects, converts and exchanges scientific dataset
// containers.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scidatacontainer/scidata-go/config"

	// Archive drivers and extension codecs.
	_ "github.com/scidatacontainer/scidata-go/archive/hdf5dc"
	_ "github.com/scidatacontainer/scidata-go/codec/hdf5codec"
	_ "github.com/scidatacontainer/scidata-go/codec/npycodec"
	_ "github.com/scidatacontainer/scidata-go/codec/pngcodec"
)

var (
	flagDebug  bool
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "scidata",
	Short: "work with scientific dataset containers",
	Long:  "scidata inspects, verifies, converts, uploads and downloads scientific dataset containers.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the configuration file")
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
