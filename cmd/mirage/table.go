// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vimarian/mirage/internal/pipeline"
	"github.com/vimarian/mirage/pkg/types"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Run the full pipeline and write the exposure table",
	Long: `Table reads the proposal XML and pointing log, expands dither and
detector designations into literal exposure rows, attaches observation
metadata, resolves aperture sky positions, and writes the result as CSV.

Flags override values from the config file. Without --output the CSV is
written as Observation_table_for_<xml name>.csv in --output-dir.`,
	RunE: runTable,
}

func runTable(cmd *cobra.Command, args []string) error {
	cfg := tableConfig(cmd)
	if cfg.Input.XMLFile == "" || cfg.Input.PointingFile == "" {
		return errors.New("both --xml and --pointing are required")
	}

	outCSV := cfg.Output.CSVFile
	if outCSV == "" {
		outCSV = pipeline.DefaultOutputPath(cfg.Input.XMLFile, cfg.Output.Dir)
	}

	log := newLogger(cmd)
	tab, err := pipeline.Run(context.Background(), pipeline.Options{
		XMLFile:       cfg.Input.XMLFile,
		PointingFile:  cfg.Input.PointingFile,
		ObsListFile:   cfg.Input.ObsListFile,
		EpochListFile: cfg.Input.EpochListFile,
		OutputCSV:     outCSV,
		IndexDB:       cfg.Output.IndexDB,
	}, log)
	if err != nil {
		return err
	}

	pipeline.Summarize(os.Stdout, tab)
	return nil
}

// tableConfig merges the config file with command-line flags; flags win.
func tableConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()
	if v := viper.GetString("input.xml_file"); v != "" {
		cfg.Input.XMLFile = v
	}
	if v := viper.GetString("input.pointing_file"); v != "" {
		cfg.Input.PointingFile = v
	}
	if v := viper.GetString("input.obs_list_file"); v != "" {
		cfg.Input.ObsListFile = v
	}
	if v := viper.GetString("input.epoch_list_file"); v != "" {
		cfg.Input.EpochListFile = v
	}
	if v := viper.GetString("output.dir"); v != "" {
		cfg.Output.Dir = v
	}
	if v := viper.GetString("output.csv_file"); v != "" {
		cfg.Output.CSVFile = v
	}
	if v := viper.GetString("output.index_db"); v != "" {
		cfg.Output.IndexDB = v
	}

	if v, _ := cmd.Flags().GetString("xml"); v != "" {
		cfg.Input.XMLFile = v
	}
	if v, _ := cmd.Flags().GetString("pointing"); v != "" {
		cfg.Input.PointingFile = v
	}
	if v, _ := cmd.Flags().GetString("obs-list"); v != "" {
		cfg.Input.ObsListFile = v
	}
	if v, _ := cmd.Flags().GetString("epoch-list"); v != "" {
		cfg.Input.EpochListFile = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.CSVFile = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetString("index-db"); v != "" {
		cfg.Output.IndexDB = v
	}
	return cfg
}

func init() {
	tableCmd.Flags().String("xml", "", "proposal observation XML export (required)")
	tableCmd.Flags().String("pointing", "", "proposal pointing log export (required)")
	tableCmd.Flags().String("obs-list", "", "observation-list YAML with catalog and filter metadata")
	tableCmd.Flags().String("epoch-list", "", "epoch list file (used when no observation list is given)")
	tableCmd.Flags().String("output", "", "output CSV path (default: Observation_table_for_<xml>.csv)")
	tableCmd.Flags().String("output-dir", "", "directory for the default output name")
	tableCmd.Flags().String("index-db", "", "SQLite database to index exposures into")

	rootCmd.AddCommand(tableCmd)
}
