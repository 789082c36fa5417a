package types

// InputConfig names the proposal export files the pipeline consumes.
type InputConfig struct {
	// XMLFile is the proposal observation XML export.
	XMLFile string `json:"xml_file" yaml:"xml_file"`

	// PointingFile is the proposal pointing log export.
	PointingFile string `json:"pointing_file" yaml:"pointing_file"`

	// ObsListFile is an optional observation-list YAML file with
	// catalog and filter metadata per observation label. "none" or
	// empty disables it.
	ObsListFile string `json:"obs_list_file,omitempty" yaml:"obs_list_file,omitempty"`

	// EpochListFile is an optional whitespace-delimited epoch list,
	// used only when no observation list is given.
	EpochListFile string `json:"epoch_list_file,omitempty" yaml:"epoch_list_file,omitempty"`
}

// OutputConfig controls where the exposure table is written.
type OutputConfig struct {
	// Dir is the directory for the default CSV name (default ".").
	Dir string `json:"dir" yaml:"dir"`

	// CSVFile overrides the default CSV path when set.
	CSVFile string `json:"csv_file,omitempty" yaml:"csv_file,omitempty"`

	// IndexDB is an optional SQLite database path; when set, every run
	// upserts its exposures into it.
	IndexDB string `json:"index_db,omitempty" yaml:"index_db,omitempty"`
}

// PipelineConfig groups all settings for one pipeline run.
type PipelineConfig struct {
	Input  InputConfig  `json:"input" yaml:"input"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// DefaultPipelineConfig returns the configuration used when no config
// file overrides it.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Output: OutputConfig{Dir: "."},
	}
}
