// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package obsfile reads the observation-list YAML file that supplies
// per-observation metadata the XML export does not carry: start dates,
// telescope roll, source catalogs, and optional filter overrides. The
// file is a map of Observation<N> entries matched to exposures by
// observation label.
package obsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ChannelParams holds the simulator inputs for one wavelength channel
// (NIRCam SW/LW) or, for single-channel instruments, the whole entry.
type ChannelParams struct {
	Filter                       string `yaml:"Filter"`
	PointSourceCatalog           string `yaml:"PointSourceCatalog"`
	GalaxyCatalog                string `yaml:"GalaxyCatalog"`
	ExtendedCatalog              string `yaml:"ExtendedCatalog"`
	ExtendedScale                string `yaml:"ExtendedScale"`
	ExtendedCenter               string `yaml:"ExtendedCenter"`
	MovingTargetList             string `yaml:"MovingTargetList"`
	MovingTargetSersic           string `yaml:"MovingTargetSersic"`
	MovingTargetExtended         string `yaml:"MovingTargetExtended"`
	MovingTargetConvolveExtended string `yaml:"MovingTargetConvolveExtended"`
	MovingTargetToTrack          string `yaml:"MovingTargetToTrack"`
	BackgroundRate               string `yaml:"BackgroundRate"`
}

// FilterConfig is a per-exposure SW/LW parameter block. WFSS programs
// list one per direct-image filter so the disperser software can build
// broadband colors.
type FilterConfig struct {
	SW ChannelParams `yaml:"SW"`
	LW ChannelParams `yaml:"LW"`
}

// Entry is one observation's metadata. NIRCam-style entries carry SW/LW
// blocks (optionally per-exposure FilterConfig<N> blocks); entries for
// single-channel instruments carry the catalog fields flat.
type Entry struct {
	Name          string         `yaml:"Name"`
	Date          string         `yaml:"Date"`
	PAV3          string         `yaml:"PAV3"`
	ChannelParams `yaml:",inline"`
	SW            *ChannelParams          `yaml:"SW"`
	LW            *ChannelParams          `yaml:"LW"`
	FilterConfigs map[string]FilterConfig `yaml:",inline"`
}

// FilterConfigFor returns the per-exposure block for the given exposure
// ordinal, if the entry defines FilterConfig blocks.
func (e Entry) FilterConfigFor(ordinal int) (FilterConfig, bool) {
	if len(e.FilterConfigs) == 0 {
		return FilterConfig{}, false
	}
	fc, ok := e.FilterConfigs[fmt.Sprintf("FilterConfig%d", ordinal)]
	return fc, ok
}

// Lookup resolves observation labels to their metadata entries.
type Lookup struct {
	entries map[string]Entry // keyed by Observation<N>
	byName  map[string]string
}

// Load reads an observation-list YAML file.
func Load(path string) (*Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading observation list: %w", err)
	}
	var entries map[string]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing observation list %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("observation list %s has no entries", path)
	}

	lk := &Lookup{entries: entries, byName: make(map[string]string, len(entries))}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	// First entry in key order wins when two observations share a name.
	sort.Strings(keys)
	for _, key := range keys {
		name := entries[key].Name
		if _, ok := lk.byName[name]; !ok {
			lk.byName[name] = key
		}
	}
	return lk, nil
}

// ByLabel returns the entry whose Name matches the observation label.
func (l *Lookup) ByLabel(label string) (Entry, bool) {
	key, ok := l.byName[label]
	if !ok {
		return Entry{}, false
	}
	return l.entries[key], true
}

// Names returns the known observation names, sorted. Used in error
// messages when a label has no match.
func (l *Lookup) Names() []string {
	names := make([]string, 0, len(l.byName))
	for name := range l.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FullPath expands environment variables in a catalog path and makes it
// absolute. The "None" sentinel passes through untouched.
func FullPath(in string) string {
	if strings.EqualFold(in, "none") || in == "" {
		return in
	}
	expanded := os.ExpandEnv(in)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return expanded
	}
	return abs
}
