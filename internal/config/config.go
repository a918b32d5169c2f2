// Package config loads the pipeline configuration: a YAML file for the
// tunable parameters and file locations, environment variables (optionally
// from a .env file) for API credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	// Paths to the persisted pipeline state and inputs.
	Paths Paths `yaml:"paths"`

	// Pipeline tunables.
	Pipeline Pipeline `yaml:"pipeline"`

	// Labelling tunables for the offline aggregation passes.
	Labelling Labelling `yaml:"labelling"`

	// Geocoding service settings (credentials come from the environment).
	Geocoding Geocoding `yaml:"geocoding"`

	// LangID is the language-identification model endpoint.
	LangID LangID `yaml:"langid"`
}

type Paths struct {
	BatchDir      string `yaml:"batch_dir"`
	OutDir        string `yaml:"out_dir"`
	LocationCache string `yaml:"location_cache"`
	Ledger        string `yaml:"ledger"`
	UserCounts    string `yaml:"user_counts"`
	CHWords       string `yaml:"ch_words"`
	SentenceRules string `yaml:"sentence_rules,omitempty"`
}

type Pipeline struct {
	// AdmissionThreshold is the minimum language-id score for a sentence
	// to enter the corpus.
	AdmissionThreshold float64 `yaml:"admission_threshold"`
	// NewUserThreshold is the stricter score for counting a sentence
	// towards a user's high-confidence total.
	NewUserThreshold float64 `yaml:"new_user_threshold"`
	// MinLocationLen is the minimum free-text location field length worth
	// a geocoding attempt.
	MinLocationLen int `yaml:"min_location_len"`
	// KeepForeign keeps sentences located outside the country boundary.
	KeepForeign bool `yaml:"keep_foreign"`
	// ClassifyBatchSize bounds how many sentences go to the language-id
	// model per call.
	ClassifyBatchSize int `yaml:"classify_batch_size"`
	// Preprocessing is the ordered substitution list applied to raw tweet
	// text before any other cleaning.
	Preprocessing []Substitution `yaml:"preprocessing,omitempty"`
}

type Substitution struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

type Labelling struct {
	// OverallThreshold is the minimum share of all labels (Unknown
	// included) the top dialect needs before labelling is considered.
	OverallThreshold float64 `yaml:"overall_threshold"`
	// DominantThreshold is the minimum share excluding Unknown.
	DominantThreshold float64 `yaml:"dominant_threshold"`
	// CheckpointInterval is how many reverse-geocode resolutions pass
	// between checkpoint saves of the coords-to-state table.
	CheckpointInterval int `yaml:"checkpoint_interval"`
	UsefulLocations    string `yaml:"useful_locations,omitempty"`
	UselessLocations   string `yaml:"useless_locations,omitempty"`
	Corrections        string `yaml:"corrections,omitempty"`
}

type Geocoding struct {
	Region string `yaml:"region"`
	// MinDelay is the minimum spacing between geocoding calls.
	MinDelay Duration `yaml:"min_delay"`
	// Boundary is the closed country polygon as [lon, lat] vertices.
	// A simplified Switzerland outline ships as the default.
	Boundary [][2]float64 `yaml:"boundary,omitempty"`
}

type LangID struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "1.1s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration with every tunable at the value the
// corpus was built with. Paths stay empty: they are deployment-specific and
// required.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			AdmissionThreshold: 0.90,
			NewUserThreshold:   0.95,
			MinLocationLen:     4,
			KeepForeign:        false,
			ClassifyBatchSize:  100,
		},
		Labelling: Labelling{
			OverallThreshold:   0.20,
			DominantThreshold:  0.67,
			CheckpointInterval: 10,
		},
		Geocoding: Geocoding{
			Region:   "ch",
			MinDelay: Duration(1100 * time.Millisecond),
			Boundary: swissOutline,
		},
		LangID: LangID{
			Timeout: Duration(2 * time.Minute),
		},
	}
}

// Load reads the YAML file at path over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the required keys and value ranges. A missing required key
// is a configuration error, never silently defaulted.
func (c Config) Validate() error {
	required := []struct{ name, value string }{
		{"paths.batch_dir", c.Paths.BatchDir},
		{"paths.out_dir", c.Paths.OutDir},
		{"paths.location_cache", c.Paths.LocationCache},
		{"paths.ledger", c.Paths.Ledger},
		{"paths.user_counts", c.Paths.UserCounts},
		{"langid.url", c.LangID.URL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("config: required key %s is missing", r.name)
		}
	}
	if c.Pipeline.AdmissionThreshold <= 0 || c.Pipeline.AdmissionThreshold > 1 {
		return fmt.Errorf("config: pipeline.admission_threshold %v out of (0, 1]", c.Pipeline.AdmissionThreshold)
	}
	if c.Pipeline.NewUserThreshold < c.Pipeline.AdmissionThreshold {
		return fmt.Errorf("config: pipeline.new_user_threshold %v below admission threshold %v",
			c.Pipeline.NewUserThreshold, c.Pipeline.AdmissionThreshold)
	}
	if c.Pipeline.ClassifyBatchSize <= 0 {
		return fmt.Errorf("config: pipeline.classify_batch_size must be positive")
	}
	if c.Labelling.OverallThreshold <= 0 || c.Labelling.DominantThreshold <= 0 {
		return fmt.Errorf("config: labelling thresholds must be positive")
	}
	return nil
}

// swissOutline is a coarse Switzerland border ring. Precise enough for the
// foreign-coordinate drop; deployments wanting a tighter border override it.
var swissOutline = [][2]float64{
	{6.02, 46.27}, {6.12, 46.14}, {6.79, 46.43}, {6.80, 46.16},
	{7.04, 45.92}, {7.85, 45.92}, {8.13, 46.16}, {8.46, 46.45},
	{8.44, 46.25}, {9.02, 45.82}, {9.30, 46.32}, {10.11, 46.21},
	{10.17, 46.62}, {10.47, 46.55}, {10.49, 46.86}, {9.87, 47.02},
	{9.60, 47.06}, {9.53, 47.27}, {9.67, 47.37}, {9.57, 47.54},
	{8.88, 47.65}, {8.57, 47.81}, {8.41, 47.67}, {7.70, 47.62},
	{7.51, 47.51}, {7.38, 47.43}, {6.84, 47.17}, {6.43, 46.93},
	{6.14, 46.60}, {6.02, 46.27},
}

// Credentials are the secrets read from the environment.
type Credentials struct {
	GeocodingAPIKey string
}

// LoadCredentials reads credentials from the environment, first loading a
// .env file when present. A missing .env file is fine; a missing key is not.
func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()
	key := os.Getenv("GEOCODING_API_KEY")
	if key == "" {
		return Credentials{}, fmt.Errorf("config: GEOCODING_API_KEY is not set")
	}
	return Credentials{GeocodingAPIKey: key}, nil
}
