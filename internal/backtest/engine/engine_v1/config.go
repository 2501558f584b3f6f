package engine

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Config controls the replay engine behavior.
type Config struct {
	// WarmupCandlesCount bounds each tick's window to at most
	// WarmupCandlesCount+1 candles per timeframe.
	WarmupCandlesCount int `yaml:"warmup_candles_count" json:"warmup_candles_count" jsonschema:"title=Warmup Candles Count,description=Number of historical candles included in each tick window,minimum=0" validate:"gte=0"`
	// SortDescending orders tick windows most-recent-first.
	SortDescending bool `yaml:"sort_descending" json:"sort_descending" jsonschema:"title=Sort Descending,description=Order tick windows most-recent-first,default=true"`
	// UseFullCandleForCurrent disables current-candle masking, exposing the
	// still-forming candle's real high/low/close. Only safe for strategies
	// that deliberately accept look-ahead, e.g. when reproducing results of
	// close-based execution models.
	UseFullCandleForCurrent bool `yaml:"use_full_candle_for_current" json:"use_full_candle_for_current" jsonschema:"title=Use Full Candle For Current,description=Expose the still-forming candle without masking"`
	// Parallel fans the clone/mask/advance steps out across symbols.
	Parallel bool `yaml:"parallel" json:"parallel" jsonschema:"title=Parallel,description=Process symbols in parallel within each tick step"`
}

// DefaultConfig returns the configuration used when Initialize is given an
// empty document.
func DefaultConfig() Config {
	return Config{
		WarmupCandlesCount:      0,
		SortDescending:          true,
		UseFullCandleForCurrent: false,
		Parallel:                false,
	}
}

// ParseConfig unmarshals and validates a YAML configuration document.
// Fields absent from the document keep their defaults.
func ParseConfig(document string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(document), &config); err != nil {
		return Config{}, err
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the engine configuration.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(c)
	schema.Title = "replay-engine-v1-config"
	schema.Description = "Configuration schema for ReplayEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the engine configuration.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
