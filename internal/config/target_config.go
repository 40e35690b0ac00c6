package config

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/evdal/switchback/internal/constants"
	"github.com/evdal/switchback/internal/orchestrator"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// TargetSpec describes how a deploy target runs: which image backs it, how the
// container is wired up and how its health is probed. The client sends it with
// every deploy request and the server persists the latest copy per target so
// rollbacks can recreate containers without the original config file.
type TargetSpec struct {
	Name            string               `json:"name" yaml:"name" toml:"name"`
	Server          string               `json:"server,omitempty" yaml:"server,omitempty" toml:"server,omitempty"`
	APITokenEnv     string               `json:"apiTokenEnv,omitempty" yaml:"api_token_env,omitempty" toml:"api_token_env,omitempty"`
	Image           string               `json:"image" yaml:"image" toml:"image"`
	Port            Port                 `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	HealthCheckPath string               `json:"healthCheckPath,omitempty" yaml:"health_check_path,omitempty" toml:"health_check_path,omitempty"`
	Env             []EnvVar             `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	Volumes         []string             `json:"volumes,omitempty" yaml:"volumes,omitempty" toml:"volumes,omitempty"`
	NetworkMode     string               `json:"networkMode,omitempty" yaml:"network_mode,omitempty" toml:"network_mode,omitempty"`
	Policy          *orchestrator.Policy `json:"policy,omitempty" yaml:"policy,omitempty" toml:"policy,omitempty"`
}

// Normalize will set default values.
func (ts *TargetSpec) Normalize() {
	if ts.Port == "" {
		ts.Port = Port(constants.DefaultContainerPort)
	}
	if ts.HealthCheckPath == "" {
		ts.HealthCheckPath = constants.DefaultHealthCheckPath
	}
	if ts.Server == "" {
		ts.Server = constants.DefaultAPIServerURL
	}
}

func (ts *TargetSpec) Validate() error {
	if ts.Name == "" {
		return fmt.Errorf("target name is required")
	}
	if ts.Image == "" {
		return fmt.Errorf("target '%s': image is required", ts.Name)
	}
	if _, err := strconv.Atoi(ts.Port.String()); err != nil {
		return fmt.Errorf("target '%s': port '%s' is not a valid number", ts.Name, ts.Port)
	}
	for i := range ts.Env {
		if err := ts.Env[i].Validate(); err != nil {
			return fmt.Errorf("target '%s': %w", ts.Name, err)
		}
	}
	return nil
}

// ProbePolicy returns the probe policy to use for this target with defaults applied.
func (ts *TargetSpec) ProbePolicy() orchestrator.Policy {
	var p orchestrator.Policy
	if ts.Policy != nil {
		p = *ts.Policy
	}
	return p.Normalize()
}

// LoadTargetSpec loads and validates a target spec from a config file.
// Returns:
//   - spec: Parsed and validated target spec
//   - format: Detected format ("json", "yaml", "yml", or "toml"), useful for error messages
//   - err: Any error encountered during loading, parsing, or validation
func LoadTargetSpec(path string) (TargetSpec, string, error) {
	configFile, err := FindConfigFile(path)
	if err != nil {
		return TargetSpec{}, "", err
	}

	format, err := getConfigFormat(configFile)
	if err != nil {
		return TargetSpec{}, "", err
	}

	parser, err := getConfigParser(format)
	if err != nil {
		return TargetSpec{}, "", err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configFile), parser); err != nil {
		return TargetSpec{}, "", fmt.Errorf("failed to load config file: %w", err)
	}

	var spec TargetSpec
	decoderConfig := &mapstructure.DecoderConfig{
		TagName: format,
		Result:  &spec,
		Squash:  true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			portDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	}

	unmarshalConf := koanf.UnmarshalConf{
		Tag:           format,
		DecoderConfig: decoderConfig,
	}

	if err := k.UnmarshalWithConf("", &spec, unmarshalConf); err != nil {
		return TargetSpec{}, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}

	spec.Normalize()

	if err := spec.Validate(); err != nil {
		return TargetSpec{}, format, err
	}

	return spec, format, nil
}

// Using custom Port type so we can use both string and int for port in the config.
type Port string

func (p Port) String() string {
	return string(p)
}

func portDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if t != reflect.TypeOf(Port("")) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return Port(v), nil
		case int:
			return Port(strconv.Itoa(v)), nil
		case int64:
			return Port(strconv.FormatInt(v, 10)), nil
		case float64:
			// Handle case where YAML/JSON might parse integers as floats
			if v == float64(int(v)) {
				return Port(strconv.Itoa(int(v))), nil
			}
			return nil, fmt.Errorf("port must be an integer, got float: %v", v)
		default:
			return nil, fmt.Errorf("port must be a string or integer, got %T: %v", data, data)
		}
	}
}
