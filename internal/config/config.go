package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type RowSchema string

type CoordinateOrigin string

const (
	SchemaMOT10 RowSchema = "mot10"
	SchemaMOT9  RowSchema = "mot9"

	OriginZero CoordinateOrigin = "zero"
	OriginOne  CoordinateOrigin = "one"

	DefaultConfigPath string = "config.yml"

	EnvLabelStudioURL string = "LABEL_STUDIO_URL"
	EnvLabelStudioKey string = "LABEL_STUDIO_API_KEY"
)

var SchemasList = [...]string{
	string(SchemaMOT10),
	string(SchemaMOT9),
}

var OriginsList = [...]string{
	string(OriginZero),
	string(OriginOne),
}

// ConfigurationError reports a required setting that is absent or invalid.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

type LabelStudioConfig struct {
	ProjectID int `yaml:"project_id"`
}

type ExportsConfig struct {
	ExportDir string `yaml:"export_dir"`
}

type MOTConfig struct {
	OutputDir       string           `yaml:"output_dir"`
	Schema          RowSchema        `yaml:"schema"`
	Coordinates     CoordinateOrigin `yaml:"coordinates"`
	WriteDetections bool             `yaml:"write_detections"`
	ImageExt        string           `yaml:"image_ext"`
}

type VideosConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

type VideoProcessingConfig struct {
	FrameStride           int     `yaml:"frame_stride"`
	MOTFPS                float64 `yaml:"mot_fps"`
	UseOriginalResolution bool    `yaml:"use_original_resolution"`
	DefaultWidth          int     `yaml:"default_width"`
	DefaultHeight         int     `yaml:"default_height"`
	Workers               int     `yaml:"workers"`
	VerifyFrames          bool    `yaml:"verify_frames"`
}

type NotifyConfig struct {
	WebsocketURL string `yaml:"websocket_url"`
}

// Credentials are read from the environment, never from the config file.
type Credentials struct {
	URL    string
	APIKey string
}

type Config struct {
	mu sync.RWMutex

	LabelStudio     LabelStudioConfig     `yaml:"label_studio"`
	Exports         ExportsConfig         `yaml:"exports"`
	MOT             MOTConfig             `yaml:"mot"`
	Videos          VideosConfig          `yaml:"videos"`
	VideoProcessing VideoProcessingConfig `yaml:"video_processing"`
	Notify          NotifyConfig          `yaml:"notify"`
}

func (c *Config) GetStride() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.VideoProcessing.FrameStride
}

func (c *Config) SetStride(stride int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VideoProcessing.FrameStride = stride
}

func (c *Config) GetFPS() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.VideoProcessing.MOTFPS
}

func (c *Config) SetFPS(fps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VideoProcessing.MOTFPS = fps
}

func (c *Config) GetWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.VideoProcessing.Workers
}

func (c *Config) SetWorkers(workers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.VideoProcessing.Workers = workers
}

func (c *Config) GetSchema() RowSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MOT.Schema
}

func (c *Config) SetSchema(schema RowSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MOT.Schema = schema
}

func (c *Config) GetCoordinates() CoordinateOrigin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MOT.Coordinates
}

func (c *Config) SetCoordinates(origin CoordinateOrigin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MOT.Coordinates = origin
}

func (c *Config) GetWriteDetections() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MOT.WriteDetections
}

func (c *Config) SetWriteDetections(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MOT.WriteDetections = v
}

// Clone returns a copy that is safe to hand to a pipeline run while the
// original keeps being edited.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := &Config{
		LabelStudio:     c.LabelStudio,
		Exports:         c.Exports,
		MOT:             c.MOT,
		Videos:          c.Videos,
		VideoProcessing: c.VideoProcessing,
		Notify:          c.Notify,
	}
	out.Videos.Extensions = append([]string(nil), c.Videos.Extensions...)
	return out
}

// Validate checks the settings every run needs. Credentials are checked
// separately because a local export file makes them unnecessary.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.VideoProcessing.FrameStride < 1:
		return &ConfigurationError{Field: "video_processing.frame_stride", Reason: "must be >= 1"}
	case c.VideoProcessing.MOTFPS < 0:
		return &ConfigurationError{Field: "video_processing.mot_fps", Reason: "must not be negative"}
	case c.VideoProcessing.Workers < 1:
		return &ConfigurationError{Field: "video_processing.workers", Reason: "must be >= 1"}
	case !c.VideoProcessing.UseOriginalResolution &&
		(c.VideoProcessing.DefaultWidth < 1 || c.VideoProcessing.DefaultHeight < 1):
		return &ConfigurationError{Field: "video_processing.default_width/default_height", Reason: "must be positive when use_original_resolution is false"}
	case c.MOT.OutputDir == "":
		return &ConfigurationError{Field: "mot.output_dir", Reason: "missing"}
	case c.Videos.Directory == "":
		return &ConfigurationError{Field: "videos.directory", Reason: "missing"}
	case !strings.HasPrefix(c.MOT.ImageExt, "."):
		return &ConfigurationError{Field: "mot.image_ext", Reason: fmt.Sprintf("%q must start with a dot", c.MOT.ImageExt)}
	}

	if c.MOT.Schema != SchemaMOT10 && c.MOT.Schema != SchemaMOT9 {
		return &ConfigurationError{Field: "mot.schema", Reason: fmt.Sprintf("unknown schema %q", c.MOT.Schema)}
	}
	if c.MOT.Coordinates != OriginZero && c.MOT.Coordinates != OriginOne {
		return &ConfigurationError{Field: "mot.coordinates", Reason: fmt.Sprintf("unknown origin %q", c.MOT.Coordinates)}
	}

	return nil
}

// ValidateFetch checks the settings needed to download the export.
func (c *Config) ValidateFetch(creds Credentials) error {
	if creds.URL == "" || creds.APIKey == "" {
		return &ConfigurationError{Field: EnvLabelStudioURL + "/" + EnvLabelStudioKey, Reason: "not set"}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.LabelStudio.ProjectID < 1 {
		return &ConfigurationError{Field: "label_studio.project_id", Reason: "must be >= 1"}
	}
	if c.Exports.ExportDir == "" {
		return &ConfigurationError{Field: "exports.export_dir", Reason: "missing"}
	}
	return nil
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		URL:    strings.TrimRight(os.Getenv(EnvLabelStudioURL), "/"),
		APIKey: os.Getenv(EnvLabelStudioKey),
	}
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	data, err := yaml.Marshal(c)
	c.mu.RUnlock()

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) SaveByDefault() error {
	return c.Save(DefaultConfigPath)
}

// LoadConfigFile returns the defaults when path does not exist and a
// ConfigurationError when it exists but cannot be decoded.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, &ConfigurationError{Field: path, Reason: err.Error()}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Field: path, Reason: err.Error()}
	}

	return cfg, nil
}

func NewDefaultConfig() *Config {
	return &Config{
		LabelStudio: LabelStudioConfig{ProjectID: 1},
		Exports:     ExportsConfig{ExportDir: "exports"},
		MOT: MOTConfig{
			OutputDir:       "mot",
			Schema:          SchemaMOT10,
			Coordinates:     OriginZero,
			WriteDetections: true,
			ImageExt:        ".jpg",
		},
		Videos: VideosConfig{
			Directory:  "videos",
			Extensions: []string{".mp4"},
		},
		VideoProcessing: VideoProcessingConfig{
			FrameStride:           12,
			UseOriginalResolution: true,
			DefaultWidth:          1920,
			DefaultHeight:         1080,
			Workers:               1,
			VerifyFrames:          true,
		},
	}
}
