package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "FSCK"
	appName      = "fsck"
)

const (
	ReportStoreNone     = "none"
	ReportStoreS3       = "s3"
	ReportStorePostgres = "postgres"
)

type Config struct {
	LogLevel      string `envconfig:"FSCK_LOG_LEVEL"       default:"error"        yaml:"logLevel"`
	LogFormat     string `envconfig:"FSCK_LOG_FORMAT"      default:"text"         yaml:"logFormat"`
	LostFoundName string `envconfig:"FSCK_LOST_FOUND_NAME" default:"lost+found"   yaml:"lostFoundName"`
	ReportStore   string `envconfig:"FSCK_REPORT_STORE"    default:"none"         yaml:"reportStore"`
	ReportBucket  string `envconfig:"FSCK_REPORT_BUCKET"                          yaml:"reportBucket"`
	ReportPrefix  string `envconfig:"FSCK_REPORT_PREFIX"   default:"fsck-reports" yaml:"reportPrefix"`
	GzipImages    bool   `envconfig:"FSCK_GZIP_IMAGES"                            yaml:"gzipImages"`
	AWSRegion     string `envconfig:"FSCK_AWS_REGION"                             yaml:"awsRegion"`
}

// LoadConfig resolves each field from its `FSCK_*` environment variable,
// then the YAML config file, then its `default` tag.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating config file: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}

	var c Config
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return &c, nil
	}
	var file Config
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}
	c.overlay(&file)
	return &c, nil
}

// overlay copies the non-zero fields of `file` whose environment variable
// is unset.
func (c *Config) overlay(file *Config) {
	dst, src := reflect.ValueOf(c).Elem(), reflect.ValueOf(file).Elem()
	for i := 0; i < dst.NumField(); i++ {
		env := dst.Type().Field(i).Tag.Get("envconfig")
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if field := src.Field(i); !field.IsZero() {
			dst.Field(i).Set(field)
		}
	}
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.LostFoundName == "" {
			return "lostFoundName", "LOST_FOUND_NAME"
		}
		if c.ReportStore == ReportStoreS3 && c.ReportBucket == "" {
			return "reportBucket", "REPORT_BUCKET"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}

	switch c.ReportStore {
	case ReportStoreNone, ReportStoreS3, ReportStorePostgres:
	default:
		return fmt.Errorf(
			"invalid configuration: reportStore / %s_REPORT_STORE: `%s` "+
				"is not one of `%s`, `%s` or `%s`",
			envVarPrefix,
			c.ReportStore,
			ReportStoreNone,
			ReportStoreS3,
			ReportStorePostgres,
		)
	}
	return nil
}
