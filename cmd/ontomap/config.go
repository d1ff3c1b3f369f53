// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/ontomap/internal/secrets"
	"github.com/pdiddy/ontomap/pkg/types"
)

const (
	defaultUserAgent   = "ontomap/0.1"
	defaultTimeout     = 30 * time.Second
	defaultLoadTimeout = 10 * time.Minute
)

var validate = validator.New()

func init() {
	// Report config keys rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ontology.secondary", "MEDIC")
	v.SetDefault("ontology.load_timeout", defaultLoadTimeout)
	v.SetDefault("annotator.base_url", "https://data.bioontology.org")
	v.SetDefault("annotator.timeout", defaultTimeout)
	v.SetDefault("annotator.user_agent", defaultUserAgent)
	v.SetDefault("annotator.ontologies", []string{"DOID", "HP", "MP"})
	v.SetDefault("annotator.requests_per_second", 5.0)
	v.SetDefault("annotator.max_attempts", 3)
	v.SetDefault("annotator.retry_delay", 10*time.Second)
	v.SetDefault("annotator.accepted_match_types", []string{"PREF", "SYN"})
	v.SetDefault("annotator.stop_words", []string{"type"})
	v.SetDefault("output.dir", "output")
	v.SetDefault("resolve.workers", 1)
}

// loadConfig unmarshals viper settings into a Config and fills credentials
// from .secrets/.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

// checkConfig validates the given config sections.
func checkConfig(sections ...any) error {
	var errs []error
	for _, section := range sections {
		err := validate.Struct(section)
		var verrs validator.ValidationErrors
		switch {
		case err == nil:
		case errors.As(err, &verrs):
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("config %s: failed %q", configKey(fe.Namespace()), fe.Tag()))
			}
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// configKey turns "OntologyConfig.files[0].path" into "ontology.files[0].path".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts[0] = strings.TrimSuffix(parts[0], "Config")
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// checkOntology verifies that at least one vocabulary source is configured.
func checkOntology(cfg types.OntologyConfig) error {
	if err := checkConfig(cfg); err != nil {
		return err
	}
	if len(cfg.Files) == 0 && !cfg.Neo4j.Enabled() {
		return errors.New("config ontology: no vocabularies configured (set ontology.files or ontology.neo4j)")
	}
	return nil
}
