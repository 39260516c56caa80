package container

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// VariableLoader defines an interface for components that can load variables
type VariableLoader interface {
	// Load loads variables into the container
	Load(ContextBuilder) error
}

// YamlVariableLoader loads variables from a YAML document, flattening nested
// mappings into dotted keys ("server.port") and sequences into comma lists.
type YamlVariableLoader struct {
	// Fs is the filesystem holding the document (the OS filesystem if nil)
	Fs afero.Fs
	// Path of the document, "application.yml" if empty
	Path string
	// Logger (uses slog.Default if nil)
	Logger *slog.Logger
}

// Load loads variables from the YAML document. A missing document is not an error.
func (l YamlVariableLoader) Load(builder ContextBuilder) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	path := l.Path
	if path == "" {
		path = "application.yml"
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config file not found, skipping", "path", path)
			return nil
		}
		return ConfigurationError(fmt.Sprintf("cannot read %s", path), err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ConfigurationError(fmt.Sprintf("cannot parse %s", path), err)
	}

	flat := make(map[string]string)
	flatten("", doc, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		builder.RegisterVariable(k, flat[k])
	}

	logger.Debug("Loaded variables", "path", path, "count", len(keys))
	return nil
}

func flatten(prefix string, value interface{}, out map[string]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			flatten(joinKey(prefix, key), child, out)
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprintf("%v", v)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// EnvVariableLoader loads variables from environment
type EnvVariableLoader struct {
	// Prefix filters environment variables to only those with this prefix
	Prefix string
}

// Load loads variables from environment. GOBOOT_SERVER_PORT with prefix
// "GOBOOT_" becomes server.port.
func (l EnvVariableLoader) Load(builder ContextBuilder) error {
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		if l.Prefix != "" {
			if !strings.HasPrefix(key, l.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, l.Prefix)
		}

		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "_", ".")

		builder.RegisterVariable(key, value)
	}

	return nil
}
