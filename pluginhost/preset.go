package pluginhost

import (
	"encoding/base64"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PresetMetadata is optional descriptive information carried alongside a
// preset's parameter values.
type PresetMetadata struct {
	Author      string   `yaml:"author,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Preset is phonon's human-readable, version-controllable plugin preset
// format, ported from original_source/src/plugin_host/preset.rs's
// PhononPreset (there a TOML/JSON hybrid; here YAML, since the rest of
// the pack's config persistence uses gopkg.in/yaml.v3 rather than TOML).
type Preset struct {
	PluginName    string            `yaml:"plugin_name"`
	PluginVersion string            `yaml:"plugin_version,omitempty"`
	Parameters    map[string]float64 `yaml:"parameters"`
	BinaryState   string            `yaml:"binary_state,omitempty"`
	Metadata      *PresetMetadata   `yaml:"metadata,omitempty"`
}

// NewPreset creates an empty preset for the named plugin.
func NewPreset(pluginName string) *Preset {
	return &Preset{PluginName: pluginName, Parameters: make(map[string]float64)}
}

// PresetFromInstance snapshots a live plugin instance's parameters (looked
// up by name against info.Parameters) plus its opaque binary state.
func PresetFromInstance(info PluginInfo, paramValues []float64, binaryState []byte) *Preset {
	p := &Preset{
		PluginName:    info.ID.Name,
		PluginVersion: info.Version,
		Parameters:    make(map[string]float64, len(info.Parameters)),
	}
	for i, param := range info.Parameters {
		if i < len(paramValues) {
			p.Parameters[param.Name] = paramValues[i]
		}
	}
	if binaryState != nil {
		p.BinaryState = base64.StdEncoding.EncodeToString(binaryState)
	}
	return p
}

// SetParameter records a named parameter value.
func (p *Preset) SetParameter(name string, value float64) {
	if p.Parameters == nil {
		p.Parameters = make(map[string]float64)
	}
	p.Parameters[name] = value
}

// GetParameter looks up a named parameter value.
func (p *Preset) GetParameter(name string) (float64, bool) {
	v, ok := p.Parameters[name]
	return v, ok
}

// GetBinaryState decodes the preset's opaque binary state, if present.
func (p *Preset) GetBinaryState() ([]byte, error) {
	if p.BinaryState == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(p.BinaryState)
}

// SetBinaryState encodes and stores opaque binary state.
func (p *Preset) SetBinaryState(data []byte) {
	p.BinaryState = base64.StdEncoding.EncodeToString(data)
}

// Save writes the preset as YAML to path.
func (p *Preset) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return newPluginError("Save", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newPluginError("Save", path, err)
	}
	return nil
}

// LoadPreset reads a preset from a .ph file on disk.
func LoadPreset(path string) (*Preset, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newPluginError("LoadPreset", path, err)
	}
	return ParsePreset(string(content))
}

// ParsePreset parses preset content, trying YAML first and falling back to
// the simple `key = value` block format original_source also accepted.
func ParsePreset(content string) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal([]byte(content), &p); err == nil && p.PluginName != "" {
		return &p, nil
	}
	return parseSimplePreset(content)
}

// parseSimplePreset parses a minimal `plugin "Name" { key = value }` block
// format, ported from preset.rs's parse_simple for presets hand-written or
// exported by other tools.
func parseSimplePreset(content string) (*Preset, error) {
	p := NewPreset("")
	inBlock := false
	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "--") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "plugin") {
			if start := strings.Index(line, "\""); start >= 0 {
				if end := strings.Index(line[start+1:], "\""); end >= 0 {
					p.PluginName = line[start+1 : start+1+end]
				}
			}
			inBlock = strings.HasSuffix(line, "{")
			continue
		}
		if line == "}" {
			inBlock = false
			continue
		}
		if !inBlock {
			continue
		}
		if eq := strings.Index(line, "="); eq >= 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				p.SetParameter(key, f)
			}
		}
	}
	return p, nil
}
