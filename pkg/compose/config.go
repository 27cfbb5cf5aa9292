package compose

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/easylens/easylens/pkg/lut"
)

/* Example options file ...

indexes: [0, 2]
channels: [0, 1]
zindex: 3
lut: [dapi, green]
lowthreshold: 120
highthreshold: 3000
output: out/
scale: 1
*/

// Options is the full configuration for one run. It is resolved once,
// before iteration starts, and never mutated inside the image loop -
// per-image defaults (channel range, LUT pairing) are derived from it
// fresh for every image.
type Options struct {
	Indexes       []int    `yaml:"indexes,omitempty"`
	Channels      []int    `yaml:"channels,omitempty"`
	ZIndex        int      `yaml:"zindex"`
	LUTs          []string `yaml:"lut,omitempty"`
	LowThreshold  float64  `yaml:"lowthreshold"`
	HighThreshold float64  `yaml:"highthreshold"`
	Output        string   `yaml:"output,omitempty"`
	Scale         float64  `yaml:"scale"`
	Verbosity     int      `yaml:"verbosity"`
}

func NewOptions() Options {
	return Options{
		HighThreshold: 4095, // 12-bit sensor range
		Scale:         1,
	}
}

func LoadOptions(filename string) (Options, error) {
	o := NewOptions()

	contents, err := os.ReadFile(filename)
	if err != nil {
		return o, fmt.Errorf("options read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &o); err != nil {
		return o, fmt.Errorf("options parse '%s': %v", filename, err)
	}
	return o, nil
}

func (o Options) AsYaml() string {
	b, err := yaml.Marshal(o)
	if err != nil {
		log.Fatalf("can't marshal options yaml: %v", err)
	}
	return string(b)
}

// Resolve validates the options and fills in the LUT default (the full
// canonical palette), normalizing aliases like "blue" to their canonical
// name. After Resolve the Options are final.
func (o *Options) Resolve() error {
	if o.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %g", o.Scale)
	}
	if o.LowThreshold >= o.HighThreshold {
		return fmt.Errorf("low threshold %g must be below high threshold %g",
			o.LowThreshold, o.HighThreshold)
	}
	if o.ZIndex < 0 {
		return fmt.Errorf("z index must not be negative, got %d", o.ZIndex)
	}
	for _, i := range o.Indexes {
		if i < 0 {
			return fmt.Errorf("image index must not be negative, got %d", i)
		}
	}
	for _, c := range o.Channels {
		if c < 0 {
			return fmt.Errorf("channel must not be negative, got %d", c)
		}
	}

	if len(o.LUTs) == 0 {
		o.LUTs = append([]string{}, lut.Canonical...)
		return nil
	}
	for i, name := range o.LUTs {
		m, err := lut.Get(name)
		if err != nil {
			return err
		}
		o.LUTs[i] = m.Name
	}
	return nil
}
