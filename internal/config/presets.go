package config

import "sort"

var Presets = map[string]func(*Config){
	// two targets either side of the base, kp=600
	"default": func(c *Config) {},
	"strict": func(c *Config) {
		c.Reach.StrictDwell = true
	},
	"sweep": func(c *Config) {
		c.Targets = [][3]float64{
			{0.3, 0, 0.375},
			{0.35, 0, 0},
			{-0.35, 0, 0},
			{-0.3, 0, 0.375},
			{0, 0, 0.5},
		}
		c.Reach.MaxSteps = 60000
	},
	"soft": func(c *Config) {
		c.Gains.Kp = 100
		c.Reach.MaxSteps = 40000
	},
	"joint": func(c *Config) {
		c.Controller = "joint"
		c.Gains.Kp = 400
		c.Gains.Ki = 5
	},
	"coarse": func(c *Config) {
		c.Integrator = "euler"
		c.Dt = 0.005
		c.Reach.Dwell = 40
	},
	"heavy": func(c *Config) {
		c.Arm.Mass = 3
		c.MaxForce = 25
		c.Reach.MaxSteps = 40000
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
