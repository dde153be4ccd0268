package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full server configuration.  Matching thresholds and shift
// policy are deliberately configuration, not constants: deployments tune
// them per site.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`
	Env      string `mapstructure:"env"` // "dev" | "prod"
	DBPath   string `mapstructure:"db_path"`
	Debug    bool   `mapstructure:"debug"`

	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Sweep      SweepConfig      `mapstructure:"sweep"`
}

// MatcherConfig controls match acceptance.
type MatcherConfig struct {
	// AcceptThreshold is the minimum cosine score for a match.
	AcceptThreshold float64 `mapstructure:"accept_threshold"`
	// AmbiguityMargin is the minimum gap required between the top two
	// candidate users before the top one is accepted.
	AmbiguityMargin float64 `mapstructure:"ambiguity_margin"`
	// RefreshInterval is how often the embedding snapshot is reloaded.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// AttendanceConfig holds the shift-time policy.
type AttendanceConfig struct {
	ShiftStart    string        `mapstructure:"shift_start"`     // "09:00"
	GracePeriod   time.Duration `mapstructure:"grace_period"`    // lateness still counted present
	HalfDayCutoff string        `mapstructure:"half_day_cutoff"` // "12:00"
	MinSeparation time.Duration `mapstructure:"min_separation"`  // check-in to check-out
	MinFullDay    time.Duration `mapstructure:"min_full_day"`    // worked time below this is half-day
	Timezone      string        `mapstructure:"timezone"`        // IANA name; days are cut here
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`    // bounded wait for the per-user day lock
}

// SweepConfig controls the end-of-day absence sweep.
type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func defaults() map[string]any {
	return map[string]any{
		"http_addr": ":8080",
		"env":       "dev",
		"db_path":   "./data/attendrix.db",
		"debug":     false,

		"matcher.accept_threshold": 0.60,
		"matcher.ambiguity_margin": 0.05,
		"matcher.refresh_interval": "1m",

		"attendance.shift_start":     "09:00",
		"attendance.grace_period":    "10m",
		"attendance.half_day_cutoff": "12:00",
		"attendance.min_separation":  "1h",
		"attendance.min_full_day":    "8h",
		"attendance.timezone":        "UTC",
		"attendance.lock_timeout":    "3s",

		"sweep.enabled":  true,
		"sweep.interval": "1h",
	}
}

// Load builds the configuration from defaults, an optional config file,
// ATTENDRIX_* environment variables and the command's flags, in increasing
// order of precedence.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("attendrix")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/attendrix")
	v.AddConfigPath(".")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("attendrix")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, err
	}

	return c, nil
}

// Validate checks value ranges and the ordering relationships the policy
// parameters must satisfy.
func (c Config) Validate() error {
	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("env must be dev or prod, got %q", c.Env)
	}
	if c.Matcher.AcceptThreshold < 0 || c.Matcher.AcceptThreshold > 1 {
		return fmt.Errorf("matcher.accept_threshold must be in [0,1], got %v", c.Matcher.AcceptThreshold)
	}
	if c.Matcher.AmbiguityMargin < 0 {
		return fmt.Errorf("matcher.ambiguity_margin must be >= 0, got %v", c.Matcher.AmbiguityMargin)
	}

	shift, err := ParseTimeOfDay(c.Attendance.ShiftStart)
	if err != nil {
		return fmt.Errorf("attendance.shift_start: %w", err)
	}
	cutoff, err := ParseTimeOfDay(c.Attendance.HalfDayCutoff)
	if err != nil {
		return fmt.Errorf("attendance.half_day_cutoff: %w", err)
	}
	if grace := shift + TimeOfDay(c.Attendance.GracePeriod/time.Minute); grace > cutoff {
		return fmt.Errorf("shift_start+grace_period (%s) must not pass half_day_cutoff (%s)",
			grace, cutoff)
	}
	if _, err := time.LoadLocation(c.Attendance.Timezone); err != nil {
		return fmt.Errorf("attendance.timezone: %w", err)
	}
	if c.Attendance.LockTimeout <= 0 {
		return fmt.Errorf("attendance.lock_timeout must be positive, got %v", c.Attendance.LockTimeout)
	}
	return nil
}

// Location resolves the configured attendance timezone.  Call Validate
// first; an invalid name falls back to UTC here.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimeOfDay is minutes since local midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// At anchors the time-of-day onto day's calendar date in day's location.
func (d TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), int(d)/60, int(d)%60, 0, 0, day.Location())
}

func (d TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(d)/60, int(d)%60)
}
