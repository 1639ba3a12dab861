package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/service"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// CommandLine is an argv. A plain string value, as environment variables
// provide, is split on whitespace.
type CommandLine []string

var commandLineType = reflect.TypeOf(CommandLine(nil))

func stringToCommandLineHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != commandLineType {
		return data, nil
	}
	return CommandLine(strings.Fields(reflect.ValueOf(data).String())), nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToCommandLineHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

type Config struct {
	RepoPath         string        `mapstructure:"repo_path"`
	RepoURL          string        `mapstructure:"repo_url"`
	Branch           string        `mapstructure:"branch"`
	GithubToken      string        `mapstructure:"github_token"`
	PreviewPort      int           `mapstructure:"preview_port"`
	PreviewURL       string        `mapstructure:"preview_url"`
	CommitterName    string        `mapstructure:"committer_name"`
	CommitterEmail   string        `mapstructure:"committer_email"`
	PublishBranch    string        `mapstructure:"publish_branch"`
	PublishRemoteURL string        `mapstructure:"publish_remote_url"`
	SiteDir          string        `mapstructure:"site_dir"`
	BuildCommand     CommandLine   `mapstructure:"build_command"`
	BuildOutputDir   string        `mapstructure:"build_output_dir"`
	BuildCacheDirs   []string      `mapstructure:"build_cache_dirs"`
	PreviewCommand   CommandLine   `mapstructure:"preview_command"`
	ContentCommand   CommandLine   `mapstructure:"content_command"`
	ContentDir       string        `mapstructure:"content_dir"`
	StateDir         string        `mapstructure:"state_dir"`
	CommandTimeout   time.Duration `mapstructure:"command_timeout"`
	NetworkTimeout   time.Duration `mapstructure:"network_timeout"`
	LockWait         time.Duration `mapstructure:"lock_wait"`
	RetryCount       uint64        `mapstructure:"retry_count"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	HTTPAddr         string        `mapstructure:"http_addr"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	GithubRelease    bool          `mapstructure:"github_release"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		CommitterName:  "Deploy Bot",
		CommitterEmail: "bot@example.com",
		PublishBranch:  "gh-pages",
		SiteDir:        "../site",
		BuildCommand:   CommandLine{"npm", "run", "build"},
		BuildOutputDir: "out",
		BuildCacheDirs: []string{".next"},
		PreviewCommand: CommandLine{"npm", "run", "dev", "--", "-p", "{port}"},
		ContentDir:     ".",
		StateDir:       ".sitepublish",
		CommandTimeout: 15 * time.Minute,
		NetworkTimeout: 2 * time.Minute,
		LockWait:       2 * time.Second,
		RetryCount:     2,
		RetryDelay:     time.Second,
		HTTPAddr:       ":8080",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

var branchNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

// Validate validates the configuration. Every failure wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.RepoPath) == "" {
		missing = append(missing, "repo_path")
	}
	if strings.TrimSpace(c.RepoURL) == "" {
		missing = append(missing, "repo_url")
	}
	if strings.TrimSpace(c.Branch) == "" {
		missing = append(missing, "branch")
	}
	if strings.TrimSpace(c.GithubToken) == "" {
		missing = append(missing, "github_token")
	}
	if c.PreviewPort == 0 {
		missing = append(missing, "preview_port")
	}
	if strings.TrimSpace(c.PreviewURL) == "" {
		missing = append(missing, "preview_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	if c.PreviewPort < 1 || c.PreviewPort > 65535 {
		return fmt.Errorf("%w: preview_port out of range: %d", domain.ErrConfiguration, c.PreviewPort)
	}
	if _, err := url.Parse(c.PreviewURL); err != nil {
		return fmt.Errorf("%w: invalid preview_url: %v", domain.ErrConfiguration, err)
	}
	if err := ValidateBranchName(c.Branch); err != nil {
		return fmt.Errorf("%w: invalid branch: %v", domain.ErrConfiguration, err)
	}
	if err := ValidateBranchName(c.PublishBranch); err != nil {
		return fmt.Errorf("%w: invalid publish_branch: %v", domain.ErrConfiguration, err)
	}
	if c.PublishBranch == c.Branch {
		return fmt.Errorf("%w: publish_branch must differ from branch %q", domain.ErrConfiguration, c.Branch)
	}
	if len(c.BuildCommand) == 0 {
		return fmt.Errorf("%w: build_command cannot be empty", domain.ErrConfiguration)
	}
	if len(c.PreviewCommand) == 0 {
		return fmt.Errorf("%w: preview_command cannot be empty", domain.ErrConfiguration)
	}
	if err := service.ValidateSiteSubdir(c.BuildOutputDir); err != nil {
		return fmt.Errorf("%w: invalid build_output_dir: %v", domain.ErrConfiguration, err)
	}
	for _, dir := range c.BuildCacheDirs {
		if err := service.ValidateSiteSubdir(dir); err != nil {
			return fmt.Errorf("%w: invalid build_cache_dirs: %v", domain.ErrConfiguration, err)
		}
	}
	if c.StateDir == "" {
		return fmt.Errorf("%w: state_dir cannot be empty", domain.ErrConfiguration)
	}
	return nil
}

// ValidateBranchName validates a git branch name.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return errors.New("branch name cannot be empty")
	}
	if len(branch) > 255 {
		return fmt.Errorf("branch name too long: %d characters (max: 255)", len(branch))
	}
	if strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return fmt.Errorf("branch name cannot start or end with slash: %s", branch)
	}
	if strings.Contains(branch, "..") {
		return fmt.Errorf("branch name cannot contain consecutive dots: %s", branch)
	}
	if strings.HasSuffix(branch, ".lock") {
		return fmt.Errorf("branch name cannot end with .lock: %s", branch)
	}
	if !branchNameRegex.MatchString(branch) {
		return fmt.Errorf("invalid branch name format: %s", branch)
	}
	return nil
}

// DeployRemoteURL returns the remote that receives the publish branch.
func (c *Config) DeployRemoteURL() string {
	if c.PublishRemoteURL != "" {
		return c.PublishRemoteURL
	}
	return c.RepoURL
}

// NormalizeRepoURL drops an empty userinfo ("https://@github.com/...").
func NormalizeRepoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	return strings.Replace(raw, "https://@", "https://", 1)
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"repo_path":          {"GIT_REPO_PATH", "SITEPUBLISH_REPO_PATH"},
		"repo_url":           {"GIT_REPO_URL", "SITEPUBLISH_REPO_URL"},
		"branch":             {"GIT_BRANCH", "SITEPUBLISH_BRANCH"},
		"github_token":       {"GITHUB_TOKEN", "SITEPUBLISH_GITHUB_TOKEN"},
		"committer_name":     {"GIT_USER_NAME", "SITEPUBLISH_COMMITTER_NAME"},
		"committer_email":    {"GIT_USER_EMAIL", "SITEPUBLISH_COMMITTER_EMAIL"},
		"preview_port":       {"PREVIEW_PORT", "SITEPUBLISH_PREVIEW_PORT"},
		"preview_url":        {"PREVIEW_URL", "SITEPUBLISH_PREVIEW_URL"},
		"publish_remote_url": {"PUBLISH_REMOTE_URL", "SITEPUBLISH_PUBLISH_REMOTE_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("committer_name", defaults.CommitterName)
	v.SetDefault("committer_email", defaults.CommitterEmail)
	v.SetDefault("publish_branch", defaults.PublishBranch)
	v.SetDefault("site_dir", defaults.SiteDir)
	v.SetDefault("build_command", defaults.BuildCommand)
	v.SetDefault("build_output_dir", defaults.BuildOutputDir)
	v.SetDefault("build_cache_dirs", defaults.BuildCacheDirs)
	v.SetDefault("preview_command", defaults.PreviewCommand)
	v.SetDefault("content_command", CommandLine{})
	v.SetDefault("content_dir", defaults.ContentDir)
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("command_timeout", defaults.CommandTimeout)
	v.SetDefault("network_timeout", defaults.NetworkTimeout)
	v.SetDefault("lock_wait", defaults.LockWait)
	v.SetDefault("retry_count", defaults.RetryCount)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("http_addr", defaults.HTTPAddr)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("github_release", false)
}

// LoadConfig reads .sitepublish.yaml from the working directory (optional)
// and the environment, applies defaults and validates the result.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	v.SetConfigName(".sitepublish")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("SITEPUBLISH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	config.RepoURL = NormalizeRepoURL(config.RepoURL)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}
