package orm

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/velite"
	"github.com/syssam/velite/dialect"
	"github.com/syssam/velite/schema"
)

// Defaults of a connection's configuration.
const (
	DefaultBusyTimeout        = time.Second
	DefaultBackupPagesPerStep = 100
	DefaultBackupPause        = 10 * time.Millisecond
	DefaultSlowThreshold      = 100 * time.Millisecond
)

// config is immutable once a connection is open; clones share it.
type config struct {
	flags                dialect.OpenFlags
	storeDateTimeAsTicks bool
	serializer           velite.BlobSerializer
	mappings             []*schema.TableMapping
	extraTypes           map[reflect.Type]string
	resolver             func(reflect.Type) reflect.Value
	key                  string
	busyTimeout          time.Duration
	provider             schema.InfoProvider
	implicitPKName       string
	implicitIndexSuffix  string
	logger               *slog.Logger
	trace                bool
	slowThreshold        time.Duration
	backupPages          int
	backupPause          time.Duration
	tableChanged         func(TableChangedEvent)
	relaxNotNull         bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		flags:                dialect.OpenDefault,
		storeDateTimeAsTicks: true,
		serializer:           velite.NewMsgpackSerializer(),
		resolver:             reflect.New,
		busyTimeout:          DefaultBusyTimeout,
		provider:             schema.DefaultProvider,
		logger:               slog.Default(),
		slowThreshold:        DefaultSlowThreshold,
		backupPages:          DefaultBackupPagesPerStep,
		backupPause:          DefaultBackupPause,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Option configures a connection.
type Option func(*config)

// WithOpenFlags sets the flags the database is opened with.
func WithOpenFlags(f dialect.OpenFlags) Option {
	return func(c *config) {
		c.flags = f
	}
}

// WithStoreDateTimeAsTicks selects how time.Time values are stored: as
// integer ticks (the default) or as text.
func WithStoreDateTimeAsTicks(on bool) Option {
	return func(c *config) {
		c.storeDateTimeAsTicks = on
	}
}

// WithBlobSerializer stores the types s handles as blobs. The default is a
// velite.MsgpackSerializer; nil disables blob serialization.
func WithBlobSerializer(s velite.BlobSerializer) Option {
	return func(c *config) {
		c.serializer = s
	}
}

// WithMappings seeds the mapping cache with prebuilt mappings.
func WithMappings(ms ...*schema.TableMapping) Option {
	return func(c *config) {
		c.mappings = append(c.mappings, ms...)
	}
}

// WithTypeMapping declares columns of type t as sqlType in CREATE TABLE,
// overriding the built-in choice.
func WithTypeMapping(t reflect.Type, sqlType string) Option {
	return func(c *config) {
		if c.extraTypes == nil {
			c.extraTypes = make(map[reflect.Type]string)
		}
		c.extraTypes[t] = sqlType
	}
}

// WithObjectResolver sets how materialized entities are allocated. f returns
// a pointer to a new value of the given type.
func WithObjectResolver(f func(reflect.Type) reflect.Value) Option {
	return func(c *config) {
		if f != nil {
			c.resolver = f
		}
	}
}

// WithEncryptionKey issues PRAGMA key after opening. Engines built without a
// codec ignore it.
func WithEncryptionKey(key string) Option {
	return func(c *config) {
		c.key = key
	}
}

// WithBusyTimeout sets how long the engine retries on a locked database.
// Zero leaves the engine's setting untouched.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) {
		c.busyTimeout = d
	}
}

// WithInfoProvider sets the provider of naming and key metadata.
func WithInfoProvider(p schema.InfoProvider) Option {
	return func(c *config) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithImplicitPKName sets the member name ImplicitPK treats as the key.
func WithImplicitPKName(name string) Option {
	return func(c *config) {
		c.implicitPKName = name
	}
}

// WithImplicitIndexSuffix sets the name suffix ImplicitIndex indexes.
func WithImplicitIndexSuffix(suffix string) Option {
	return func(c *config) {
		c.implicitIndexSuffix = suffix
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTrace logs every statement at debug level.
func WithTrace(on bool) Option {
	return func(c *config) {
		c.trace = on
	}
}

// WithSlowThreshold sets the duration above which statements are logged
// as slow.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *config) {
		c.slowThreshold = d
	}
}

// WithBackupStep sets how many pages a backup copies per step and how long
// it pauses between steps.
func WithBackupStep(pages int, pause time.Duration) Option {
	return func(c *config) {
		if pages > 0 {
			c.backupPages = pages
		}
		if pause >= 0 {
			c.backupPause = pause
		}
	}
}

// WithTableChanged registers f to be called after statements that change
// rows of a mapped table.
func WithTableChanged(f func(TableChangedEvent)) Option {
	return func(c *config) {
		c.tableChanged = f
	}
}

// WithRelaxedMigration lets MigrateTable add NOT NULL columns that have no
// default as nullable columns instead of failing.
func WithRelaxedMigration() Option {
	return func(c *config) {
		c.relaxNotNull = true
	}
}

// Config is the file form of a connection's configuration.
//
//	path: app.db
//	store_datetime_as_ticks: false
//	busy_timeout: 5s
//	naming: inflect
//	backup:
//	  pages_per_step: 200
//	  pause: 5ms
type Config struct {
	Path                 string        `yaml:"path"`
	ReadOnly             bool          `yaml:"read_only"`
	SharedCache          bool          `yaml:"shared_cache"`
	StoreDateTimeAsTicks *bool         `yaml:"store_datetime_as_ticks"`
	EncryptionKey        string        `yaml:"encryption_key"`
	BusyTimeout          time.Duration `yaml:"busy_timeout"`
	// Naming is "tags" (the default) or "inflect".
	Naming string `yaml:"naming"`
	// Serializer is "msgpack" (the default) or "none".
	Serializer          string        `yaml:"serializer"`
	ImplicitPKName      string        `yaml:"implicit_pk_name"`
	ImplicitIndexSuffix string        `yaml:"implicit_index_suffix"`
	Trace               bool          `yaml:"trace"`
	SlowThreshold       time.Duration `yaml:"slow_threshold"`
	RelaxedMigration    bool          `yaml:"relaxed_migration"`
	Backup              struct {
		PagesPerStep int           `yaml:"pages_per_step"`
		Pause        time.Duration `yaml:"pause"`
	} `yaml:"backup"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("velite: load config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("velite: parse config: %w", err)
	}
	switch cfg.Naming {
	case "", "tags", "inflect":
	default:
		return nil, velite.NewConfigError("", fmt.Sprintf("unknown naming %q", cfg.Naming))
	}
	switch cfg.Serializer {
	case "", "msgpack", "none":
	default:
		return nil, velite.NewConfigError("", fmt.Sprintf("unknown serializer %q", cfg.Serializer))
	}
	return cfg, nil
}

// Options converts the configuration into connection options.
func (c *Config) Options() []Option {
	flags := dialect.OpenDefault
	if c.ReadOnly {
		flags = dialect.OpenReadOnly | dialect.OpenFullMutex
	}
	if c.SharedCache {
		flags |= dialect.OpenSharedCache
	}
	opts := []Option{WithOpenFlags(flags)}
	if c.StoreDateTimeAsTicks != nil {
		opts = append(opts, WithStoreDateTimeAsTicks(*c.StoreDateTimeAsTicks))
	}
	if c.EncryptionKey != "" {
		opts = append(opts, WithEncryptionKey(c.EncryptionKey))
	}
	if c.BusyTimeout > 0 {
		opts = append(opts, WithBusyTimeout(c.BusyTimeout))
	}
	if c.Serializer == "none" {
		opts = append(opts, WithBlobSerializer(nil))
	}
	if c.Naming == "inflect" {
		opts = append(opts, WithInfoProvider(schema.NewInflectProvider()))
	}
	if c.ImplicitPKName != "" {
		opts = append(opts, WithImplicitPKName(c.ImplicitPKName))
	}
	if c.ImplicitIndexSuffix != "" {
		opts = append(opts, WithImplicitIndexSuffix(c.ImplicitIndexSuffix))
	}
	if c.Trace {
		opts = append(opts, WithTrace(true))
	}
	if c.SlowThreshold > 0 {
		opts = append(opts, WithSlowThreshold(c.SlowThreshold))
	}
	if c.RelaxedMigration {
		opts = append(opts, WithRelaxedMigration())
	}
	if c.Backup.PagesPerStep > 0 || c.Backup.Pause > 0 {
		pause := c.Backup.Pause
		if pause == 0 {
			pause = -1 // keep the default
		}
		opts = append(opts, WithBackupStep(c.Backup.PagesPerStep, pause))
	}
	return opts
}
