package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ValidationError is one schema violation.
type ValidationError struct {
	Path    string // dotted config key, e.g. "log_level"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every violation found in one pass.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile config schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("config schema: #Config not found")
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// schemaView is the shape checked by the schema. Durations are checked in
// milliseconds.
type schemaView struct {
	Addr           string   `json:"addr"`
	DB             string   `json:"db"`
	Session        string   `json:"session"`
	Remote         string   `json:"remote"`
	TimeoutMS      int64    `json:"timeout_ms"`
	AllowedOrigins []string `json:"allowed_origins"`
	LogLevel       string   `json:"log_level"`
}

// Validate checks cfg against the embedded schema. The returned error is a
// ValidationErrors listing every violation.
func Validate(cfg Config) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	origins := cfg.AllowedOrigins
	if origins == nil {
		origins = []string{}
	}
	view := schemaView{
		Addr:           cfg.Addr,
		DB:             cfg.DB,
		Session:        cfg.Session,
		Remote:         cfg.Remote,
		TimeoutMS:      cfg.Timeout.Milliseconds(),
		AllowedOrigins: origins,
		LogLevel:       cfg.LogLevel,
	}

	unified := def.Unify(ctx.Encode(view))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) error {
	var out ValidationErrors
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		path := configPath(e.Path())
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		key := path + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ValidationError{Path: path, Message: msg})
	}
	if len(out) == 0 {
		return ValidationErrors{{Message: err.Error()}}
	}
	return out
}

// configPath drops the schema definition from a CUE path and maps the
// checked view back onto config keys.
func configPath(path []string) string {
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	joined := strings.Join(path, ".")
	if joined == "timeout_ms" {
		return "timeout"
	}
	if strings.HasPrefix(joined, "allowed_origins.") {
		return "allowed_origins"
	}
	return joined
}
